// Command relayd runs the gasless relay HTTP service.
//
// Configuration is read from an optional YAML file, a .env file and the
// environment. RPC_URL, EXECUTOR_PRIVATE_KEY, NAMES_CONTRACT_ADDRESS and
// SUBSCRIPTIONS_CONTRACT_ADDRESS are required.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/paylink-foundation/paylink/go/config"
	"github.com/paylink-foundation/paylink/go/gasprice"
	paylinkhttp "github.com/paylink-foundation/paylink/go/http"
	"github.com/paylink-foundation/paylink/go/pkg/logging"
	"github.com/paylink-foundation/paylink/go/relay"
	evmsigners "github.com/paylink-foundation/paylink/go/signers/evm"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "relayd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateRelay(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// The RPC connection is dialed on the first relay, not here.
	executor, err := evmsigners.NewExecutor(cfg.Chain.RPCURL, cfg.Chain.ExecutorPrivateKey)
	if err != nil {
		return fmt.Errorf("failed to load executor: %w", err)
	}
	defer executor.Close()

	oracle := gasprice.NewOracle(
		gasprice.NewStation(gasprice.StationConfig{URL: cfg.GasStation.URL, Timeout: cfg.GasStation.Timeout}),
		executor,
		gasprice.WithLogger(logger.Named("gasprice")),
	)

	registry, err := relay.DefaultRegistry(cfg.Chain.NamesContract, cfg.Chain.SubscriptionsContract)
	if err != nil {
		return err
	}

	relayer := relay.New(registry, executor, oracle,
		relay.WithMaxAttempts(cfg.Server.MaxAttempts),
		relay.WithDeduplication(cfg.Server.DedupTTL),
		relay.WithLogger(logger.Named("relay")),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := paylinkhttp.NewMetrics(reg)
	metrics.Instrument(relayer)

	var captcha paylinkhttp.CaptchaVerifier
	if cfg.Recaptcha.Secret != "" {
		captcha = paylinkhttp.NewRecaptchaVerifier(paylinkhttp.RecaptchaConfig{
			Secret: cfg.Recaptcha.Secret,
			URL:    cfg.Recaptcha.URL,
		})
	} else {
		captcha = paylinkhttp.NewPermissiveVerifier(logger)
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	server := paylinkhttp.NewRelayServer(relayer,
		paylinkhttp.WithCaptcha(captcha),
		paylinkhttp.WithServerLogger(logger.Named("http")),
		paylinkhttp.WithMetrics(metrics, reg),
		paylinkhttp.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("executor", executor.Address()),
			zap.Strings("types", registry.Types()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
