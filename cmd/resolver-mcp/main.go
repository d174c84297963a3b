// Command resolver-mcp serves handle resolution and routing document
// validation to MCP clients over stdio. When EXECUTOR_PRIVATE_KEY is set the
// relay_intent tool is exposed as well.
//
// Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/paylink-foundation/paylink/go/config"
	"github.com/paylink-foundation/paylink/go/gasprice"
	"github.com/paylink-foundation/paylink/go/indexer"
	"github.com/paylink-foundation/paylink/go/mcp"
	"github.com/paylink-foundation/paylink/go/pkg/logging"
	"github.com/paylink-foundation/paylink/go/registry"
	"github.com/paylink-foundation/paylink/go/relay"
	"github.com/paylink-foundation/paylink/go/resolver"
	evmsigners "github.com/paylink-foundation/paylink/go/signers/evm"
	"github.com/paylink-foundation/paylink/go/storage"
	"github.com/paylink-foundation/paylink/go/validation"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "resolver-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reader := evmsigners.NewReader(cfg.Chain.RPCURL)
	defer reader.Close()

	content := storage.NewGatewayRace(cfg.Storage.Gateways, nil,
		storage.WithRaceTimeout(cfg.Storage.RaceTimeout),
		storage.WithRaceLogger(logger.Named("storage")))

	validator := validation.NewDefaultPipeline(validation.WithTokenLogger(logger.Named("validation")))

	routerOpts := []resolver.Option{
		resolver.WithValidator(validator),
		resolver.WithLogger(logger.Named("resolver")),
	}
	if cfg.Chain.NamesContract != "" && cfg.Chain.RPCURL != "" {
		routerOpts = append(routerOpts, resolver.WithLedger(registry.NewNames(cfg.Chain.NamesContract, reader, nil)))
	}
	if cfg.Indexer.SubgraphURL != "" {
		routerOpts = append(routerOpts, resolver.WithIndex(indexer.NewClient(indexer.Config{URL: cfg.Indexer.SubgraphURL})))
	}
	router := resolver.NewRouter(reader, content, routerOpts...)

	serverOpts := []mcp.Option{
		mcp.WithValidator(validator),
		mcp.WithLogger(logger.Named("mcp")),
	}
	if cfg.Chain.ExecutorPrivateKey != "" {
		relayer, err := newRelay(cfg, reader, logger)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, mcp.WithRelayer(relayer))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving MCP over stdio", zap.String("version", version))
	return mcp.NewServer(router, version, serverOpts...).Run(ctx, &mcpsdk.StdioTransport{})
}

func newRelay(cfg config.Config, reader *evmsigners.Reader, logger *zap.Logger) (*relay.Relay, error) {
	if err := cfg.ValidateRelay(); err != nil {
		return nil, err
	}
	executor, err := evmsigners.NewExecutorWithReader(reader, cfg.Chain.ExecutorPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load executor: %w", err)
	}
	operations, err := relay.DefaultRegistry(cfg.Chain.NamesContract, cfg.Chain.SubscriptionsContract)
	if err != nil {
		return nil, err
	}
	oracle := gasprice.NewOracle(
		gasprice.NewStation(gasprice.StationConfig{URL: cfg.GasStation.URL, Timeout: cfg.GasStation.Timeout}),
		reader,
		gasprice.WithLogger(logger.Named("gasprice")),
	)
	return relay.New(operations, executor, oracle,
		relay.WithMaxAttempts(cfg.Server.MaxAttempts),
		relay.WithDeduplication(cfg.Server.DedupTTL),
		relay.WithLogger(logger.Named("relay")),
	), nil
}
