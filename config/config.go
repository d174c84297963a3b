// Package config loads service configuration from an optional YAML file, a
// .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/paylink-foundation/paylink/go/evm"
	"github.com/paylink-foundation/paylink/go/gasprice"
	"github.com/paylink-foundation/paylink/go/pkg/logging"
	"github.com/paylink-foundation/paylink/go/relay"
	"github.com/paylink-foundation/paylink/go/storage"
)

// Config is the configuration shared by the binaries.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chain      ChainConfig      `yaml:"chain"`
	GasStation GasStationConfig `yaml:"gasStation"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Storage    StorageConfig    `yaml:"storage"`
	Recaptcha  RecaptchaConfig  `yaml:"recaptcha"`
	Log        logging.Config   `yaml:"log"`
}

// ServerConfig configures the relay HTTP service
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimit       float64       `yaml:"rateLimit"`
	RateBurst       int           `yaml:"rateBurst"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	DedupTTL        time.Duration `yaml:"dedupTTL"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ChainConfig configures the home chain connection
type ChainConfig struct {
	RPCURL                string `yaml:"rpcURL"`
	ExecutorPrivateKey    string `yaml:"-"`
	NamesContract         string `yaml:"namesContract"`
	SubscriptionsContract string `yaml:"subscriptionsContract"`
}

// GasStationConfig configures the primary fee source
type GasStationConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// IndexerConfig configures the indexed fallback
type IndexerConfig struct {
	SubgraphURL string `yaml:"subgraphURL"`
}

// StorageConfig configures content retrieval and publishing
type StorageConfig struct {
	Gateways     []string      `yaml:"gateways"`
	RaceTimeout  time.Duration `yaml:"raceTimeout"`
	PinningURL   string        `yaml:"pinningURL"`
	PinningToken string        `yaml:"-"`
}

// RecaptchaConfig configures CAPTCHA verification. An empty secret disables it.
type RecaptchaConfig struct {
	Secret string `yaml:"-"`
	URL    string `yaml:"url"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimit:       1,
			RateBurst:       5,
			MaxAttempts:     relay.DefaultMaxAttempts,
			DedupTTL:        relay.DefaultDedupTTL,
			ShutdownTimeout: 10 * time.Second,
		},
		GasStation: GasStationConfig{
			URL:     gasprice.DefaultStationURL,
			Timeout: gasprice.DefaultTimeout,
		},
		Storage: StorageConfig{
			Gateways:    append([]string(nil), storage.DefaultGateways...),
			RaceTimeout: storage.DefaultRaceTimeout,
			PinningURL:  storage.DefaultPinningURL,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads path (when non-empty), then .env and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides copies recognised environment variables into cfg.
func ApplyEnvOverrides(cfg *Config) error {
	setString(&cfg.Chain.RPCURL, "RPC_URL")
	setString(&cfg.Chain.ExecutorPrivateKey, "EXECUTOR_PRIVATE_KEY")
	setString(&cfg.Chain.NamesContract, "NAMES_CONTRACT_ADDRESS")
	setString(&cfg.Chain.SubscriptionsContract, "SUBSCRIPTIONS_CONTRACT_ADDRESS")
	setString(&cfg.GasStation.URL, "GAS_STATION_URL")
	setString(&cfg.Indexer.SubgraphURL, "SUBGRAPH_URL")
	setString(&cfg.Storage.PinningToken, "PINNING_TOKEN")
	setString(&cfg.Recaptcha.Secret, "RECAPTCHA_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if raw := strings.TrimSpace(os.Getenv("IPFS_GATEWAYS")); raw != "" {
		var gateways []string
		for _, gateway := range strings.Split(raw, ",") {
			if gateway = strings.TrimSpace(gateway); gateway != "" {
				gateways = append(gateways, gateway)
			}
		}
		cfg.Storage.Gateways = gateways
	}

	if raw := strings.TrimSpace(os.Getenv("PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", raw, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Validate checks the settings needed to resolve handles.
func (c *Config) Validate() error {
	if len(c.Storage.Gateways) == 0 {
		return ErrMissingGateways
	}
	if c.Chain.NamesContract != "" && !evm.IsValidAddress(c.Chain.NamesContract) {
		return ErrInvalidNamesContract
	}
	return nil
}

// ValidateRelay checks the settings needed to run the relay.
func (c *Config) ValidateRelay() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Server.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Chain.RPCURL == "" {
		return ErrMissingRPCURL
	}
	if c.Chain.ExecutorPrivateKey == "" {
		return ErrMissingExecutorKey
	}
	if !evm.IsValidAddress(c.Chain.NamesContract) {
		return ErrInvalidNamesContract
	}
	if !evm.IsValidAddress(c.Chain.SubscriptionsContract) {
		return ErrInvalidSubscriptionsContract
	}
	return nil
}
