package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylink-foundation/paylink/go/relay"
	"github.com/paylink-foundation/paylink/go/storage"
)

const (
	names         = "0x1111111111111111111111111111111111111111"
	subscriptions = "0x2222222222222222222222222222222222222222"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, relay.DefaultMaxAttempts, cfg.Server.MaxAttempts)
	assert.Equal(t, storage.DefaultGateways, cfg.Storage.Gateways)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayd.yaml")
	yaml := `
server:
  port: 9000
  maxAttempts: 5
  dedupTTL: 2m
chain:
  rpcURL: https://rpc.file.example
  namesContract: ` + names + `
storage:
  gateways:
    - https://file-gateway.example
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("RPC_URL", "https://rpc.env.example")
	t.Setenv("IPFS_GATEWAYS", "https://a.example, https://b.example,")
	t.Setenv("EXECUTOR_PRIVATE_KEY", "0xabc")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Server.DedupTTL)
	assert.Equal(t, "https://rpc.env.example", cfg.Chain.RPCURL)
	assert.Equal(t, names, cfg.Chain.NamesContract)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Storage.Gateways)
	assert.Equal(t, "0xabc", cfg.Chain.ExecutorPrivateKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("PORT", "http")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidateRelay(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Chain = ChainConfig{
			RPCURL:                "https://rpc.example",
			ExecutorPrivateKey:    "0xabc",
			NamesContract:         names,
			SubscriptionsContract: subscriptions,
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no rpc", mutate: func(c *Config) { c.Chain.RPCURL = "" }, wantErr: ErrMissingRPCURL},
		{name: "no key", mutate: func(c *Config) { c.Chain.ExecutorPrivateKey = "" }, wantErr: ErrMissingExecutorKey},
		{name: "bad names", mutate: func(c *Config) { c.Chain.NamesContract = "0x12" }, wantErr: ErrInvalidNamesContract},
		{name: "no subscriptions", mutate: func(c *Config) { c.Chain.SubscriptionsContract = "" }, wantErr: ErrInvalidSubscriptionsContract},
		{name: "no gateways", mutate: func(c *Config) { c.Storage.Gateways = nil }, wantErr: ErrMissingGateways},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: ErrInvalidPort},
		{name: "no attempts", mutate: func(c *Config) { c.Server.MaxAttempts = 0 }, wantErr: ErrInvalidMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.ValidateRelay()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAllowsMissingNamesContract(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Chain.NamesContract = "names"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidNamesContract)
}
