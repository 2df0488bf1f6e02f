package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".defifolio"), cfg.Dir)
	assert.Equal(t, "https://walletconnect.org", cfg.Wallet.Endpoint)
	assert.Equal(t, domain.ConnectPolicyConfirmed, cfg.Wallet.Policy)
	assert.Equal(t, 2*time.Minute, cfg.Wallet.Timeout)
	assert.Equal(t, AdapterLoopback, cfg.Wallet.Adapter)
	assert.Equal(t, "127.0.0.1:0", cfg.Wallet.Listen)
	assert.Zero(t, cfg.Wallet.AutoApprove)
	assert.Equal(t, BackendTOML, cfg.Store.Backend)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadReadsConfigFileFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".defifolio"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".defifolio", "config.toml"), []byte(`
[wallet]
policy = "optimistic"
timeout = "30s"
adapter = "simulated"
auto_approve = "10ms"

[store]
backend = "sqlite"
path = "~/data/records.db"

[log]
level = "debug"
format = "json"
`), 0o600))

	v := viper.New()
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, domain.ConnectPolicyOptimistic, cfg.Wallet.Policy)
	assert.Equal(t, 30*time.Second, cfg.Wallet.Timeout)
	assert.Equal(t, AdapterSimulated, cfg.Wallet.Adapter)
	assert.Equal(t, 10*time.Millisecond, cfg.Wallet.AutoApprove)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(home, "data", "records.db"), cfg.Store.Path)
	assert.Equal(t, cfg.Store.Path, v.GetString(KeyStorePath))
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEFIFOLIO_WALLET_ENDPOINT", "https://relay.example.com")
	t.Setenv("DEFIFOLIO_STORE_BACKEND", "SQLite")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com", cfg.Wallet.Endpoint)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		value   string
		wantErr string
	}{
		{name: "policy", env: "DEFIFOLIO_WALLET_POLICY", value: "eventual", wantErr: "unsupported connect policy"},
		{name: "adapter", env: "DEFIFOLIO_WALLET_ADAPTER", value: "bluetooth", wantErr: "unsupported wallet adapter"},
		{name: "backend", env: "DEFIFOLIO_STORE_BACKEND", value: "redis", wantErr: "unsupported store backend"},
		{name: "timeout", env: "DEFIFOLIO_WALLET_TIMEOUT", value: "0s", wantErr: "must be positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv(tc.env, tc.value)

			_, err := Load(viper.New(), "")
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadExplicitConfigFileMustExist(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config file")
}
