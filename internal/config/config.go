package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/spf13/viper"
)

const (
	DirName    = ".defifolio"
	configName = "config"
	configType = "toml"
	envPrefix  = "DEFIFOLIO"

	KeyWalletEndpoint    = "wallet.endpoint"
	KeyWalletPolicy      = "wallet.policy"
	KeyWalletTimeout     = "wallet.timeout"
	KeyWalletAdapter     = "wallet.adapter"
	KeyWalletListen      = "wallet.listen"
	KeyWalletAutoApprove = "wallet.auto_approve"
	KeyStoreBackend      = "store.backend"
	KeyStorePath         = "store.path"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyLogFile           = "log.file"

	AdapterLoopback  = "loopback"
	AdapterSimulated = "simulated"
	BackendTOML      = "toml"
	BackendSQLite    = "sqlite"
)

type Config struct {
	Dir    string
	Wallet WalletConfig
	Store  StoreConfig
	Log    LogConfig
}

type WalletConfig struct {
	Endpoint string
	Policy   domain.ConnectPolicy
	Timeout  time.Duration
	Adapter  string
	Listen   string
	// AutoApprove only applies to the simulated adapter; zero disables it.
	AutoApprove time.Duration
}

type StoreConfig struct {
	Backend string
	// Path is empty when the backend should use its default location.
	Path string
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads ~/.defifolio/config.toml (or configFile when set) into v and
// applies DEFIFOLIO_* environment overrides. A missing default file is fine.
func Load(v *viper.Viper, configFile string) (Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(homeDir, DirName)

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v, dir)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyWalletEndpoint, "https://walletconnect.org")
	v.SetDefault(KeyWalletPolicy, string(domain.ConnectPolicyConfirmed))
	v.SetDefault(KeyWalletTimeout, 2*time.Minute)
	v.SetDefault(KeyWalletAdapter, AdapterLoopback)
	v.SetDefault(KeyWalletListen, "127.0.0.1:0")
	v.SetDefault(KeyWalletAutoApprove, time.Duration(0))
	v.SetDefault(KeyStoreBackend, BackendTOML)
	v.SetDefault(KeyStorePath, "")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
}

func decode(v *viper.Viper, dir string) (Config, error) {
	policy, err := domain.ParseConnectPolicy(v.GetString(KeyWalletPolicy))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyWalletPolicy, err)
	}

	cfg := Config{
		Dir: dir,
		Wallet: WalletConfig{
			Endpoint:    v.GetString(KeyWalletEndpoint),
			Policy:      policy,
			Timeout:     v.GetDuration(KeyWalletTimeout),
			Adapter:     strings.ToLower(strings.TrimSpace(v.GetString(KeyWalletAdapter))),
			Listen:      v.GetString(KeyWalletListen),
			AutoApprove: v.GetDuration(KeyWalletAutoApprove),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreBackend))),
			Path:    expandHome(v.GetString(KeyStorePath), filepath.Dir(dir)),
		},
		Log: LogConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   expandHome(v.GetString(KeyLogFile), filepath.Dir(dir)),
		},
	}

	if cfg.Wallet.Timeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %s", KeyWalletTimeout, cfg.Wallet.Timeout)
	}
	switch cfg.Wallet.Adapter {
	case AdapterLoopback, AdapterSimulated:
	default:
		return Config{}, fmt.Errorf("%s: unsupported wallet adapter %q", KeyWalletAdapter, cfg.Wallet.Adapter)
	}
	switch cfg.Store.Backend {
	case BackendTOML, BackendSQLite:
	default:
		return Config{}, fmt.Errorf("%s: unsupported store backend %q", KeyStoreBackend, cfg.Store.Backend)
	}
	v.Set(KeyStorePath, cfg.Store.Path)

	return cfg, nil
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
