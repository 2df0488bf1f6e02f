package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/atotto/clipboard"
	welcomeadapter "github.com/jkalmus/defifolio/internal/adapters/render/welcome"
	sqliterepo "github.com/jkalmus/defifolio/internal/adapters/repo/sqlite"
	tomlrepo "github.com/jkalmus/defifolio/internal/adapters/repo/toml"
	chainstore "github.com/jkalmus/defifolio/internal/adapters/secrets/chain"
	"github.com/jkalmus/defifolio/internal/adapters/wallet/loopback"
	"github.com/jkalmus/defifolio/internal/adapters/wallet/simulated"
	"github.com/jkalmus/defifolio/internal/application"
	"github.com/jkalmus/defifolio/internal/config"
	"github.com/jkalmus/defifolio/internal/logging"
	"github.com/jkalmus/defifolio/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	config          config.Config
	logger          *slog.Logger
	records         *application.RecordService
	projects        *application.WalletProjectService
	welcomeRenderer func(welcomeadapter.View, welcomeadapter.RenderOptions) (string, error)
	openWallet      func(ctx context.Context) (walletClient, error)
	copyToClipboard func(text string) error
	now             func() time.Time
	closers         []io.Closer
}

// walletClient is a wallet capability owned by a single command run.
type walletClient interface {
	ports.WalletClient
	Close() error
}

// Swapped in tests.
var (
	openRecordRepository = wireRecordRepository
	openSecretStore      = func(root string) (ports.SecretStore, error) {
		return chainstore.NewPassFirstWithFileFallback(root)
	}
)

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v, envOrDefault("DEFIFOLIO_CONFIG", ""))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, repoCloser, err := openRecordRepository(cfg, v)
	if err != nil {
		return nil, errors.Join(err, logCloser.Close())
	}

	secretStore, err := openSecretStore(filepath.Join(cfg.Dir, "secrets"))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("wire secret store chain: %w", err), repoCloser.Close(), logCloser.Close())
	}

	a := &app{
		config:          cfg,
		logger:          logger,
		records:         application.NewRecordService(repo, ports.SystemClock{}),
		projects:        application.NewWalletProjectService(secretStore),
		welcomeRenderer: welcomeadapter.Render,
		copyToClipboard: clipboard.WriteAll,
		now:             time.Now,
		closers:         []io.Closer{repoCloser, logCloser},
	}
	a.openWallet = a.defaultWallet

	return a, nil
}

func wireRecordRepository(cfg config.Config, v *viper.Viper) (ports.RecordRepository, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		repo, err := sqliterepo.NewRepository(v)
		if err != nil {
			return nil, nil, fmt.Errorf("wire sqlite record repository: %w", err)
		}
		return repo, repo, nil
	default:
		repo, err := tomlrepo.NewRepository(v)
		if err != nil {
			return nil, nil, fmt.Errorf("wire toml record repository: %w", err)
		}
		return repo, nopCloser{}, nil
	}
}

func (a *app) defaultWallet(ctx context.Context) (walletClient, error) {
	switch a.config.Wallet.Adapter {
	case config.AdapterSimulated:
		opts := []simulated.Option{}
		if a.config.Wallet.AutoApprove > 0 {
			opts = append(opts, simulated.WithAutoApprove(a.config.Wallet.AutoApprove))
		}
		return simulated.NewClient(opts...), nil
	default:
		projectID, err := a.projects.ProjectID(ctx)
		if err != nil {
			// Pairing works without a project id; the relay may refuse it later.
			a.logger.Warn("wallet project id unavailable", "error", err)
		}
		client, err := loopback.Start(loopback.Config{
			ListenAddr: a.config.Wallet.Listen,
			ProjectID:  projectID,
			Logger:     a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("start wallet callback server: %w", err)
		}
		return client, nil
	}
}

func (a *app) connectionConfig() application.ConnectionConfig {
	return application.ConnectionConfig{
		Endpoint: a.config.Wallet.Endpoint,
		Policy:   a.config.Wallet.Policy,
		Timeout:  a.config.Wallet.Timeout,
	}
}

func (a *app) close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
