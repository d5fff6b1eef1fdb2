// Package control wires configuration into a running fluxgen service.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/fluxgen/internal/core/config"
	"github.com/vietddude/fluxgen/internal/core/domain"
	"github.com/vietddude/fluxgen/internal/core/worker"
	"github.com/vietddude/fluxgen/internal/health"
	"github.com/vietddude/fluxgen/internal/infra/imageapi"
	redisclient "github.com/vietddude/fluxgen/internal/infra/redis"
	"github.com/vietddude/fluxgen/internal/server"
	"github.com/vietddude/fluxgen/internal/session"
)

// App owns the HTTP server, the session manager and the background sweeper.
type App struct {
	cfg         *config.AppConfig
	manager     *session.Manager
	server      *server.Server
	sweeper     *worker.Sweeper
	redisClient *redisclient.Client
	log         *slog.Logger
}

// ProviderFactory builds imageapi clients from the configured provider
// section, overridden by the session's key and base URL.
func ProviderFactory(base imageapi.Config) session.ProviderFactory {
	return func(s domain.Settings) (session.Provider, error) {
		cfg := base
		cfg.APIKey = s.APIKey
		cfg.BaseURL = s.BaseURL
		c, err := imageapi.New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// NewApp creates the application with all dependencies initialized.
func NewApp(cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	// The health probe uses the configured default provider only.
	var prober health.Prober
	if client, err := imageapi.New(cfg.Provider.Config); err == nil {
		prober = client
	} else if !errors.Is(err, domain.ErrClientNotReady) {
		return nil, fmt.Errorf("init provider: %w", err)
	}

	opts := []session.Option{session.WithLogger(log)}

	var redisClient *redisclient.Client
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		redisClient = client
		opts = append(opts, session.WithStore(redisclient.NewSnapshotStore(client, cfg.Server.SessionTTL)))
		log.Info("Session snapshots enabled", "ttl", cfg.Server.SessionTTL)
	}

	manager := session.NewManager(session.Config{
		Defaults: domain.Settings{
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
		},
		Dispatch: cfg.DispatchSettings(),
		IdleTTL:  cfg.Server.SessionTTL,
	}, ProviderFactory(cfg.Provider.Config), opts...)

	monitor := health.NewMonitor(prober, cfg.Provider.BaseURL, manager)

	srv := server.New(server.Config{
		Port:          cfg.Server.Port,
		SessionSecret: cfg.Server.SessionSecret,
		SessionTTL:    cfg.Server.SessionTTL,
	}, manager, monitor, log)

	return &App{
		cfg:         cfg,
		manager:     manager,
		server:      srv,
		sweeper:     worker.NewSweeper(manager, cfg.Server.SessionTTL),
		redisClient: redisClient,
		log:         log,
	}, nil
}

// Manager returns the session manager.
func (a *App) Manager() *session.Manager {
	return a.manager
}

// Run serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (a *App) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.sweeper.Start(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("Stopping fluxgen...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Stop stops the HTTP server and closes Redis.
func (a *App) Stop(ctx context.Context) error {
	err := a.server.Stop(ctx)

	if a.redisClient != nil {
		if cerr := a.redisClient.Close(); cerr != nil {
			a.log.Warn("Failed to close Redis", "error", cerr)
		}
		a.redisClient = nil
	}
	return err
}
