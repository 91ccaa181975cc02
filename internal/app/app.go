package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"myconnectionsvr/authdemo/internal/audit"
	"myconnectionsvr/authdemo/internal/auth"
	"myconnectionsvr/authdemo/internal/config"
	"myconnectionsvr/authdemo/internal/httpserver"
	"myconnectionsvr/authdemo/internal/observability"
	"myconnectionsvr/authdemo/internal/storage"
)

// Core is the wired auth stack shared by the server and the CLI.
type Core struct {
	Storage storage.Storage
	Auth    *auth.Service
	Audit   *audit.Logger
}

// NewCore opens storage, seeds the demo account when asked, rehydrates the
// persisted session and builds the auth service.
func NewCore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Core, error) {
	kv, err := storage.Open(cfg.Storage.Options())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	core, err := NewCoreWithStorage(ctx, kv, cfg, logger)
	if err != nil {
		_ = storage.Close(kv)
		return nil, err
	}
	return core, nil
}

// NewCoreWithStorage wires the stack on an already opened storage backend.
func NewCoreWithStorage(ctx context.Context, kv storage.Storage, cfg config.Config, logger *slog.Logger) (*Core, error) {
	credentials, err := auth.NewStorageCredentialStore(kv, logger)
	if err != nil {
		return nil, fmt.Errorf("create credential store: %w", err)
	}
	if cfg.Auth.SeedDemo {
		seeded, err := credentials.SeedDemoAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed demo account: %w", err)
		}
		if seeded {
			logger.Info("demo account created", "email", auth.DemoAccount.Email)
		}
	}

	session, err := auth.NewSessionState(kv, logger)
	if err != nil {
		return nil, fmt.Errorf("create session state: %w", err)
	}
	if u, ok := session.Load(ctx); ok {
		logger.Info("session restored", "user_id", u.ID)
	}

	authService, err := auth.NewService(credentials, session, auth.ServiceConfig{
		Latency: cfg.Auth.Latency,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}

	return &Core{
		Storage: kv,
		Auth:    authService,
		Audit:   audit.NewLogger(cfg.AuditLogFile),
	}, nil
}

func (c *Core) Close() error {
	return storage.Close(c.Storage)
}

type App struct {
	cfg    config.Config
	log    *slog.Logger
	core   *Core
	server *httpserver.Server
}

func New(cfg config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.LogLevel)

	core, err := NewCore(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:            core.Auth,
		Audit:           core.Audit,
		Logger:          logger,
		FrontendDistDir: cfg.FrontendDistDir,
	})

	return &App{
		cfg:    cfg,
		log:    logger,
		core:   core,
		server: server,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.core.Close(); err != nil {
			a.log.Warn("close storage", "error", err)
		}
	}()

	unsubscribe := a.core.Auth.Subscribe(func(u auth.User, authenticated bool) {
		a.log.Debug("session changed", "authenticated", authenticated, "user_id", u.ID)
	})
	defer unsubscribe()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr, "storage", a.cfg.Storage.Driver)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
