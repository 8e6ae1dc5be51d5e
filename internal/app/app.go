package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-minimal-auth/internal/config"
	"go-minimal-auth/internal/database"
	"go-minimal-auth/internal/handler"
	"go-minimal-auth/internal/middleware"
	"go-minimal-auth/internal/repository"
	"go-minimal-auth/internal/router"
	"go-minimal-auth/internal/security"
	"go-minimal-auth/internal/service"
)

type App struct {
	server          *http.Server
	shutdownTimeout time.Duration
	cleanupFuncs    []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	application, err := build(cfg, store)
	if err != nil {
		cleanup()
		return nil, err
	}
	application.cleanupFuncs = append(application.cleanupFuncs, cleanup)

	return application, nil
}

func build(cfg *config.Config, store repository.UserStore) (*App, error) {
	bounded := repository.NewBoundedUserStore(store, cfg.StoreTimeout, cfg.StoreReadAttempts)

	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	tokens, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	authService, err := service.NewAuthService(bounded, hasher, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(authService),
		Health: handler.NewHealthHandler(bounded),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("auth service configured",
		"store", cfg.StoreDriver,
		"api_prefix", cfg.APIPrefix,
		"bcrypt_cost", hasher.Cost(),
		"token_ttl", tokens.TTL().String(),
	)

	return &App{server: server, shutdownTimeout: cfg.ShutdownTimeout}, nil
}

// openStore connects the configured user store and returns a func that
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (repository.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		slog.Info("database ready")

		return repository.NewUserRepository(db.Pool), db.Close, nil

	case config.StoreDriverSQLite:
		slog.Info("opening SQLite store", "path", cfg.SQLitePath)
		sqlDB, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}

		closeDB := func() {
			if err := sqlDB.Close(); err != nil {
				slog.Warn("failed to close sqlite store", "error", err)
			}
		}
		return repository.NewSQLiteUserRepository(sqlDB), closeDB, nil

	case config.StoreDriverMemory:
		slog.Warn("using in-memory user store; users are lost on restart")
		return repository.NewMemoryUserRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serverErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Release the store only after in-flight requests have drained.
	a.cleanup()

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}
	a.cleanupFuncs = nil
}
