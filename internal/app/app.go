package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go-user-api/internal/auth"
	"go-user-api/internal/config"
	"go-user-api/internal/database"
	"go-user-api/internal/event"
	"go-user-api/internal/handler"
	"go-user-api/internal/middleware"
	"go-user-api/internal/repository"
	"go-user-api/internal/router"
	"go-user-api/internal/service"
)

type App struct {
	cfg          *config.Config
	server       *http.Server
	cleanupFuncs []func()
}

// New wires storage, auth, services and the HTTP server from cfg. It fails
// when the signing secret is missing or the storage backend is unreachable.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	users, err := a.openUserRepository(ctx)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTIssuer)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	bus := event.NewBus()
	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditDone := event.NewAuditLogger(bus, slog.Default()).Start(auditCtx)
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		stopAudit()
		<-auditDone
	})

	userService := service.NewUserService(users, hasher, tokens, bus)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(tokens), router.Handlers{
		User:   handler.NewUserHandler(userService),
		Auth:   handler.NewAuthHandler(userService),
		System: handler.NewSystemHandler(cfg.Environment, users),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) openUserRepository(ctx context.Context) (repository.UserRepository, error) {
	switch a.cfg.StorageDriver {
	case config.StoragePostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, database.PoolOptions{
			URL:      a.cfg.DatabaseURL,
			MaxConns: a.cfg.DBMaxConns,
			MinConns: a.cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		return repository.NewPostgresUserRepository(db.Pool), nil

	case config.StorageSQLite:
		if dir := filepath.Dir(a.cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		db, err := database.OpenSQLite(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = db.Close() })
		return repository.NewSQLiteUserRepository(db), nil

	default:
		slog.Warn("using in-memory user storage; data is lost on restart")
		return repository.NewMemoryUserRepository(), nil
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests within
// the shutdown timeout before releasing storage.
func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr, "storage", a.cfg.StorageDriver, "env", a.cfg.Environment)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup releases resources in reverse order of acquisition.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

// Close releases resources without serving; used by callers that only need
// the handler.
func (a *App) Close() {
	a.cleanup()
}
