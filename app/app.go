/*
Package app wires configuration, storage, the policy registry and the HTTP
server together.

STARTUP SEQUENCE:
  1. Load configuration (config.Load)
  2. Initialize the logger
  3. Open the store (SQLite file or PostgreSQL pool + migrations)
  4. Restore the policy registry, seeding built-in policies into an
     empty store
  5. Start the policy sync scheduler (when enabled)
  6. Serve HTTP until the context is cancelled

GRACEFUL SHUTDOWN:
  When ctx is cancelled:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Stop the scheduler
  4. Close the store

SEE ALSO:
  - cmd/server/main.go: Signal handling and .env loading
  - api/server.go: Router configuration
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/warp/labor-engine/api"
	"github.com/warp/labor-engine/config"
	"github.com/warp/labor-engine/policy"
	"github.com/warp/labor-engine/store/postgres"
	"github.com/warp/labor-engine/store/sqlite"
)

// Run is the application entry point. It returns when ctx is cancelled
// and the server has shut down, or when startup fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("timezone", cfg.Engine.Location.String()),
		slog.String("log_level", cfg.Log.Level),
	)

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", slog.String("error", err.Error()))
		}
	}()

	registry, err := policy.Restore(ctx, store, policy.StandardPolicies(cfg.Engine.Epoch)...)
	if err != nil {
		return fmt.Errorf("restore policies: %w", err)
	}
	logger.Info("policies loaded", slog.Int("versions", len(registry.List())))

	handler := api.NewHandler(store, registry, cfg.Engine, logger)
	scheduler := api.NewPolicySyncScheduler(store, registry, cfg.Engine.PolicySyncInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.CORS),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return serve(ctx, server, cfg.Server, logger)
}

// ClosableStore is an api.Store that owns a connection.
type ClosableStore interface {
	api.Store
	Ping(ctx context.Context) error
	Close() error
}

// OpenStore opens the configured store. PostgreSQL migrations run before
// the store is returned; SQLite migrates itself.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (ClosableStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.New(pool), nil
	case config.DriverSQLite, "":
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func serve(ctx context.Context, server *http.Server, cfg config.ServerConfig, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
