// Package main initializes and runs the Folkvang segmentation service.
//
// It acts as the composition root: loading configuration, connecting
// infrastructure (PostgreSQL, optionally Redis), wiring the catalog,
// selection coordinator, and REST API, and handling the server lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/folkvang/folkvang/internal/api"
	"github.com/folkvang/folkvang/internal/blobstore"
	"github.com/folkvang/folkvang/internal/cache"
	"github.com/folkvang/folkvang/internal/catalog"
	"github.com/folkvang/folkvang/internal/config"
	"github.com/folkvang/folkvang/internal/database"
	"github.com/folkvang/folkvang/internal/logger"
	"github.com/folkvang/folkvang/internal/observability"
	"github.com/folkvang/folkvang/internal/records"
	"github.com/folkvang/folkvang/internal/selection"
)

// poolMonitorInterval is how often pool statistics are exported as metrics.
const poolMonitorInterval = 10 * time.Second

// main is the application entrypoint.
func main() {
	if err := run(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg := logger.New(&cfg.App)
	slog.SetDefault(logg)
	cfg.LogConfig(logg)

	// Root context cancelled on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, logg)

	// -------------------------------------------------------------------------
	// 2. Infrastructure Setup
	// -------------------------------------------------------------------------

	// PostgreSQL serves the customer records and, by default, the catalog blob.
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	go database.RunPoolMonitor(ctx, pool, poolMonitorInterval)

	checkers := []observability.Checker{database.NewHealthChecker(pool)}

	store, redisClient, err := buildCatalogStore(ctx, cfg, pool)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checkers = append(checkers, cache.NewHealthChecker(redisClient))
	}

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------

	var source records.Source = records.NewPostgresSource(pool)
	if cfg.Catalog.SnapshotCacheTTL > 0 {
		cached, err := records.NewCachedSource(source, cfg.Catalog.SnapshotCacheTTL)
		if err != nil {
			return fmt.Errorf("failed to build snapshot cache: %w", err)
		}
		defer cached.Close()
		source = cached
	}

	cat := catalog.New(store, source, logg)
	if err := cat.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load segment catalog: %w", err)
	}

	coord := selection.New(source, logg)
	cat.OnDelete(coord.HandleSegmentDeleted)

	restAPI := api.NewAPIWithConfig(cat, coord, source,
		cfg.Server.APIKeyHash, cfg.Server.APIKeyHash == "")

	// -------------------------------------------------------------------------
	// 4. Servers
	// -------------------------------------------------------------------------

	obsServer := observability.NewServer(logg, &cfg.Observability, checkers...)
	obsServer.Start()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	apiServer := &http.Server{
		Addr:              addr,
		Handler:           restAPI.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		logg.Info("starting api server", slog.String("addr", addr), slog.Bool("tls", cfg.Server.TLSEnabled))

		var serveErr error
		if cfg.Server.TLSEnabled {
			serveErr = apiServer.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			serveErr = apiServer.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server failed: %w", serveErr)
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Graceful Shutdown
	// -------------------------------------------------------------------------

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logg.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("api server shutdown failed", slog.String("error", err.Error()))
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("observability server shutdown failed", slog.String("error", err.Error()))
	}

	logg.Info("service exited successfully")
	return nil
}

// buildCatalogStore selects the catalog's durable store from configuration.
// The returned redis client is non-nil only for the redis backend; the caller
// owns its lifecycle.
func buildCatalogStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (blobstore.Store, *redis.Client, error) {
	switch cfg.Catalog.StoreBackend {
	case config.StoreBackendPostgres:
		return blobstore.NewPostgresStore(pool), nil, nil

	case config.StoreBackendRedis:
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return blobstore.NewRedisStore(client), client, nil

	case config.StoreBackendMemory:
		return blobstore.NewMemoryStore(), nil, nil

	default:
		// Unreachable: config validation rejects unknown backends.
		return nil, nil, fmt.Errorf("unknown catalog store backend %q", cfg.Catalog.StoreBackend)
	}
}
