// Package database provides the PostgreSQL connection factory and pool
// telemetry.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/folkvang/folkvang/internal/config"
	"github.com/folkvang/folkvang/internal/logger"
)

var (
	// poolConnections tracks pool occupancy by state (total, idle, in_use, max).
	// Metric: folkvang_database_pool_connections
	poolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "folkvang",
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Current database pool connections by state",
	}, []string{"state"})

	// poolAcquireCount mirrors pgx's cumulative acquire counter.
	// Metric: folkvang_database_pool_acquire_count_total
	poolAcquireCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "folkvang",
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Cumulative number of successful connection acquires",
	})

	// poolAcquireDuration mirrors pgx's cumulative acquire wait time.
	// Metric: folkvang_database_pool_acquire_duration_seconds_total
	poolAcquireDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "folkvang",
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Cumulative time spent waiting for connection acquires",
	})

	// poolWaitCount counts acquires that had to wait for a free connection.
	// Metric: folkvang_database_pool_wait_count_total
	poolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "folkvang",
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Cumulative number of acquires that blocked on an exhausted pool",
	})
)

// NewPostgresPool initializes a PostgreSQL connection pool from configuration.
// It returns the pool directly, allowing the caller to manage the lifecycle via Dependency Injection.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	// 1. Parse the configuration string
	poolCfg, parseErr := pgxpool.ParseConfig(cfg.ConnectionString())
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", parseErr)
	}

	// 2. Configure settings (Pool Tuning)
	// MaxConns prevents the app from starving the DB (connection exhaustion).
	// MinConns keeps some connections warm to reduce latency for new requests.
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	// 3. Create the pool with a short timeout for fail-fast behavior
	initCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(initCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// 4. Verify connection (Ping) immediately to ensure network is healthy
	if err := pool.Ping(initCtx); err != nil {
		pool.Close() // Clean up if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.FromContext(ctx).Info("connected to postgresql",
		slog.Int("max_conns", cfg.MaxConns),
		slog.Int("min_conns", cfg.MinConns),
	)
	return pool, nil
}

// RunPoolMonitor periodically exports pgx pool statistics as Prometheus
// gauges until the context is cancelled. Run it as a sidecar goroutine next
// to the pool it observes.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := pool.Stat()
			poolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
			poolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
			poolConnections.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))
			poolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
			poolAcquireCount.Set(float64(stat.AcquireCount()))
			poolAcquireDuration.Set(stat.AcquireDuration().Seconds())
			poolWaitCount.Set(float64(stat.EmptyAcquireCount()))
		}
	}
}
