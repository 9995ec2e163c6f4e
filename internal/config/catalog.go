package config

import (
	"fmt"
	"time"
)

// Supported catalog store backends.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

// CatalogConfig configures segment catalog persistence and evaluation.
type CatalogConfig struct {
	// StoreBackend selects where the catalog blob lives.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"postgres" validate:"oneof=postgres redis memory"`

	// SnapshotCacheTTL bounds the staleness of the cached customer snapshot
	// used for evaluation. Zero disables caching.
	SnapshotCacheTTL time.Duration `envconfig:"SNAPSHOT_CACHE_TTL" default:"30s" validate:"min=0"`
}

// Validate performs validation on the CatalogConfig.
func (c *CatalogConfig) Validate(environment string) error {
	// The memory backend loses the catalog on restart. Acceptable for
	// development, never for production.
	if environment == EnvironmentProduction && c.StoreBackend == StoreBackendMemory {
		return fmt.Errorf("catalog store backend 'memory' is not allowed in production environment")
	}
	return nil
}
