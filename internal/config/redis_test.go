package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisBackedConfig selects redis as the catalog store with a reachable
// development setup, so the Redis connection validation actually runs.
func redisBackedConfig(additional map[string]string) map[string]string {
	base := mergeEnvVars(map[string]string{
		"FOLKVANG_CATALOG_STORE_BACKEND": "redis",
		"FOLKVANG_REDIS_HOST":            "localhost",
		"FOLKVANG_REDIS_PORT":            "6379",
	})
	for k, v := range additional {
		base[k] = v
	}
	return base
}

// redisProductionConfig extends the production baseline with a redis-backed
// catalog and production-grade Redis settings.
func redisProductionConfig() map[string]string {
	cfg := validProductionConfig()
	cfg["FOLKVANG_CATALOG_STORE_BACKEND"] = "redis"
	cfg["FOLKVANG_REDIS_HOST"] = "prod-redis.example.com"
	cfg["FOLKVANG_REDIS_PORT"] = "6379"
	cfg["FOLKVANG_REDIS_PASSWORD"] = "RedisSecure123!"
	cfg["FOLKVANG_REDIS_TLS_ENABLED"] = "true"
	return cfg
}

func TestRedisConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "Should fail validation with PingMaxRetries < 1",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_PING_MAX_RETRIES": "0",
			}),
			wantErr: true,
		},
		{
			name: "Should parse valid PingMaxRetries and PingBackoff",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_PING_MAX_RETRIES": "8",
				"FOLKVANG_REDIS_PING_BACKOFF":     "3s",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Redis.PingMaxRetries)
				assert.Equal(t, 3*time.Second, cfg.Redis.PingBackoff)
			},
			wantErr: false,
		},
		{
			name: "Should fail validation with invalid PingBackoff duration",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_PING_BACKOFF": "notaduration",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation when Redis password missing in production",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				delete(cfg, "FOLKVANG_REDIS_PASSWORD")
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "Should fail validation when Redis TLS disabled in production",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				cfg["FOLKVANG_REDIS_TLS_ENABLED"] = "false"
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "Should pass validation with Redis URL in production",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				// Replace individual Redis settings with URL
				delete(cfg, "FOLKVANG_REDIS_HOST")
				delete(cfg, "FOLKVANG_REDIS_PORT")
				delete(cfg, "FOLKVANG_REDIS_PASSWORD")
				delete(cfg, "FOLKVANG_REDIS_TLS_ENABLED")
				cfg["FOLKVANG_REDIS_URL"] = "rediss://:password@redis.example.com:6379/0"
				return cfg
			}(),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "rediss://:password@redis.example.com:6379/0", cfg.Redis.URL)
				assert.True(t, cfg.Redis.IsConfigured())
			},
			wantErr: false,
		},
		{
			name: "Should fail validation when Redis MinIdleConns greater than PoolSize",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_POOL_SIZE":      "20",
				"FOLKVANG_REDIS_MIN_IDLE_CONNS": "50",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on invalid Redis DB number",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_DB": "16", // Max is 15
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation on negative Redis DB number",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_DB": "-1",
			}),
			wantErr: true,
		},
		{
			name:    "Should allow passwordless Redis in development",
			envVars: redisBackedConfig(nil),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.App.Environment)
				assert.Equal(t, "", cfg.Redis.Password)
			},
			wantErr: false,
		},
		{
			name: "Should fail validation with short Redis password in production",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				cfg["FOLKVANG_REDIS_PASSWORD"] = "short" // Less than 12 chars
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "Should fail validation with invalid Redis URL scheme",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				delete(cfg, "FOLKVANG_REDIS_HOST")
				delete(cfg, "FOLKVANG_REDIS_PORT")
				delete(cfg, "FOLKVANG_REDIS_PASSWORD")
				delete(cfg, "FOLKVANG_REDIS_TLS_ENABLED")
				cfg["FOLKVANG_REDIS_URL"] = "http://redis.example.com:6379/0" // Wrong scheme
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "Should fail validation with Redis URL having invalid DB number",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				delete(cfg, "FOLKVANG_REDIS_HOST")
				delete(cfg, "FOLKVANG_REDIS_PORT")
				delete(cfg, "FOLKVANG_REDIS_PASSWORD")
				delete(cfg, "FOLKVANG_REDIS_TLS_ENABLED")
				cfg["FOLKVANG_REDIS_URL"] = "redis://redis.example.com:6379/16" // DB 16 > 15
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "Should fail validation with Redis URL having non-numeric DB",
			envVars: func() map[string]string {
				cfg := redisProductionConfig()
				delete(cfg, "FOLKVANG_REDIS_HOST")
				delete(cfg, "FOLKVANG_REDIS_PORT")
				delete(cfg, "FOLKVANG_REDIS_PASSWORD")
				delete(cfg, "FOLKVANG_REDIS_TLS_ENABLED")
				cfg["FOLKVANG_REDIS_URL"] = "redis://redis.example.com:6379/abc" // Non-numeric DB
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "Should fail validation with non-numeric port",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_PORT": "abc",
			}),
			wantErr: true,
		},
		{
			name: "Should fail validation with host containing leading whitespace",
			envVars: redisBackedConfig(map[string]string{
				"FOLKVANG_REDIS_HOST": " localhost",
			}),
			wantErr: true,
		},
		{
			name: "Should skip Redis connection validation when catalog backend is postgres",
			envVars: mergeEnvVars(map[string]string{
				"FOLKVANG_CATALOG_STORE_BACKEND": "postgres",
				// No Redis settings at all.
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Redis.IsConfigured())
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.want != nil {
				tt.want(t, cfg)
			}
		})
	}
}
