package blobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/folkvang/folkvang/internal/validation"
)

// Compile-time check to verify that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// catalogKey namespaces the catalog blob in the shared Redis keyspace.
const catalogKey = "folkvang:catalog"

// RedisStore persists the catalog blob under a single Redis key. It is the
// lightweight alternative to PostgresStore for deployments that already run
// Redis and do not want a relational database for one blob.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	validation.AssertNotNil(client, "redis client")
	return &RedisStore{client: client}
}

// Read fetches the catalog blob.
func (s *RedisStore) Read(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read catalog blob: %w", err)
	}

	return data, nil
}

// Write replaces the catalog blob. No TTL: the catalog is durable state,
// not a cache entry.
func (s *RedisStore) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, catalogKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write catalog blob: %w", err)
	}

	return nil
}
