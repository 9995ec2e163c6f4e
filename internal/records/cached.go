package records

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/folkvang/folkvang/internal/segment"
)

// Compile-time check to verify that CachedSource implements Source.
var _ Source = (*CachedSource)(nil)

// snapshotKey is the single cache entry; the collection is cached as a whole.
const snapshotKey = "snapshot"

// CachedSource decorates another Source with a short-TTL in-memory cache
// (otter, S3-FIFO), so bursty API traffic does not re-query the database on
// every request. The TTL bounds the staleness of what callers observe.
type CachedSource struct {
	inner Source
	cache otter.Cache[string, []segment.Customer]
}

// NewCachedSource wraps the given source. The cache holds the one snapshot
// entry; capacity exists only because otter requires a positive bound. It
// must be at least 10, since otter sizes its admission queue at 10% of
// capacity and rejects every entry when that rounds down to zero.
func NewCachedSource(inner Source, ttl time.Duration) (*CachedSource, error) {
	if inner == nil {
		panic("records: inner source cannot be nil")
	}

	cache, err := otter.MustBuilder[string, []segment.Customer](16).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, err
	}

	return &CachedSource{inner: inner, cache: cache}, nil
}

// Snapshot returns the cached collection when fresh, falling through to the
// inner source otherwise.
func (s *CachedSource) Snapshot(ctx context.Context) ([]segment.Customer, error) {
	if cached, ok := s.cache.Get(snapshotKey); ok {
		return cached, nil
	}

	customers, err := s.inner.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.Set(snapshotKey, customers)
	return customers, nil
}

// Invalidate drops the cached snapshot so the next read is fresh.
func (s *CachedSource) Invalidate() {
	s.cache.Delete(snapshotKey)
}

// Close shuts down the cache's background cleanup goroutines.
func (s *CachedSource) Close() {
	s.cache.Close()
}
