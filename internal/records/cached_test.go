package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkvang/folkvang/internal/segment"
)

// countingSource tracks how many times the underlying collection was fetched.
type countingSource struct {
	calls     int
	customers []segment.Customer
	err       error
}

func (s *countingSource) Snapshot(_ context.Context) ([]segment.Customer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.customers, nil
}

func TestCachedSource_ServesFromCacheWithinTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingSource{customers: []segment.Customer{{ID: "c-1"}}}

	src, err := NewCachedSource(inner, time.Minute)
	require.NoError(t, err)
	defer src.Close()

	first, err := src.Snapshot(ctx)
	require.NoError(t, err)
	second, err := src.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls, "second read should be served from cache")
}

func TestCachedSource_InvalidateForcesFreshRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingSource{customers: []segment.Customer{{ID: "c-1"}}}

	src, err := NewCachedSource(inner, time.Minute)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Snapshot(ctx)
	require.NoError(t, err)

	src.Invalidate()

	_, err = src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSource_DoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingSource{err: errors.New("db down")}

	src, err := NewCachedSource(inner, time.Minute)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Snapshot(ctx)
	require.Error(t, err)

	// Recovery: once the inner source works again, the next read succeeds.
	inner.err = nil
	inner.customers = []segment.Customer{{ID: "c-1"}}

	got, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, inner.calls)
}
