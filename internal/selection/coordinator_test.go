package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkvang/folkvang/internal/blobstore"
	"github.com/folkvang/folkvang/internal/catalog"
	"github.com/folkvang/folkvang/internal/records"
	"github.com/folkvang/folkvang/internal/segment"
)

type fakeRule struct {
	ref      string
	criteria segment.Criteria
}

func (r fakeRule) Ref() string                           { return r.ref }
func (r fakeRule) DisplayName() string                   { return r.ref }
func (r fakeRule) CriteriaAt(time.Time) segment.Criteria { return r.criteria }

type failingSource struct{}

func (failingSource) Snapshot(context.Context) ([]segment.Customer, error) {
	return nil, errors.New("db down")
}

func fixtures() []segment.Customer {
	return []segment.Customer{
		{ID: "c-1", Status: segment.StatusVIP, LifetimeValue: 9000},
		{ID: "c-2", Status: segment.StatusLead, LifetimeValue: 100},
		{ID: "c-3", Status: segment.StatusVIP, LifetimeValue: 4000},
	}
}

func TestCoordinator_Select(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should resolve members and set active rule", func(t *testing.T) {
		t.Parallel()

		c := New(records.NewStaticSource(fixtures()), nil)
		rule := fakeRule{ref: "r-1", criteria: segment.Criteria{Status: []segment.Status{segment.StatusVIP}}}

		matched, err := c.Select(ctx, rule)
		require.NoError(t, err)

		require.Len(t, matched, 2)
		assert.Equal(t, "c-1", matched[0].ID)
		assert.Equal(t, "c-3", matched[1].ID)
		assert.Equal(t, "r-1", c.Active().Ref())
	})

	t.Run("Should replace previous selection", func(t *testing.T) {
		t.Parallel()

		c := New(records.NewStaticSource(fixtures()), nil)

		_, err := c.Select(ctx, fakeRule{ref: "r-1"})
		require.NoError(t, err)
		_, err = c.Select(ctx, fakeRule{ref: "r-2"})
		require.NoError(t, err)

		assert.Equal(t, "r-2", c.Active().Ref())
	})

	t.Run("Should keep previous selection when snapshot fails", func(t *testing.T) {
		t.Parallel()

		c := New(records.NewStaticSource(fixtures()), nil)
		_, err := c.Select(ctx, fakeRule{ref: "r-1"})
		require.NoError(t, err)

		c.source = failingSource{}
		_, err = c.Select(ctx, fakeRule{ref: "r-2"})
		require.Error(t, err)

		assert.Equal(t, "r-1", c.Active().Ref())
	})

	t.Run("Should notify subscribers synchronously", func(t *testing.T) {
		t.Parallel()

		c := New(records.NewStaticSource(fixtures()), nil)

		var gotRule segment.Rule
		var gotMatched []segment.Customer
		c.Subscribe(NotifierFunc(func(rule segment.Rule, matched []segment.Customer) {
			gotRule = rule
			gotMatched = matched
		}))

		rule := fakeRule{ref: "r-1", criteria: segment.Criteria{Status: []segment.Status{segment.StatusVIP}}}
		_, err := c.Select(ctx, rule)
		require.NoError(t, err)

		require.NotNil(t, gotRule)
		assert.Equal(t, "r-1", gotRule.Ref())
		assert.Len(t, gotMatched, 2)
	})
}

func TestCoordinator_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(records.NewStaticSource(fixtures()), nil)

	notifications := 0
	c.Subscribe(NotifierFunc(func(rule segment.Rule, _ []segment.Customer) {
		if rule == nil {
			notifications++
		}
	}))

	_, err := c.Select(ctx, fakeRule{ref: "r-1"})
	require.NoError(t, err)

	c.Clear()
	assert.Nil(t, c.Active())
	assert.Equal(t, 1, notifications)

	// Clearing an empty selection stays silent.
	c.Clear()
	assert.Equal(t, 1, notifications)
}

func TestCoordinator_HandleSegmentDeleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should clear selection referencing the deleted segment", func(t *testing.T) {
		t.Parallel()

		c := New(records.NewStaticSource(fixtures()), nil)
		_, err := c.Select(ctx, fakeRule{ref: "seg-1"})
		require.NoError(t, err)

		c.HandleSegmentDeleted("seg-1")
		assert.Nil(t, c.Active())
	})

	t.Run("Should ignore deletes of other segments", func(t *testing.T) {
		t.Parallel()

		c := New(records.NewStaticSource(fixtures()), nil)
		_, err := c.Select(ctx, fakeRule{ref: "seg-1"})
		require.NoError(t, err)

		c.HandleSegmentDeleted("seg-2")
		require.NotNil(t, c.Active())
		assert.Equal(t, "seg-1", c.Active().Ref())
	})
}

// Deleting the selected segment through the catalog clears the selection
// before the delete completes.
func TestCoordinator_ClearedByCatalogDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	source := records.NewStaticSource(fixtures())

	cat := catalog.New(blobstore.NewMemoryStore(), source, nil)
	coord := New(source, nil)
	cat.OnDelete(coord.HandleSegmentDeleted)

	seg, err := cat.Create(ctx, "VIPs", "", segment.Criteria{Status: []segment.Status{segment.StatusVIP}})
	require.NoError(t, err)

	_, err = coord.Select(ctx, seg)
	require.NoError(t, err)
	require.NotNil(t, coord.Active())

	require.NoError(t, cat.Delete(ctx, seg.ID))
	assert.Nil(t, coord.Active())
}
