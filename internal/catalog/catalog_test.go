package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkvang/folkvang/internal/blobstore"
	"github.com/folkvang/folkvang/internal/records"
	"github.com/folkvang/folkvang/internal/segment"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store blobstore.Store, customers []segment.Customer) *Service {
	t.Helper()

	svc := New(store, records.NewStaticSource(customers), nil)
	svc.now = func() time.Time { return testNow }

	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("seg-%d", seq)
	}
	return svc
}

func testCustomers() []segment.Customer {
	return []segment.Customer{
		{ID: "c-1", Status: segment.StatusCustomer, TotalSpent: 12000, LifetimeValue: 12000},
		{ID: "c-2", Status: segment.StatusVIP, TotalSpent: 9000, LifetimeValue: 9000},
		{ID: "c-3", Status: segment.StatusLead, TotalSpent: 500, LifetimeValue: 500},
	}
}

// failingStore accepts reads but rejects writes, for atomicity tests.
type failingStore struct {
	blobstore.Store
	failWrites bool
}

func (s *failingStore) Write(ctx context.Context, data []byte) error {
	if s.failWrites {
		return errors.New("store down")
	}
	return s.Store.Write(ctx, data)
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should reject empty name", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		_, err := svc.Create(ctx, "   ", "", segment.Criteria{})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "name", vErr.Field)
		assert.Empty(t, svc.List(ctx))
	})

	t.Run("Should compute aggregate snapshot at creation", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		minSpent := 5000.0
		seg, err := svc.Create(ctx, "Big spenders", "spent over 5k", segment.Criteria{MinSpent: &minSpent})
		require.NoError(t, err)

		assert.Equal(t, "seg-1", seg.ID)
		assert.Equal(t, 2, seg.CustomerCount)
		assert.InDelta(t, 21000.0, seg.TotalValue, 1e-9)
		assert.InDelta(t, 10500.0, seg.AverageValue, 1e-9)
		assert.Equal(t, testNow, seg.CreatedAt)
		assert.Equal(t, testNow, seg.UpdatedAt)
	})

	t.Run("Should leave catalog unchanged when persist fails", func(t *testing.T) {
		t.Parallel()

		store := &failingStore{Store: blobstore.NewMemoryStore(), failWrites: true}
		svc := newTestService(t, store, testCustomers())

		_, err := svc.Create(ctx, "Doomed", "", segment.Criteria{})

		var sErr *StoreUnavailableError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, "write", sErr.Op)
		assert.Empty(t, svc.List(ctx))

		// The store itself was never written either.
		_, readErr := store.Store.Read(ctx)
		assert.ErrorIs(t, readErr, blobstore.ErrNotExist)
	})
}

func TestService_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should return NotFoundError for unknown id", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		name := "renamed"
		_, err := svc.Update(ctx, "missing", Update{Name: &name})

		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, "missing", nfErr.ID)
	})

	t.Run("Should recompute aggregates when criteria change", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		seg, err := svc.Create(ctx, "Everyone", "", segment.Criteria{})
		require.NoError(t, err)
		assert.Equal(t, 3, seg.CustomerCount)

		updated, err := svc.Update(ctx, seg.ID, Update{
			Criteria: &segment.Criteria{Status: []segment.Status{segment.StatusVIP}},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, updated.CustomerCount)
		assert.InDelta(t, 9000.0, updated.TotalValue, 1e-9)
		assert.Equal(t, "Everyone", updated.Name, "unchanged fields keep their values")
	})

	t.Run("Should leave segment unchanged when persist fails", func(t *testing.T) {
		t.Parallel()

		store := &failingStore{Store: blobstore.NewMemoryStore()}
		svc := newTestService(t, store, testCustomers())

		seg, err := svc.Create(ctx, "Original", "", segment.Criteria{})
		require.NoError(t, err)

		store.failWrites = true

		name := "renamed"
		_, err = svc.Update(ctx, seg.ID, Update{Name: &name})

		var sErr *StoreUnavailableError
		require.ErrorAs(t, err, &sErr)

		got, err := svc.Get(ctx, seg.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Name)
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should return NotFoundError for unknown id", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		err := svc.Delete(ctx, "missing")

		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
	})

	t.Run("Should remove segment and fire delete hooks", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		seg, err := svc.Create(ctx, "Victim", "", segment.Criteria{})
		require.NoError(t, err)

		var hooked []string
		svc.OnDelete(func(id string) { hooked = append(hooked, id) })

		require.NoError(t, svc.Delete(ctx, seg.ID))

		assert.Equal(t, []string{seg.ID}, hooked)

		_, err = svc.Get(ctx, seg.ID)
		var nfErr *NotFoundError
		assert.ErrorAs(t, err, &nfErr)
	})

	t.Run("Should keep segment when persist fails", func(t *testing.T) {
		t.Parallel()

		store := &failingStore{Store: blobstore.NewMemoryStore()}
		svc := newTestService(t, store, testCustomers())

		seg, err := svc.Create(ctx, "Survivor", "", segment.Criteria{})
		require.NoError(t, err)

		store.failWrites = true
		err = svc.Delete(ctx, seg.ID)

		var sErr *StoreUnavailableError
		require.ErrorAs(t, err, &sErr)

		_, err = svc.Get(ctx, seg.ID)
		assert.NoError(t, err)
	})
}

func TestService_Refresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should return NotFoundError for unknown id", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		_, err := svc.Refresh(ctx, "missing")

		var nfErr *NotFoundError
		require.ErrorAs(t, err, &nfErr)
	})

	t.Run("Should recompute snapshot against current records and bump UpdatedAt", func(t *testing.T) {
		t.Parallel()

		store := blobstore.NewMemoryStore()
		svc := newTestService(t, store, testCustomers())

		seg, err := svc.Create(ctx, "Everyone", "", segment.Criteria{})
		require.NoError(t, err)
		assert.Equal(t, 3, seg.CustomerCount)

		// The record collection grows after creation.
		svc.source = records.NewStaticSource(append(testCustomers(),
			segment.Customer{ID: "c-4", Status: segment.StatusCustomer, LifetimeValue: 100}))

		later := testNow.Add(time.Hour)
		svc.now = func() time.Time { return later }

		refreshed, err := svc.Refresh(ctx, seg.ID)
		require.NoError(t, err)

		assert.Equal(t, 4, refreshed.CustomerCount)
		assert.Equal(t, later, refreshed.UpdatedAt)
		assert.Equal(t, testNow, refreshed.CreatedAt)
	})
}

func TestService_List(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

	for _, name := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, name, "", segment.Criteria{})
		require.NoError(t, err)
	}

	list := svc.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, "second", list[1].Name)
	assert.Equal(t, "third", list[2].Name)

	// The returned slice is a copy; mutating it does not touch the catalog.
	list[0].Name = "mutated"
	assert.Equal(t, "first", svc.List(ctx)[0].Name)
}

func TestService_Reload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Should load empty catalog from never-written store", func(t *testing.T) {
		t.Parallel()

		svc := newTestService(t, blobstore.NewMemoryStore(), testCustomers())

		require.NoError(t, svc.Reload(ctx))
		assert.Empty(t, svc.List(ctx))
	})

	t.Run("Should round-trip the catalog through the store", func(t *testing.T) {
		t.Parallel()

		store := blobstore.NewMemoryStore()
		first := newTestService(t, store, testCustomers())

		minSpent := 5000.0
		created, err := first.Create(ctx, "Big spenders", "spent over 5k", segment.Criteria{MinSpent: &minSpent})
		require.NoError(t, err)

		// A fresh service over the same store sees the identical catalog.
		second := newTestService(t, store, testCustomers())
		require.NoError(t, second.Reload(ctx))

		list := second.List(ctx)
		require.Len(t, list, 1)
		assert.Equal(t, created, list[0])
	})

	t.Run("Should reject unknown blob version", func(t *testing.T) {
		t.Parallel()

		store := blobstore.NewMemoryStore()
		require.NoError(t, store.Write(ctx, []byte(`{"version":99,"segments":[]}`)))

		svc := newTestService(t, store, testCustomers())
		assert.Error(t, svc.Reload(ctx))
	})
}

func TestSegment_ImplementsRule(t *testing.T) {
	t.Parallel()

	minSpent := 100.0
	seg := Segment{
		ID:       "seg-1",
		Name:     "Spenders",
		Criteria: segment.Criteria{MinSpent: &minSpent},
	}

	var rule segment.Rule = seg
	assert.Equal(t, "seg-1", rule.Ref())
	assert.Equal(t, "Spenders", rule.DisplayName())
	assert.Equal(t, seg.Criteria, rule.CriteriaAt(testNow))
}
