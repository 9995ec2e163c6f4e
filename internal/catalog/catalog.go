// Package catalog owns the durable collection of named customer segments.
// It holds the in-memory catalog list, persists it as one blob through the
// blobstore boundary, and exposes the full segment lifecycle: create, update,
// delete, list, reload, refresh. All mutable catalog state lives here.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/folkvang/folkvang/internal/blobstore"
	"github.com/folkvang/folkvang/internal/observability"
	"github.com/folkvang/folkvang/internal/records"
	"github.com/folkvang/folkvang/internal/segment"
)

// envelopeVersion tags the persisted blob format for forward compatibility.
const envelopeVersion = 1

// Segment is a persisted, named criteria definition plus a cached aggregate
// snapshot. The snapshot (CustomerCount, TotalValue, AverageValue) reflects
// the record collection at the moment the segment was created, updated, or
// explicitly refreshed; it is never recomputed on read or load. Callers
// needing freshness use Refresh or the live members/preview paths.
type Segment struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Criteria    segment.Criteria `json:"criteria"`

	// Cached aggregate snapshot. AverageValue == TotalValue/CustomerCount
	// when CustomerCount > 0, else 0.
	CustomerCount int     `json:"customer_count"`
	TotalValue    float64 `json:"total_value"`
	AverageValue  float64 `json:"average_value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref implements segment.Rule.
func (s Segment) Ref() string { return s.ID }

// DisplayName implements segment.Rule.
func (s Segment) DisplayName() string { return s.Name }

// CriteriaAt implements segment.Rule. A persisted segment's criteria are
// absolute; the evaluation time is ignored.
func (s Segment) CriteriaAt(time.Time) segment.Criteria { return s.Criteria }

// Update carries the editable fields for the update operation. Pointers
// distinguish "leave unchanged" (nil) from an explicit new value.
type Update struct {
	Name        *string
	Description *string
	Criteria    *segment.Criteria
}

// envelope is the persisted blob shape.
type envelope struct {
	Version  int       `json:"version"`
	Segments []Segment `json:"segments"`
}

// Service is the rule catalog. All of its operations run their full
// read-modify-persist cycle before returning, so sequential calls from one
// process are strictly ordered. Cross-process writers sharing the store are
// not coordinated: last write observed by this process wins.
type Service struct {
	mu       sync.Mutex
	segments []Segment

	store  blobstore.Store
	source records.Source
	logger *slog.Logger

	// Injected for deterministic tests.
	now   func() time.Time
	newID func() string

	// deleteHooks run while a delete is in flight, before it completes.
	// The selection coordinator registers here to drop dangling references.
	deleteHooks []func(id string)
}

// New creates a catalog over the given durable store and record source.
// If logger is nil, it defaults to slog.Default().
func New(store blobstore.Store, source records.Source, logger *slog.Logger) *Service {
	if store == nil {
		panic("catalog: blob store cannot be nil")
	}
	if source == nil {
		panic("catalog: record source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		source: source,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// OnDelete registers a hook invoked with the segment id whenever a segment is
// deleted. Hooks run before the delete returns, so observers never see a
// dangling reference.
func (s *Service) OnDelete(hook func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteHooks = append(s.deleteHooks, hook)
}

// Create validates the name, computes the initial aggregate snapshot from the
// current record collection, and appends the new segment. The whole catalog
// is persisted as one unit; on store failure the in-memory list is untouched
// and the error is returned as *StoreUnavailableError.
func (s *Service) Create(ctx context.Context, name, description string, criteria segment.Criteria) (Segment, error) {
	if strings.TrimSpace(name) == "" {
		s.countOp("create", errOutcome)
		return Segment{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	stats, err := s.evaluate(ctx, criteria)
	if err != nil {
		s.countOp("create", errOutcome)
		return Segment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	seg := Segment{
		ID:            s.newID(),
		Name:          name,
		Description:   description,
		Criteria:      criteria,
		CustomerCount: stats.Count,
		TotalValue:    stats.TotalValue,
		AverageValue:  stats.AverageValue,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	next := append(cloneSegments(s.segments), seg)
	if err := s.persist(ctx, next); err != nil {
		s.countOp("create", errOutcome)
		return Segment{}, err
	}
	s.segments = next

	s.countOp("create", okOutcome)
	s.logger.Info("segment created",
		slog.String("segment_id", seg.ID),
		slog.String("name", seg.Name),
		slog.Int("customer_count", seg.CustomerCount),
	)
	return seg, nil
}

// Update replaces the editable fields of an existing segment, recomputes the
// aggregate snapshot, and bumps UpdatedAt. Same atomicity contract as Create.
func (s *Service) Update(ctx context.Context, id string, changes Update) (Segment, error) {
	if changes.Name != nil && strings.TrimSpace(*changes.Name) == "" {
		s.countOp("update", errOutcome)
		return Segment{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		s.countOp("update", errOutcome)
		return Segment{}, &NotFoundError{ID: id}
	}
	seg := s.segments[idx]
	s.mu.Unlock()

	if changes.Name != nil {
		seg.Name = *changes.Name
	}
	if changes.Description != nil {
		seg.Description = *changes.Description
	}
	if changes.Criteria != nil {
		seg.Criteria = *changes.Criteria
	}

	// Recompute outside the lock; the snapshot fetch may hit the database.
	stats, err := s.evaluate(ctx, seg.Criteria)
	if err != nil {
		s.countOp("update", errOutcome)
		return Segment{}, err
	}
	seg.CustomerCount = stats.Count
	seg.TotalValue = stats.TotalValue
	seg.AverageValue = stats.AverageValue

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-locate: the catalog may have changed while evaluating.
	idx = s.indexOf(id)
	if idx < 0 {
		s.countOp("update", errOutcome)
		return Segment{}, &NotFoundError{ID: id}
	}
	seg.UpdatedAt = s.now().UTC()

	next := cloneSegments(s.segments)
	next[idx] = seg
	if err := s.persist(ctx, next); err != nil {
		s.countOp("update", errOutcome)
		return Segment{}, err
	}
	s.segments = next

	s.countOp("update", okOutcome)
	s.logger.Info("segment updated", slog.String("segment_id", seg.ID))
	return seg, nil
}

// Delete removes a segment from the catalog. Delete hooks (e.g. clearing the
// active selection) run before the operation completes. Same atomicity
// contract as Create.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		s.countOp("delete", errOutcome)
		return &NotFoundError{ID: id}
	}

	next := cloneSegments(s.segments)
	next = append(next[:idx], next[idx+1:]...)
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		s.countOp("delete", errOutcome)
		return err
	}

	// Notify observers before the delete is visible as completed, so the
	// selection coordinator clears first.
	hooks := make([]func(string), len(s.deleteHooks))
	copy(hooks, s.deleteHooks)
	s.segments = next
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(id)
	}

	s.countOp("delete", okOutcome)
	s.logger.Info("segment deleted", slog.String("segment_id", id))
	return nil
}

// Refresh recomputes a segment's aggregate snapshot against the current
// record collection, bumps UpdatedAt, and persists. This is the explicit
// freshness operation; plain reads never recompute.
func (s *Service) Refresh(ctx context.Context, id string) (Segment, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		s.countOp("refresh", errOutcome)
		return Segment{}, &NotFoundError{ID: id}
	}
	seg := s.segments[idx]
	s.mu.Unlock()

	stats, err := s.evaluate(ctx, seg.Criteria)
	if err != nil {
		s.countOp("refresh", errOutcome)
		return Segment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx = s.indexOf(id)
	if idx < 0 {
		s.countOp("refresh", errOutcome)
		return Segment{}, &NotFoundError{ID: id}
	}

	seg = s.segments[idx]
	seg.CustomerCount = stats.Count
	seg.TotalValue = stats.TotalValue
	seg.AverageValue = stats.AverageValue
	seg.UpdatedAt = s.now().UTC()

	next := cloneSegments(s.segments)
	next[idx] = seg
	if err := s.persist(ctx, next); err != nil {
		s.countOp("refresh", errOutcome)
		return Segment{}, err
	}
	s.segments = next

	s.countOp("refresh", okOutcome)
	return seg, nil
}

// Get returns the segment with the given id.
func (s *Service) Get(_ context.Context, id string) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Segment{}, &NotFoundError{ID: id}
	}
	return s.segments[idx], nil
}

// List returns all segments in insertion order (oldest first). Read-only,
// no side effects; the returned slice is the caller's to keep.
func (s *Service) List(_ context.Context) []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSegments(s.segments)
}

// Reload re-reads the catalog from the durable store, replacing the
// in-memory list. Used at process start, or to pick up changes written by
// another process sharing the store. A never-written store loads as an empty
// catalog.
func (s *Service) Reload(ctx context.Context) error {
	start := time.Now()
	data, err := s.store.Read(ctx)
	observability.PersistDuration.WithLabelValues("read").Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, blobstore.ErrNotExist) {
			s.mu.Lock()
			s.segments = nil
			s.mu.Unlock()
			s.countOp("reload", okOutcome)
			return nil
		}
		s.countOp("reload", errOutcome)
		return &StoreUnavailableError{Op: "read", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.countOp("reload", errOutcome)
		return fmt.Errorf("failed to decode catalog blob: %w", err)
	}
	if env.Version != envelopeVersion {
		s.countOp("reload", errOutcome)
		return fmt.Errorf("unsupported catalog blob version %d", env.Version)
	}

	s.mu.Lock()
	s.segments = env.Segments
	s.mu.Unlock()

	s.countOp("reload", okOutcome)
	s.logger.Info("catalog reloaded", slog.Int("segments", len(env.Segments)))
	return nil
}

// --- internals ---

const (
	okOutcome  = "success"
	errOutcome = "error"
)

// evaluate fetches the current record snapshot and aggregates the matching
// subset for the given criteria.
func (s *Service) evaluate(ctx context.Context, criteria segment.Criteria) (segment.Stats, error) {
	customers, err := s.source.Snapshot(ctx)
	if err != nil {
		return segment.Stats{}, fmt.Errorf("failed to load customer snapshot: %w", err)
	}

	start := time.Now()
	matched := segment.Filter(customers, criteria)
	stats := segment.Aggregate(matched, customers)
	observability.EvalDuration.WithLabelValues("segment").Observe(time.Since(start).Seconds())

	return stats, nil
}

// persist serializes the candidate list and writes it to the durable store
// as one unit. Callers only commit the list to memory when persist succeeds.
func (s *Service) persist(ctx context.Context, segments []Segment) error {
	env := envelope{Version: envelopeVersion, Segments: segments}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode catalog blob: %w", err)
	}

	start := time.Now()
	writeErr := s.store.Write(ctx, data)
	observability.PersistDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())

	if writeErr != nil {
		return &StoreUnavailableError{Op: "write", Err: writeErr}
	}
	return nil
}

// indexOf returns the position of the segment with the given id, or -1.
// Callers must hold s.mu.
func (s *Service) indexOf(id string) int {
	for i := range s.segments {
		if s.segments[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) countOp(op, outcome string) {
	observability.CatalogOpsTotal.WithLabelValues(op, outcome).Inc()
}

func cloneSegments(in []Segment) []Segment {
	out := make([]Segment, len(in))
	copy(out, in)
	return out
}
