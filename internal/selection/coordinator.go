// Package selection tracks which single rule is currently selected and
// resolves its member list on demand. Selection is transient process state;
// it is never persisted and always starts empty.
package selection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/folkvang/folkvang/internal/observability"
	"github.com/folkvang/folkvang/internal/records"
	"github.com/folkvang/folkvang/internal/segment"
)

// Notifier observes selection changes. SelectionChanged is called
// synchronously from Select and Clear; a nil rule means the selection was
// cleared.
type Notifier interface {
	SelectionChanged(rule segment.Rule, matched []segment.Customer)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(rule segment.Rule, matched []segment.Customer)

func (f NotifierFunc) SelectionChanged(rule segment.Rule, matched []segment.Customer) {
	f(rule, matched)
}

// Coordinator holds the active selection. At most one rule is selected at a
// time; selecting a new rule replaces the previous one.
type Coordinator struct {
	mu     sync.Mutex
	active segment.Rule

	source    records.Source
	notifiers []Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a coordinator over the given record source.
// If logger is nil, it defaults to slog.Default().
func New(source records.Source, logger *slog.Logger) *Coordinator {
	if source == nil {
		panic("selection: record source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a notifier for subsequent selection changes.
func (c *Coordinator) Subscribe(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifiers = append(c.notifiers, n)
}

// Select makes the given rule the active selection, resolves its member list
// against the current record collection, and notifies subscribers. On a
// snapshot failure the previous selection is kept and the error returned.
func (c *Coordinator) Select(ctx context.Context, rule segment.Rule) ([]segment.Customer, error) {
	customers, err := c.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	kind := "segment"
	if segment.IsQuickRef(rule.Ref()) {
		kind = "quick"
	}

	start := time.Now()
	matched := segment.Filter(customers, rule.CriteriaAt(c.now()))
	observability.EvalDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	c.mu.Lock()
	c.active = rule
	notifiers := c.snapshotNotifiers()
	c.mu.Unlock()

	for _, n := range notifiers {
		n.SelectionChanged(rule, matched)
	}

	c.logger.Info("selection changed",
		slog.String("rule", rule.Ref()),
		slog.Int("matched", len(matched)),
	)
	return matched, nil
}

// Clear drops the active selection. Subscribers receive a nil rule. Clearing
// an already-empty selection is a no-op.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return
	}
	c.active = nil
	notifiers := c.snapshotNotifiers()
	c.mu.Unlock()

	for _, n := range notifiers {
		n.SelectionChanged(nil, nil)
	}

	c.logger.Info("selection cleared")
}

// Active returns the currently selected rule, or nil when nothing is
// selected.
func (c *Coordinator) Active() segment.Rule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// HandleSegmentDeleted clears the selection if it references the deleted
// segment. Registered as a catalog delete hook so the selection never
// outlives its segment.
func (c *Coordinator) HandleSegmentDeleted(id string) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == nil || active.Ref() != id {
		return
	}
	c.Clear()
}

// snapshotNotifiers copies the subscriber list so notifications run outside
// the lock. Callers must hold c.mu.
func (c *Coordinator) snapshotNotifiers() []Notifier {
	out := make([]Notifier, len(c.notifiers))
	copy(out, c.notifiers)
	return out
}
