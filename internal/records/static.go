package records

import (
	"context"

	"github.com/folkvang/folkvang/internal/segment"
)

// Compile-time check to verify that StaticSource implements Source.
var _ Source = (*StaticSource)(nil)

// StaticSource serves a fixed customer collection. It backs unit tests and
// demo setups that do not want a database.
type StaticSource struct {
	customers []segment.Customer
}

// NewStaticSource creates a source over the given fixtures.
func NewStaticSource(customers []segment.Customer) *StaticSource {
	return &StaticSource{customers: customers}
}

// Snapshot returns a copy of the fixture collection.
func (s *StaticSource) Snapshot(_ context.Context) ([]segment.Customer, error) {
	out := make([]segment.Customer, len(s.customers))
	copy(out, s.customers)
	return out, nil
}
