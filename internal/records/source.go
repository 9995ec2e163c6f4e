// Package records supplies the customer collection the segmentation engine
// evaluates against. The engine treats the collection as a read-only snapshot
// fetched on demand; it never mutates what a Source returns.
package records

import (
	"context"

	"github.com/folkvang/folkvang/internal/segment"
)

// Source is the record source boundary. Implementations must return a
// snapshot the caller may hold onto: subsequent mutations of the underlying
// data must not be visible through a previously returned slice.
type Source interface {
	// Snapshot returns the current customer collection.
	Snapshot(ctx context.Context) ([]segment.Customer, error)
}
