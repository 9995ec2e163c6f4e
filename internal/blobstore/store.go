// Package blobstore provides the durable store boundary for the segment
// catalog. The catalog is persisted as one opaque serialized blob, written
// and read as a single unit; there are no record-level writes.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read when the store has never been written.
// Callers treat it as an empty catalog, not a failure.
var ErrNotExist = errors.New("blobstore: catalog blob does not exist")

// Store is the contract for durable catalog persistence. Implementations
// must make Write atomic: a failed write leaves the previous blob intact.
type Store interface {
	// Read returns the last written blob, or ErrNotExist if none.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the blob with the given data.
	Write(ctx context.Context, data []byte) error
}
