package blobstore

import (
	"context"
	"sync"
)

// Compile-time check to verify that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used by tests and ephemeral setups.
// It behaves like the durable backends: unwritten state reads as ErrNotExist
// and reads return a private copy of the blob.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	exists bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns a copy of the last written blob.
func (s *MemoryStore) Read(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists {
		return nil, ErrNotExist
	}

	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Write replaces the stored blob.
func (s *MemoryStore) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.exists = true
	return nil
}
