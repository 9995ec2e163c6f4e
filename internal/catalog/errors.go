package catalog

import "fmt"

// The catalog error taxonomy. Every error is recoverable: a failed operation
// leaves both the in-memory catalog and the durable store untouched, and the
// catalog remains usable afterwards.

// ValidationError reports malformed input to Create or Update. The call is
// rejected; catalog state is unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation referencing a segment id that is not in
// the catalog.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("segment %q not found", e.ID)
}

// StoreUnavailableError reports a durable store failure during persist or
// reload. The wrapped cause is available via errors.Unwrap.
type StoreUnavailableError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("catalog store %s failed: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}
