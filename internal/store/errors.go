package store

import "errors"

// Sentinel errors surfaced to callers. They are terminal for the call that
// raised them; this layer performs no retries.
var (
	// ErrFlagNotFound is returned when an operation references a flag name
	// absent from the store.
	ErrFlagNotFound = errors.New("flag not found")

	// ErrFlagAlreadyExists is returned by create when the name is taken.
	// The database uniqueness constraint is the race-safety boundary for
	// concurrent creates; this layer only translates the violation.
	ErrFlagAlreadyExists = errors.New("flag already exists")
)
