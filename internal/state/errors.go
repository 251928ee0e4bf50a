package state

import "errors"

// Domain errors for state operations.
var (
	// ErrInvalidID is returned when a state id has fewer than four segments
	// or an empty segment.
	ErrInvalidID = errors.New("invalid state id")

	// ErrNoSnapshot is returned by a Storage that holds no document yet.
	ErrNoSnapshot = errors.New("no state snapshot")

	// ErrStorageFailed is returned when a snapshot cannot be read or written.
	ErrStorageFailed = errors.New("state storage failed")
)
