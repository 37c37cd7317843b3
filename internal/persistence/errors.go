package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrCorrupt is returned when a stored value cannot be decoded into the requested type.
	ErrCorrupt = errors.New("persistence: corrupt value")
)
