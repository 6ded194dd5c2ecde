package database

import "errors"

var (
	// ErrNotFound is returned when a feed or item lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity is returned when the store reports a uniqueness conflict
	// but the conflicting row cannot be read back. This indicates a corrupted
	// store and is not recoverable by retrying.
	ErrIntegrity = errors.New("store integrity violation")
)
