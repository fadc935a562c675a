package store

import "errors"

// Common errors returned by store operations.
//
// These errors can be checked using errors.Is() for proper error handling:
//
//	if errors.Is(err, store.ErrSerialization) {
//	    // Handle a payload that cannot be encoded or decoded
//	}
var (
	// ErrConnection is returned when a scoped connection cannot be
	// obtained from the provider. Fatal - surfaced to the caller.
	ErrConnection = errors.New("cannot obtain database connection")

	// ErrSerialization is returned when an entity payload cannot be
	// encoded to or decoded from its canonical JSON form.
	ErrSerialization = errors.New("cannot encode or decode entity payload")

	// ErrConstraint is returned on a primary-key or other constraint
	// violation outside the upsert path.
	ErrConstraint = errors.New("constraint violation")
)
