package migrate

import "errors"

// Common errors returned by migration operations.
//
// ErrRestore is deliberately distinct from ErrMigration: a failed
// representation swap with a successful restore leaves the dataset in its
// original state, while a failed restore requires operator intervention.
var (
	// ErrMigration is returned when any step of the representation swap
	// fails. The swap transaction is rolled back before this is returned,
	// so the live table is unchanged.
	ErrMigration = errors.New("representation migration failed")

	// ErrRestore is returned when restoring from a backup snapshot fails.
	// This is the only condition requiring operator intervention.
	ErrRestore = errors.New("restore from backup failed")
)
