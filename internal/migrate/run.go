package migrate

import (
	"context"
	"fmt"
)

// Outcome is the terminal state of a migration run.
type Outcome int

const (
	// OutcomeMigrated means the swap succeeded: the data column now uses
	// the structured representation and every backed-up row is present.
	OutcomeMigrated Outcome = iota
	// OutcomeAlreadyMigrated means the data column was already structured;
	// nothing was touched.
	OutcomeAlreadyMigrated
	// OutcomeRestored means the swap failed but the dataset was restored
	// from the snapshot: degraded success, the table is in its original
	// representation.
	OutcomeRestored
	// OutcomeRestoreFailed means both the swap and the restore failed.
	// The dataset may be inconsistent; operator intervention is required.
	OutcomeRestoreFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeMigrated:
		return "migrated"
	case OutcomeAlreadyMigrated:
		return "already-migrated"
	case OutcomeRestored:
		return "restored"
	case OutcomeRestoreFailed:
		return "restore-failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RunOptions configures a migration run.
type RunOptions struct {
	// BackupPath is where the snapshot is written before the swap.
	BackupPath string
	// Strict aborts the run before the swap when any row failed to back
	// up, closing the gap where a skipped row lost in a failed migration
	// would not be restorable.
	Strict bool
}

// RunResult reports the terminal state of a run and how it got there.
// MigrateErr and RestoreErr carry the underlying failures for the degraded
// outcomes; callers decide severity from Outcome, not from the returned
// error, which is reserved for failures before the swap was attempted.
type RunResult struct {
	Outcome    Outcome
	Backup     BackupResult
	Restored   int
	MigrateErr error
	RestoreErr error
}

// Run orchestrates a full migration: backup first, then the swap, with an
// automatic restore from the just-written snapshot if the swap fails.
//
// A non-nil error means the run stopped before mutating anything (probe or
// backup failure, or a strict-mode abort). Once the swap is attempted the
// error is nil and Outcome tells the operator which terminal state the
// dataset is in.
func (m *Migrator) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	var result RunResult

	needed, err := m.NeedsMigration(ctx)
	if err != nil {
		return result, err
	}
	if !needed {
		result.Outcome = OutcomeAlreadyMigrated
		m.logger.Info("data column already structured, nothing to do")
		return result, nil
	}

	backup, err := m.Backup(ctx, opts.BackupPath)
	result.Backup = backup
	if err != nil {
		return result, err
	}
	if opts.Strict && backup.Skipped > 0 {
		return result, fmt.Errorf("strict mode: %d row(s) failed to back up, refusing to migrate", backup.Skipped)
	}

	migrateErr := m.Migrate(ctx)
	if migrateErr == nil {
		result.Outcome = OutcomeMigrated
		return result, nil
	}
	result.MigrateErr = migrateErr

	m.logger.Warn("migration failed, restoring from backup",
		"error", result.MigrateErr, "path", backup.Path)

	restored, err := m.Restore(ctx, backup.Path)
	result.Restored = restored
	if err != nil {
		result.RestoreErr = err
		result.Outcome = OutcomeRestoreFailed
		return result, nil
	}

	result.Outcome = OutcomeRestored
	return result, nil
}
