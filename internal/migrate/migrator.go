// Package migrate converts the entities table's data column from opaque
// text to the engine's structured JSON representation without data loss.
//
// The migrator is a one-shot operational tool. It works directly against
// the connection provider, not through the entity store, so it functions
// even while the store's representation assumptions are mid-transition.
// It is never run concurrently with live traffic.
//
// The safety net is explicit: every run writes a snapshot first, the swap
// itself is a single transaction over a shadow table, and a failed swap
// triggers an automatic restore from the just-written snapshot. Run
// reports which terminal state the dataset ended up in, so an operator
// always knows whether it is original, migrated, or inconsistent.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crewvault/crewvault/internal/db"
	"github.com/crewvault/crewvault/internal/store"
)

// Migrator performs the text-to-JSON representation change.
type Migrator struct {
	db     *db.DB
	logger *slog.Logger
}

// New builds a migrator over the given connection provider.
// A nil logger falls back to slog.Default().
func New(database *db.DB, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{db: database, logger: logger}
}

// BackupResult reports what a backup pass wrote.
type BackupResult struct {
	Path    string
	Saved   int
	Skipped int
}

// NeedsMigration reports whether the data column still uses the text
// representation.
func (m *Migrator) NeedsMigration(ctx context.Context) (bool, error) {
	rep, err := m.db.DataRepresentation(ctx)
	if err != nil {
		return false, err
	}
	return rep != db.RepJSON, nil
}

// Backup reads every row, decodes payloads from the current
// representation, and writes a snapshot file in the export format.
//
// Rows whose payload fails to decode are skipped and logged rather than
// failing the backup. This is a deliberate best-effort policy: the
// migration proceeds only over rows that backed up cleanly, and a skipped
// row lost in a failed migration is not restorable. Callers that cannot
// accept that check Skipped before migrating.
func (m *Migrator) Backup(ctx context.Context, path string) (BackupResult, error) {
	result := BackupResult{Path: path}

	rep, err := m.db.DataRepresentation(ctx)
	if err != nil {
		return result, err
	}

	conn, err := m.db.Acquire(ctx)
	if err != nil {
		return result, err
	}
	defer conn.Close()

	query := fmt.Sprintf(
		`SELECT id, entity_type, %s FROM entities ORDER BY id`,
		m.db.Dialect().DataSelectExpr(rep))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return result, fmt.Errorf("failed to read entities for backup: %w", err)
	}
	defer rows.Close()

	records := make([]store.Record, 0)
	for rows.Next() {
		var rec store.Record
		var payload string
		if err := rows.Scan(&rec.ID, &rec.EntityType, &payload); err != nil {
			return result, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
			m.logger.Warn("skipping row with undecodable payload",
				"id", rec.ID, "entity_type", rec.EntityType, "error", err)
			result.Skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("error iterating entities: %w", err)
	}

	if err := store.WriteRecords(path, records); err != nil {
		return result, err
	}
	result.Saved = len(records)

	m.logger.Info("backup written",
		"path", path, "saved", result.Saved, "skipped", result.Skipped)
	return result, nil
}

// Migrate performs the representation swap as a single transaction:
// create a shadow table with the structured column, copy-and-cast every
// row into it, drop the old table, rename the shadow into place.
//
// Any failure rolls the transaction back and returns an error wrapping
// ErrMigration; the live table is left untouched. A malformed text
// payload fails the cast, so a dataset with undecodable rows cannot be
// swapped partially.
func (m *Migrator) Migrate(ctx context.Context) error {
	conn, err := m.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMigration, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrMigration, err)
	}
	defer tx.Rollback()

	dialect := m.db.Dialect()

	if _, err := tx.ExecContext(ctx, dialect.CreateShadowSQL()); err != nil {
		return fmt.Errorf("%w: create shadow table: %v", ErrMigration, err)
	}
	if _, err := tx.ExecContext(ctx, dialect.CopyCastSQL()); err != nil {
		return fmt.Errorf("%w: copy rows into shadow table: %v", ErrMigration, err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE entities"); err != nil {
		return fmt.Errorf("%w: drop old table: %v", ErrMigration, err)
	}
	if _, err := tx.ExecContext(ctx, dialect.RenameShadowSQL()); err != nil {
		return fmt.Errorf("%w: rename shadow table: %v", ErrMigration, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrMigration, err)
	}

	m.logger.Info("migration completed", "representation", db.RepJSON)
	return nil
}

// Restore recreates the entities table (idempotently) in the current
// representation and upserts every snapshot record back in. Used after a
// reported migration failure.
func (m *Migrator) Restore(ctx context.Context, path string) (int, error) {
	records, err := store.ReadRecords(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRestore, err)
	}

	rep, err := m.db.DataRepresentation(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRestore, err)
	}

	conn, err := m.db.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRestore, err)
	}
	defer conn.Close()

	dialect := m.db.Dialect()

	if _, err := conn.ExecContext(ctx, dialect.CreateEntitiesSQL(rep)); err != nil {
		return 0, fmt.Errorf("%w: recreate table: %v", ErrRestore, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", ErrRestore, err)
	}
	defer tx.Rollback()

	query := dialect.Rebind(fmt.Sprintf(`
	INSERT INTO entities (id, entity_type, data)
	VALUES (?, ?, %s)
	ON CONFLICT(id) DO UPDATE SET
		entity_type = excluded.entity_type,
		data = excluded.data
	`, dialect.DataInsertExpr(rep)))

	for _, rec := range records {
		payload, err := json.Marshal(rec.Data)
		if err != nil {
			return 0, fmt.Errorf("%w: marshal record %s: %v", ErrRestore, rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.EntityType, string(payload)); err != nil {
			return 0, fmt.Errorf("%w: restore entity %s/%s: %v", ErrRestore, rec.EntityType, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrRestore, err)
	}

	m.logger.Info("restore completed", "path", path, "restored", len(records))
	return len(records), nil
}
