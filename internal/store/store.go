// Package store implements the generic entity store: heterogeneous domain
// objects persisted as (id, entity_type, data) rows in one physical table.
//
// The payload is owned entirely by the caller and always funnels through
// one canonical JSON text encoding, so store behavior is identical whether
// the data column is opaque text or the engine's structured JSON type. The
// active representation is detected from the live table when the store is
// constructed.
//
// IDs share one primary-key space across all entity types: two entities of
// different types must not share an id.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crewvault/crewvault/internal/db"
)

// Store persists generic entities in the entities table.
type Store struct {
	db  *db.DB
	rep db.Representation
}

// New builds a store over the given connection provider, probing the live
// table for the active data-column representation.
func New(ctx context.Context, database *db.DB) (*Store, error) {
	rep, err := database.DataRepresentation(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{db: database, rep: rep}, nil
}

// Representation returns the data-column representation the store detected.
func (s *Store) Representation() db.Representation {
	return s.rep
}

// Save serializes data to the table's canonical encoding and performs an
// atomic upsert on id: an existing row is fully replaced, entity_type
// included. The row count grows by at most one.
func (s *Store) Save(ctx context.Context, entityType, id string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: marshal %s/%s: %v", ErrSerialization, entityType, id, err)
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	query := s.db.Dialect().Rebind(fmt.Sprintf(`
	INSERT INTO entities (id, entity_type, data)
	VALUES (?, ?, %s)
	ON CONFLICT(id) DO UPDATE SET
		entity_type = excluded.entity_type,
		data = excluded.data
	`, s.db.Dialect().DataInsertExpr(s.rep)))

	if _, err := conn.ExecContext(ctx, query, id, entityType, string(payload)); err != nil {
		return fmt.Errorf("failed to upsert entity %s/%s: %w", entityType, id, err)
	}
	return nil
}

// Load returns every entity of the given type, payloads deserialized back
// to their structured form. Order is unspecified; callers that need an
// ordering sort on a field inside the payload. No matching rows yields an
// empty result, not an error.
func (s *Store) Load(ctx context.Context, entityType string) ([]Entity, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	query := s.db.Dialect().Rebind(fmt.Sprintf(
		`SELECT id, %s FROM entities WHERE entity_type = ?`,
		s.db.Dialect().DataSelectExpr(s.rep)))

	rows, err := conn.QueryContext(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities of type %s: %w", entityType, err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var payload string
		if err := rows.Scan(&e.ID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Data); err != nil {
			return nil, fmt.Errorf("%w: unmarshal %s/%s: %v", ErrSerialization, entityType, e.ID, err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}

	return entities, nil
}

// Delete removes the row if and only if both id and entity_type match.
// A mismatched type is a no-op, not an error. Idempotent.
func (s *Store) Delete(ctx context.Context, entityType, id string) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	query := s.db.Dialect().Rebind(
		`DELETE FROM entities WHERE id = ? AND entity_type = ?`)
	if _, err := conn.ExecContext(ctx, query, id, entityType); err != nil {
		return fmt.Errorf("failed to delete entity %s/%s: %w", entityType, id, err)
	}
	return nil
}

// Count returns the total number of entities across all types.
func (s *Store) Count(ctx context.Context) (int, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	var count int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// Export reads every row regardless of type, deserializes payloads
// uniformly, and writes a single JSON array of {id, entity_type, data}
// records to path. Rows are ordered by id so the file is deterministic.
func (s *Store) Export(ctx context.Context, path string) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	query := fmt.Sprintf(
		`SELECT id, entity_type, %s FROM entities ORDER BY id`,
		s.db.Dialect().DataSelectExpr(s.rep))

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		var payload string
		if err := rows.Scan(&rec.ID, &rec.EntityType, &payload); err != nil {
			return fmt.Errorf("failed to scan entity: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
			return fmt.Errorf("%w: unmarshal %s/%s: %v", ErrSerialization, rec.EntityType, rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating entities: %w", err)
	}

	return WriteRecords(path, records)
}

// Import reads an export-format file and upserts every record,
// re-serializing payloads into whatever representation the table currently
// uses. The whole import runs in one transaction: one malformed record
// aborts everything, leaving the table untouched.
func (s *Store) Import(ctx context.Context, path string) error {
	records, err := ReadRecords(path)
	if err != nil {
		return err
	}

	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin import transaction: %v", ErrConnection, err)
	}
	defer tx.Rollback()

	query := s.db.Dialect().Rebind(fmt.Sprintf(`
	INSERT INTO entities (id, entity_type, data)
	VALUES (?, ?, %s)
	ON CONFLICT(id) DO UPDATE SET
		entity_type = excluded.entity_type,
		data = excluded.data
	`, s.db.Dialect().DataInsertExpr(s.rep)))

	for i, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("%w: record %d has no id", ErrSerialization, i)
		}
		payload, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("%w: marshal record %s: %v", ErrSerialization, rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, rec.ID, rec.EntityType, string(payload)); err != nil {
			return fmt.Errorf("failed to import entity %s/%s: %w", rec.EntityType, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// WriteRecords writes records to path as an indented JSON array,
// atomically via a temp file.
func WriteRecords(path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal records: %v", ErrSerialization, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ReadRecords reads an export-format JSON array from path.
func ReadRecords(path string) ([]Record, error) {
	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parse records file: %v", ErrSerialization, err)
	}
	return records, nil
}
