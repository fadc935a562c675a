package migrate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/crewvault/crewvault/internal/db"
	"github.com/crewvault/crewvault/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// openTextDB opens a fresh SQLite database with a text-representation
// entities table.
func openTextDB(t *testing.T) *db.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if _, err := database.RawDB().Exec(database.Dialect().CreateEntitiesSQL(db.RepText)); err != nil {
		t.Fatalf("Failed to create entities table: %v", err)
	}
	return database
}

// insertRaw writes a row with the payload exactly as given, bypassing the
// store's canonical encoding.
func insertRaw(t *testing.T, database *db.DB, id, entityType, payload string) {
	t.Helper()
	_, err := database.RawDB().Exec(
		`INSERT INTO entities (id, entity_type, data) VALUES (?, ?, ?)`,
		id, entityType, payload)
	if err != nil {
		t.Fatalf("Failed to insert row %s: %v", id, err)
	}
}

func rowCount(t *testing.T, database *db.DB) int {
	t.Helper()
	var count int
	if err := database.RawDB().QueryRow("SELECT COUNT(*) FROM entities").Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return count
}

func representation(t *testing.T, database *db.DB) db.Representation {
	t.Helper()
	rep, err := database.DataRepresentation(context.Background())
	if err != nil {
		t.Fatalf("DataRepresentation() failed: %v", err)
	}
	return rep
}

func TestBackup_SkipsMalformedRows(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x","temperature":0.7}`)
	insertRaw(t, database, "t1", "task", `{"description":"y"}`)
	insertRaw(t, database, "bad", "agent", `{not json`)

	m := New(database, testLogger())
	path := filepath.Join(t.TempDir(), "backup.json")
	result, err := m.Backup(context.Background(), path)
	if err != nil {
		t.Fatalf("Backup() failed: %v", err)
	}
	if result.Saved != 2 {
		t.Errorf("Saved = %d, want 2", result.Saved)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}

	records, err := store.ReadRecords(path)
	if err != nil {
		t.Fatalf("ReadRecords() failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("snapshot holds %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.ID == "bad" {
			t.Errorf("snapshot contains the malformed row")
		}
	}
}

func TestMigrate_Success(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x","temperature":0.7}`)
	insertRaw(t, database, "t1", "task", `{"description":"y"}`)

	m := New(database, testLogger())
	if err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	if rep := representation(t, database); rep != db.RepJSON {
		t.Errorf("representation after migration = %v, want %v", rep, db.RepJSON)
	}
	if count := rowCount(t, database); count != 2 {
		t.Errorf("row count after migration = %d, want 2", count)
	}

	// Every pre-migration row is present with semantically equal data.
	s, err := store.New(context.Background(), database)
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	agents, err := s.Load(context.Background(), "agent")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := map[string]any{"role": "x", "temperature": 0.7}
	if len(agents) != 1 || !reflect.DeepEqual(agents[0].Data, want) {
		t.Errorf("Load(agent) = %#v, want [(a1, %#v)]", agents, want)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x"}`)
	insertRaw(t, database, "bad", "agent", `{not json`)

	m := New(database, testLogger())
	err := m.Migrate(context.Background())
	if err == nil {
		t.Fatal("Migrate() succeeded, want cast failure")
	}
	if !errors.Is(err, ErrMigration) {
		t.Errorf("Migrate() error = %v, want ErrMigration", err)
	}

	// The live table is untouched: still text, all rows present.
	if rep := representation(t, database); rep != db.RepText {
		t.Errorf("representation after failed migration = %v, want %v", rep, db.RepText)
	}
	if count := rowCount(t, database); count != 2 {
		t.Errorf("row count after failed migration = %d, want 2", count)
	}
}

func TestRestore_RecreatesTable(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x"}`)

	m := New(database, testLogger())
	path := filepath.Join(t.TempDir(), "backup.json")
	if _, err := m.Backup(context.Background(), path); err != nil {
		t.Fatalf("Backup() failed: %v", err)
	}

	if _, err := database.RawDB().Exec("DROP TABLE entities"); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}

	restored, err := m.Restore(context.Background(), path)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if restored != 1 {
		t.Errorf("Restore() = %d, want 1", restored)
	}
	if count := rowCount(t, database); count != 1 {
		t.Errorf("row count after restore = %d, want 1", count)
	}
}

func TestRestore_MissingSnapshot(t *testing.T) {
	database := openTextDB(t)
	m := New(database, testLogger())

	_, err := m.Restore(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrRestore) {
		t.Errorf("Restore() error = %v, want ErrRestore", err)
	}
}

func TestRun_Migrated(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x"}`)

	m := New(database, testLogger())
	result, err := m.Run(context.Background(), RunOptions{
		BackupPath: filepath.Join(t.TempDir(), "backup.json"),
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Outcome != OutcomeMigrated {
		t.Errorf("Outcome = %v, want %v", result.Outcome, OutcomeMigrated)
	}
	if result.Backup.Saved != 1 || result.Backup.Skipped != 0 {
		t.Errorf("Backup = %+v, want 1 saved, 0 skipped", result.Backup)
	}
	if rep := representation(t, database); rep != db.RepJSON {
		t.Errorf("representation = %v, want %v", rep, db.RepJSON)
	}
}

func TestRun_AlreadyMigrated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer database.Close()
	if _, err := database.RawDB().Exec(database.Dialect().CreateEntitiesSQL(db.RepJSON)); err != nil {
		t.Fatalf("Failed to create structured table: %v", err)
	}

	m := New(database, testLogger())
	result, err := m.Run(context.Background(), RunOptions{
		BackupPath: filepath.Join(t.TempDir(), "backup.json"),
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadyMigrated {
		t.Errorf("Outcome = %v, want %v", result.Outcome, OutcomeAlreadyMigrated)
	}
}

// A malformed row fails the copy cast, so the swap fails and the
// automatic restore path re-upserts everything that backed up cleanly
// over the rolled-back table.
func TestRun_RestoredAfterSwapFailure(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x","temperature":0.7}`)
	insertRaw(t, database, "t1", "task", `{"description":"y"}`)
	insertRaw(t, database, "bad", "junk", `{not json`)

	m := New(database, testLogger())
	result, err := m.Run(context.Background(), RunOptions{
		BackupPath: filepath.Join(t.TempDir(), "backup.json"),
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Outcome != OutcomeRestored {
		t.Fatalf("Outcome = %v, want %v", result.Outcome, OutcomeRestored)
	}
	if result.MigrateErr == nil || !errors.Is(result.MigrateErr, ErrMigration) {
		t.Errorf("MigrateErr = %v, want ErrMigration", result.MigrateErr)
	}
	if result.Restored != 2 {
		t.Errorf("Restored = %d, want 2", result.Restored)
	}

	if rep := representation(t, database); rep != db.RepText {
		t.Errorf("representation = %v, want %v", rep, db.RepText)
	}

	s, err := store.New(context.Background(), database)
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	agents, err := s.Load(context.Background(), "agent")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := map[string]any{"role": "x", "temperature": 0.7}
	if len(agents) != 1 || !reflect.DeepEqual(agents[0].Data, want) {
		t.Errorf("Load(agent) after restore = %#v, want [(a1, %#v)]", agents, want)
	}
}

func TestRun_StrictAbortsBeforeSwap(t *testing.T) {
	database := openTextDB(t)
	insertRaw(t, database, "a1", "agent", `{"role":"x"}`)
	insertRaw(t, database, "bad", "agent", `{not json`)

	m := New(database, testLogger())
	_, err := m.Run(context.Background(), RunOptions{
		BackupPath: filepath.Join(t.TempDir(), "backup.json"),
		Strict:     true,
	})
	if err == nil {
		t.Fatal("Run() succeeded in strict mode, want abort")
	}

	// Nothing was mutated: representation and rows are as they were.
	if rep := representation(t, database); rep != db.RepText {
		t.Errorf("representation = %v, want %v", rep, db.RepText)
	}
	if count := rowCount(t, database); count != 2 {
		t.Errorf("row count = %d, want 2", count)
	}
}
