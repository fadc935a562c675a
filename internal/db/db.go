// Package db provides the connection provider for crewvault's relational
// storage.
//
// One DB handle wraps a pooled database/sql connection to a single
// configured endpoint. Two engines are supported:
//
//   - SQLite (embedded, via ncruces/go-sqlite3) for local single-file
//     deployments. Opened with WAL mode for concurrent reads.
//   - PostgreSQL (via jackc/pgx in database/sql mode) for shared
//     deployments, where the data column uses native JSONB.
//
// The provider owns no entity or migration logic: the store and migrator
// acquire scoped connections from it and release them when done. The
// handle is constructed once at startup from the configured connection
// string and passed down explicitly.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps a pooled connection to the configured endpoint.
type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open connects to the endpoint described by connString.
//
// A postgres:// or postgresql:// URL selects the PostgreSQL backend;
// anything else is treated as a SQLite database file path, created on
// demand along with its parent directory.
//
// The caller MUST call Close() when done.
func Open(connString string) (*DB, error) {
	dialect := DialectFor(connString)

	var conn *sql.DB
	var err error
	switch dialect {
	case DialectPostgres:
		conn, err = sql.Open("pgx", connString)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
	default:
		dir := filepath.Dir(connString)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		conn, err = sql.Open("sqlite3", fmt.Sprintf("file:%s", connString))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:    conn,
		dialect: dialect,
	}

	if dialect == DialectSQLite {
		// Enable WAL mode for concurrent reads
		if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}

		// Set busy timeout to 5 seconds
		if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}

		if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return db, nil
}

// Dialect returns the dialect of the backing engine.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// RawDB returns the underlying sql.DB connection.
// This is useful for integrating with other libraries that expect *sql.DB.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Acquire returns a single scoped connection from the pool. The caller
// MUST close it on every exit path to return it to the pool.
func (db *DB) Acquire(ctx context.Context) (*sql.Conn, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// Close closes the database connection.
// Performs a WAL checkpoint on SQLite to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if db.dialect == DialectSQLite {
		if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
		}
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the entities table if it doesn't exist, using the
// engine's default representation for the data column. This is idempotent -
// safe to call multiple times.
func (db *DB) InitSchema(ctx context.Context) error {
	ddl := db.dialect.CreateEntitiesSQL(db.dialect.DefaultRepresentation())
	if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// DataRepresentation probes the live entities table for the declared type
// of the data column. Returns the dialect default when the table does not
// exist yet.
func (db *DB) DataRepresentation(ctx context.Context) (Representation, error) {
	var columnType string
	err := db.conn.QueryRowContext(ctx, db.dialect.DataColumnQuery()).Scan(&columnType)
	if errors.Is(err, sql.ErrNoRows) {
		return db.dialect.DefaultRepresentation(), nil
	}
	if err != nil {
		return RepText, fmt.Errorf("failed to probe data column type: %w", err)
	}
	return db.dialect.ParseDataColumnType(columnType), nil
}
