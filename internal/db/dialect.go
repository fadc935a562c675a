package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the backing SQL engine. All engine-specific SQL lives
// here so the store and migrator can share one query shape.
type Dialect int

const (
	// DialectSQLite is the embedded SQLite backend (ncruces/go-sqlite3).
	DialectSQLite Dialect = iota
	// DialectPostgres is the PostgreSQL backend (jackc/pgx stdlib).
	DialectPostgres
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// Representation describes how the data column physically stores payloads.
type Representation int

const (
	// RepText stores payloads as JSON-encoded text.
	RepText Representation = iota
	// RepJSON stores payloads in the engine's structured JSON column type
	// (JSONB on PostgreSQL, JSONB-declared column on SQLite).
	RepJSON
)

// String returns the representation name.
func (r Representation) String() string {
	if r == RepJSON {
		return "json"
	}
	return "text"
}

// DialectFor picks the dialect from a connection string. URLs with a
// postgres scheme go to PostgreSQL; everything else is treated as a SQLite
// file path.
func DialectFor(connString string) Dialect {
	lower := strings.ToLower(connString)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Rebind converts ?-style placeholders to the engine's positional form.
// SQLite queries pass through unchanged; PostgreSQL gets $1, $2, ...
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// DefaultRepresentation is the representation a fresh deployment gets:
// structured JSON where the engine supports it natively, text otherwise.
func (d Dialect) DefaultRepresentation() Representation {
	if d == DialectPostgres {
		return RepJSON
	}
	return RepText
}

// CreateEntitiesSQL returns the idempotent DDL for the entities table in
// the given representation.
func (d Dialect) CreateEntitiesSQL(rep Representation) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		entity_type TEXT,
		data %s
	)`, d.dataColumnType(rep))
}

// CreateShadowSQL returns the DDL for the migration shadow table, which
// always carries the structured representation.
func (d Dialect) CreateShadowSQL() string {
	return fmt.Sprintf(`CREATE TABLE entities_new (
		id TEXT PRIMARY KEY,
		entity_type TEXT,
		data %s
	)`, d.dataColumnType(RepJSON))
}

func (d Dialect) dataColumnType(rep Representation) string {
	if rep == RepJSON {
		return "JSONB"
	}
	return "TEXT"
}

// CopyCastSQL returns the statement that copies every row from the old
// table into the shadow table, casting text payloads to the structured
// type. The cast fails on malformed JSON, which aborts the migration.
func (d Dialect) CopyCastSQL() string {
	if d == DialectPostgres {
		return `INSERT INTO entities_new (id, entity_type, data)
			SELECT id, entity_type, data::jsonb FROM entities`
	}
	return `INSERT INTO entities_new (id, entity_type, data)
		SELECT id, entity_type, jsonb(data) FROM entities`
}

// RenameShadowSQL returns the statement that swaps the shadow table into
// place after the old table has been dropped.
func (d Dialect) RenameShadowSQL() string {
	return "ALTER TABLE entities_new RENAME TO entities"
}

// DataColumnQuery returns the query that probes the declared type of the
// data column. It yields zero rows when the entities table does not exist.
func (d Dialect) DataColumnQuery() string {
	if d == DialectPostgres {
		return `SELECT data_type FROM information_schema.columns
			WHERE table_name = 'entities' AND column_name = 'data'`
	}
	return `SELECT type FROM pragma_table_info('entities') WHERE name = 'data'`
}

// ParseDataColumnType maps a declared column type from DataColumnQuery to
// a Representation.
func (d Dialect) ParseDataColumnType(columnType string) Representation {
	if strings.EqualFold(strings.TrimSpace(columnType), "jsonb") {
		return RepJSON
	}
	return RepText
}

// DataSelectExpr returns the expression that reads the data column back as
// JSON text regardless of representation.
func (d Dialect) DataSelectExpr(rep Representation) string {
	if d == DialectPostgres {
		// ::text is a no-op on a text column and renders JSONB as JSON text.
		return "data::text"
	}
	if rep == RepJSON {
		return "json(data)"
	}
	return "data"
}

// DataInsertExpr returns the placeholder expression that writes a JSON text
// parameter into the data column in the given representation.
func (d Dialect) DataInsertExpr(rep Representation) string {
	if rep != RepJSON {
		return "?"
	}
	if d == DialectPostgres {
		return "CAST(? AS JSONB)"
	}
	return "jsonb(?)"
}
