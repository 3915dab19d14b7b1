package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to the meta table by CreateSchema.
const SchemaVersion = "1"

const createUnitsTable = `
CREATE TABLE IF NOT EXISTS units (
	unit_id      TEXT PRIMARY KEY,
	path         TEXT NOT NULL UNIQUE,
	language     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	partial      INTEGER NOT NULL DEFAULT 0,
	symbol_count INTEGER NOT NULL DEFAULT 0,
	indexed_at   TEXT NOT NULL
)`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	symbol_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id        TEXT NOT NULL REFERENCES units(unit_id) ON DELETE CASCADE,
	parent_id      INTEGER REFERENCES symbols(symbol_id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	depth          INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	doc_comment    TEXT NOT NULL DEFAULT '',
	signature      TEXT NOT NULL DEFAULT '',
	return_type    TEXT NOT NULL DEFAULT '',
	modifiers      TEXT NOT NULL DEFAULT '[]',
	parameters     TEXT NOT NULL DEFAULT '[]',
	start_offset   INTEGER NOT NULL,
	start_line     INTEGER NOT NULL,
	start_column   INTEGER NOT NULL,
	end_offset     INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	end_column     INTEGER NOT NULL,
	unparsed       INTEGER NOT NULL DEFAULT 0,
	partial        INTEGER NOT NULL DEFAULT 0
)`

const createRelationsTable = `
CREATE TABLE IF NOT EXISTS relations (
	symbol_id INTEGER NOT NULL REFERENCES symbols(symbol_id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	kind      TEXT NOT NULL,
	target    TEXT NOT NULL,
	PRIMARY KEY (symbol_id, position)
)`

const createDiagnosticsTable = `
CREATE TABLE IF NOT EXISTS diagnostics (
	diagnostic_id INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id       TEXT NOT NULL REFERENCES units(unit_id) ON DELETE CASCADE,
	severity      TEXT NOT NULL,
	code          TEXT NOT NULL,
	message       TEXT NOT NULL,
	start_line    INTEGER NOT NULL,
	start_column  INTEGER NOT NULL,
	end_line      INTEGER NOT NULL,
	end_column    INTEGER NOT NULL
)`

const createMetaTable = `
CREATE TABLE IF NOT EXISTS meta (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_units_language ON units(language)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_unit ON symbols(unit_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_qualified_name ON symbols(qualified_name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)",
		"CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target)",
		"CREATE INDEX IF NOT EXISTS idx_diagnostics_unit ON diagnostics(unit_id)",
	}
}

// CreateSchema creates all tables and indexes in one transaction. It is
// idempotent. Must be called with PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"units", createUnitsTable},
		{"symbols", createSymbolsTable},
		{"relations", createRelationsTable},
		{"diagnostics", createDiagnosticsTable},
		{"meta", createMetaTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO meta (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the stored schema version, or "0" for a database
// without a meta table.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check meta existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
