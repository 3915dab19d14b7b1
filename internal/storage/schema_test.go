package storage

// Test Plan for the schema:
// - CreateSchema creates every table and is idempotent
// - GetSchemaVersion reports "0" on an empty database and SchemaVersion afterwards
// - Foreign keys cascade unit deletes to symbols, relations and diagnostics

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchema(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "0", version)

	require.NoError(t, CreateSchema(db))
	require.NoError(t, CreateSchema(db), "schema creation must be idempotent")

	for _, table := range []string{"units", "symbols", "relations", "diagnostics", "meta"} {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	version, err = GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestSchema_CascadeDelete(t *testing.T) {
	t.Parallel()

	s := NewTestStore(t)
	db := s.DB()

	_, err := db.Exec(`INSERT INTO units (unit_id, path, language, content_hash, indexed_at)
		VALUES ('u1', 'a.rb', 'ruby', 'h', '2025-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO symbols (symbol_id, unit_id, position, depth, kind, name, qualified_name,
		start_offset, start_line, start_column, end_offset, end_line, end_column)
		VALUES (1, 'u1', 0, 0, 'class', 'A', 'A', 0, 1, 1, 10, 2, 4)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO relations (symbol_id, position, kind, target) VALUES (1, 0, 'extends', 'B')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO diagnostics (unit_id, severity, code, message, start_line, start_column, end_line, end_column)
		VALUES ('u1', 'warning', 'lex', 'm', 1, 1, 1, 2)`)
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM units WHERE unit_id = 'u1'")
	require.NoError(t, err)

	for _, table := range []string{"symbols", "relations", "diagnostics"} {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}
