// Package storage persists parse results in SQLite so symbol trees can be
// queried by name, kind and relation without re-parsing.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/symtree/internal/cache"
	"github.com/mvp-joe/symtree/internal/symtree"
)

// ErrNilResult is returned by WriteUnit for a nil result.
var ErrNilResult = errors.New("nil parse result")

// Store reads and writes parse results. It is safe for concurrent use;
// writes are serialized by the single database connection.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a private in-memory store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fileDSN(path)
	if path == ":memory:" {
		dsn = ":memory:?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// fileDSN builds a SQLite URI for path. The path is escaped so '?', '#' and
// '%' in file names do not cut off the connection parameters.
func fileDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		OmitHost: true,
		Path:     filepath.ToSlash(path),
		RawQuery: "_foreign_keys=on&_busy_timeout=5000",
	}
	return u.String()
}

// New wraps an open database and ensures the schema.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger.With("component", "storage")}, nil
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteUnit stores res under path, replacing whatever was stored there.
func (s *Store) WriteUnit(ctx context.Context, path string, res *symtree.ParseResult) error {
	if res == nil || res.Unit == nil || res.Tree == nil {
		return ErrNilResult
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := sq.Delete("units").Where(sq.Eq{"path": path}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to clear unit %s: %w", path, err)
	}

	unitID := res.Unit.ID
	if unitID == uuid.Nil {
		unitID = uuid.New()
	}
	_, err = sq.Insert("units").
		Columns("unit_id", "path", "language", "content_hash", "partial", "symbol_count", "indexed_at").
		Values(
			unitID.String(),
			path,
			res.Unit.Language,
			cache.Key(res.Unit.Language, res.Unit.Text),
			res.Partial,
			res.Tree.Count(),
			time.Now().UTC().Format(time.RFC3339),
		).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to write unit %s: %w", path, err)
	}

	w := &treeWriter{ctx: ctx, tx: tx, unitID: unitID.String()}
	for _, root := range res.Tree.Roots {
		if err := w.write(root, 0, 0); err != nil {
			return fmt.Errorf("failed to write symbols for %s: %w", path, err)
		}
	}

	for _, d := range res.Diagnostics {
		_, err := sq.Insert("diagnostics").
			Columns("unit_id", "severity", "code", "message", "start_line", "start_column", "end_line", "end_column").
			Values(unitID.String(), string(d.Severity), string(d.Code), d.Message,
				d.Span.Start.Line, d.Span.Start.Column, d.Span.End.Line, d.Span.End.Column).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to write diagnostic for %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unit %s: %w", path, err)
	}
	s.logger.Debug("unit stored", "path", path, "symbols", w.position, "diagnostics", len(res.Diagnostics))
	return nil
}

type treeWriter struct {
	ctx      context.Context
	tx       *sql.Tx
	unitID   string
	position int
}

func (w *treeWriter) write(sym *symtree.Symbol, parentID int64, depth int) error {
	modifiers, err := json.Marshal(nonNil(sym.Modifiers))
	if err != nil {
		return err
	}
	params, err := json.Marshal(nonNil(sym.Parameters))
	if err != nil {
		return err
	}

	var parent any
	if parentID != 0 {
		parent = parentID
	}
	res, err := sq.Insert("symbols").
		Columns(
			"unit_id", "parent_id", "position", "depth", "kind", "name", "qualified_name",
			"doc_comment", "signature", "return_type", "modifiers", "parameters",
			"start_offset", "start_line", "start_column", "end_offset", "end_line", "end_column",
			"unparsed", "partial",
		).
		Values(
			w.unitID, parent, w.position, depth, string(sym.Kind), sym.Name, sym.QualifiedName,
			sym.DocComment, sym.Signature, sym.ReturnType, string(modifiers), string(params),
			sym.Span.Start.Offset, sym.Span.Start.Line, sym.Span.Start.Column,
			sym.Span.End.Offset, sym.Span.End.Line, sym.Span.End.Column,
			sym.Unparsed, sym.Partial,
		).
		RunWith(w.tx).
		ExecContext(w.ctx)
	if err != nil {
		return fmt.Errorf("insert %s: %w", sym.QualifiedName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.position++

	for i, rel := range sym.Relations {
		_, err := sq.Insert("relations").
			Columns("symbol_id", "position", "kind", "target").
			Values(id, i, string(rel.Kind), rel.Target).
			RunWith(w.tx).
			ExecContext(w.ctx)
		if err != nil {
			return fmt.Errorf("insert relation of %s: %w", sym.QualifiedName, err)
		}
	}

	for _, child := range sym.Children {
		if err := w.write(child, id, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// DeleteUnit removes the unit stored under path and reports whether one existed.
func (s *Store) DeleteUnit(ctx context.Context, path string) (bool, error) {
	res, err := sq.Delete("units").Where(sq.Eq{"path": path}).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete unit %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
