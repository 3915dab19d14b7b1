package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/symtree/internal/symtree"
)

var unitColumns = []string{
	"u.unit_id", "u.path", "u.language", "u.content_hash", "u.partial", "u.symbol_count", "u.indexed_at",
}

var symbolColumns = []string{
	"s.symbol_id", "s.unit_id", "u.path", "u.language", "COALESCE(s.parent_id, 0)", "s.depth",
	"s.kind", "s.name", "s.qualified_name", "s.doc_comment", "s.signature", "s.return_type",
	"s.modifiers", "s.parameters",
	"s.start_offset", "s.start_line", "s.start_column", "s.end_offset", "s.end_line", "s.end_column",
	"s.unparsed", "s.partial",
}

// Unit returns the unit stored under path. Returns (nil, nil) if not found.
func (s *Store) Unit(ctx context.Context, path string) (*Unit, error) {
	row := sq.Select(unitColumns...).
		From("units u").
		Where(sq.Eq{"u.path": path}).
		RunWith(s.db).
		QueryRowContext(ctx)

	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit %s: %w", path, err)
	}
	return u, nil
}

// Units returns every stored unit ordered by path.
func (s *Store) Units(ctx context.Context) ([]*Unit, error) {
	rows, err := sq.Select(unitColumns...).
		From("units u").
		OrderBy("u.path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var out []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating units: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(row scanner) (*Unit, error) {
	u := &Unit{}
	var id, indexedAt string
	if err := row.Scan(&id, &u.Path, &u.Language, &u.ContentHash, &u.Partial, &u.SymbolCount, &indexedAt); err != nil {
		return nil, err
	}
	u.ID, _ = uuid.Parse(id)
	u.IndexedAt, _ = time.Parse(time.RFC3339, indexedAt)
	return u, nil
}

// FindSymbols returns the symbols matching q in storage order, with their
// relations loaded.
func (s *Store) FindSymbols(ctx context.Context, q SymbolQuery) ([]*Symbol, error) {
	query := sq.Select(symbolColumns...).
		From("symbols s").
		Join("units u ON u.unit_id = s.unit_id").
		OrderBy("u.path", "s.position")

	if q.Name != "" {
		query = query.Where(sq.Eq{"s.name": q.Name})
	}
	if q.QualifiedName != "" {
		query = query.Where(sq.Eq{"s.qualified_name": q.QualifiedName})
	}
	if q.Prefix != "" {
		query = query.Where(sq.Like{"s.qualified_name": q.Prefix + "%"})
	}
	if q.Kind != "" {
		query = query.Where(sq.Eq{"s.kind": string(q.Kind)})
	}
	if q.Language != "" {
		query = query.Where(sq.Eq{"u.language": q.Language})
	}
	if q.Path != "" {
		query = query.Where(sq.Eq{"u.path": q.Path})
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	syms, err := scanSymbols(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, syms); err != nil {
		return nil, err
	}
	return syms, nil
}

func scanSymbols(rows *sql.Rows) ([]*Symbol, error) {
	defer rows.Close()

	var out []*Symbol
	for rows.Next() {
		sym := &Symbol{}
		var unitID, kind, modifiers, params string
		err := rows.Scan(
			&sym.ID, &unitID, &sym.Path, &sym.Language, &sym.ParentID, &sym.Depth,
			&kind, &sym.Name, &sym.QualifiedName, &sym.DocComment, &sym.Signature, &sym.ReturnType,
			&modifiers, &params,
			&sym.Span.Start.Offset, &sym.Span.Start.Line, &sym.Span.Start.Column,
			&sym.Span.End.Offset, &sym.Span.End.Line, &sym.Span.End.Column,
			&sym.Unparsed, &sym.Partial,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		sym.UnitID, _ = uuid.Parse(unitID)
		sym.Kind = symtree.Kind(kind)
		if err := json.Unmarshal([]byte(modifiers), &sym.Modifiers); err != nil {
			return nil, fmt.Errorf("invalid modifiers for %s: %w", sym.QualifiedName, err)
		}
		if err := json.Unmarshal([]byte(params), &sym.Parameters); err != nil {
			return nil, fmt.Errorf("invalid parameters for %s: %w", sym.QualifiedName, err)
		}
		if len(sym.Modifiers) == 0 {
			sym.Modifiers = nil
		}
		if len(sym.Parameters) == 0 {
			sym.Parameters = nil
		}
		out = append(out, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}
	return out, nil
}

func (s *Store) loadRelations(ctx context.Context, syms []*Symbol) error {
	if len(syms) == 0 {
		return nil
	}
	byID := make(map[int64]*Symbol, len(syms))
	ids := make([]int64, 0, len(syms))
	for _, sym := range syms {
		byID[sym.ID] = sym
		ids = append(ids, sym.ID)
	}

	rows, err := sq.Select("symbol_id", "kind", "target").
		From("relations").
		Where(sq.Eq{"symbol_id": ids}).
		OrderBy("symbol_id", "position").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var kind, target string
		if err := rows.Scan(&id, &kind, &target); err != nil {
			return fmt.Errorf("failed to scan relation: %w", err)
		}
		byID[id].Relations = append(byID[id].Relations, symtree.Relation{Kind: symtree.RelationKind(kind), Target: target})
	}
	return rows.Err()
}

// Relations returns every stored relation with its source symbol, optionally
// restricted to one relation kind.
func (s *Store) Relations(ctx context.Context, kind symtree.RelationKind) ([]Relation, error) {
	query := sq.Select("r.symbol_id", "s.qualified_name", "s.kind", "u.path", "r.kind", "r.target").
		From("relations r").
		Join("symbols s ON s.symbol_id = r.symbol_id").
		Join("units u ON u.unit_id = s.unit_id").
		OrderBy("u.path", "s.position", "r.position")
	if kind != "" {
		query = query.Where(sq.Eq{"r.kind": string(kind)})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		var srcKind, relKind string
		if err := rows.Scan(&r.SymbolID, &r.QualifiedName, &srcKind, &r.Path, &relKind, &r.Target); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		r.SourceKind = symtree.Kind(srcKind)
		r.Kind = symtree.RelationKind(relKind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}
	return out, nil
}

// Diagnostics returns the diagnostics stored for path, or for every unit
// when path is empty.
func (s *Store) Diagnostics(ctx context.Context, path string) ([]Diagnostic, error) {
	query := sq.Select("u.path", "d.severity", "d.code", "d.message",
		"d.start_line", "d.start_column", "d.end_line", "d.end_column").
		From("diagnostics d").
		Join("units u ON u.unit_id = d.unit_id").
		OrderBy("u.path", "d.diagnostic_id")
	if path != "" {
		query = query.Where(sq.Eq{"u.path": path})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		var d Diagnostic
		var sev, code string
		if err := rows.Scan(&d.Path, &sev, &code, &d.Message,
			&d.Start.Line, &d.Start.Column, &d.End.Line, &d.End.Column); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Severity = symtree.Severity(sev)
		d.Code = symtree.Code(code)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostics: %w", err)
	}
	return out, nil
}

// LoadTree rebuilds the symbol tree stored under path. Returns (nil, nil) if
// the unit is not stored.
func (s *Store) LoadTree(ctx context.Context, path string) (*symtree.SymbolTree, error) {
	unit, err := s.Unit(ctx, path)
	if err != nil || unit == nil {
		return nil, err
	}
	syms, err := s.FindSymbols(ctx, SymbolQuery{Path: path})
	if err != nil {
		return nil, err
	}

	tree := &symtree.SymbolTree{}
	nodes := make(map[int64]*symtree.Symbol, len(syms))
	for _, rec := range syms {
		node := &symtree.Symbol{
			Kind:          rec.Kind,
			Name:          rec.Name,
			QualifiedName: rec.QualifiedName,
			DocComment:    rec.DocComment,
			Span:          rec.Span,
			Modifiers:     rec.Modifiers,
			Relations:     rec.Relations,
			Signature:     rec.Signature,
			Parameters:    rec.Parameters,
			ReturnType:    rec.ReturnType,
			Unparsed:      rec.Unparsed,
			Partial:       rec.Partial,
		}
		nodes[rec.ID] = node
		if parent, ok := nodes[rec.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			tree.Roots = append(tree.Roots, node)
		}
	}
	return tree, nil
}

// Counts returns the number of stored units and symbols.
func (s *Store) Counts(ctx context.Context) (units, symbols int, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM units), (SELECT COUNT(*) FROM symbols)").Scan(&units, &symbols)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return units, symbols, nil
}
