package storage

// Test Plan for the symbol store:
// - WriteUnit stores unit, symbols, relations and diagnostics
// - LoadTree rebuilds the parsed tree exactly (spans, docs, params, relations)
// - Rewriting a path replaces the previous unit
// - FindSymbols filters by name, qualified name, prefix, kind, language and path
// - Relations lists relations by kind with their source symbol
// - DeleteUnit reports whether a unit existed
// - A file-backed store keeps data across reopen
// - Paths containing '?', '#' or '%' open the named file with foreign keys on

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symtree/internal/parsers"
	"github.com/mvp-joe/symtree/internal/symtree"
)

const phpSrc = `<?php
namespace App;

/**
 * A user.
 */
class User extends Model implements Jsonable
{
    use HasName;

    public function rename(string $name, bool $save = true): self
    {
        return $this;
    }
}
`

const rubySrc = "class Cart < Base\n  include Enumerable\n\n  def add(item)\n  end\nend\n\nmodule Broken\n"

func parse(t *testing.T, src, lang string) *symtree.ParseResult {
	t.Helper()
	res, err := symtree.NewParser(parsers.Default()).Parse(src, lang)
	require.NoError(t, err)
	return res
}

// Test: a written unit loads back as the same tree
func TestStore_WriteAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestStore(t)
	res := parse(t, phpSrc, "php")
	require.NoError(t, s.WriteUnit(ctx, "app/User.php", res))

	unit, err := s.Unit(ctx, "app/User.php")
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, res.Unit.ID, unit.ID)
	assert.Equal(t, "php", unit.Language)
	assert.Equal(t, 3, unit.SymbolCount)
	assert.False(t, unit.Partial)
	assert.Len(t, unit.ContentHash, 64)
	assert.False(t, unit.IndexedAt.IsZero())

	tree, err := s.LoadTree(ctx, "app/User.php")
	require.NoError(t, err)
	assert.Equal(t, res.Tree, tree)

	missing, err := s.LoadTree(ctx, "nope.php")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// Test: diagnostics and partial flags are stored
func TestStore_Diagnostics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestStore(t)
	res := parse(t, rubySrc, "ruby")
	require.True(t, res.Partial)
	require.NoError(t, s.WriteUnit(ctx, "cart.rb", res))

	unit, err := s.Unit(ctx, "cart.rb")
	require.NoError(t, err)
	assert.True(t, unit.Partial)

	diags, err := s.Diagnostics(ctx, "cart.rb")
	require.NoError(t, err)
	require.Len(t, diags, len(res.Diagnostics))
	assert.Equal(t, symtree.CodeUnbalancedScope, diags[len(diags)-1].Code)
	assert.Equal(t, symtree.SeverityError, diags[len(diags)-1].Severity)

	broken, err := s.FindSymbols(ctx, SymbolQuery{QualifiedName: "Broken"})
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.True(t, broken[0].Partial)
}

// Test: writing a path again replaces its symbols
func TestStore_Replace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestStore(t)
	require.NoError(t, s.WriteUnit(ctx, "x.java", parse(t, "class A { void a() {} }", "java")))
	require.NoError(t, s.WriteUnit(ctx, "x.java", parse(t, "class B {}", "java")))

	units, syms, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, units)
	assert.Equal(t, 1, syms)

	tree, err := s.LoadTree(ctx, "x.java")
	require.NoError(t, err)
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "B", tree.Roots[0].Name)
}

// Test: symbol queries combine filters
func TestStore_FindSymbols(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestStore(t)
	require.NoError(t, s.WriteUnit(ctx, "app/User.php", parse(t, phpSrc, "php")))
	require.NoError(t, s.WriteUnit(ctx, "cart.rb", parse(t, rubySrc, "ruby")))

	tests := []struct {
		name  string
		query SymbolQuery
		want  []string
	}{
		{"all", SymbolQuery{}, []string{"App", `App\User`, `App\User::rename`, "Cart", "Cart::add", "Broken"}},
		{"by kind", SymbolQuery{Kind: symtree.KindClass}, []string{`App\User`, "Cart"}},
		{"by language", SymbolQuery{Language: "ruby"}, []string{"Cart", "Cart::add", "Broken"}},
		{"by name", SymbolQuery{Name: "rename"}, []string{`App\User::rename`}},
		{"by prefix", SymbolQuery{Prefix: `App\`}, []string{`App\User`, `App\User::rename`}},
		{"by path and kind", SymbolQuery{Path: "cart.rb", Kind: symtree.KindMethod}, []string{"Cart::add"}},
		{"limit", SymbolQuery{Limit: 2}, []string{"App", `App\User`}},
		{"no match", SymbolQuery{QualifiedName: "Nope"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syms, err := s.FindSymbols(ctx, tt.query)
			require.NoError(t, err)
			var got []string
			for _, sym := range syms {
				got = append(got, sym.QualifiedName)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	rename, err := s.FindSymbols(ctx, SymbolQuery{Name: "rename"})
	require.NoError(t, err)
	require.Len(t, rename, 1)
	assert.Equal(t, []symtree.Parameter{
		{Name: "$name", Type: "string"},
		{Name: "$save", Type: "bool", Default: "true"},
	}, rename[0].Parameters)
	assert.Equal(t, "self", rename[0].ReturnType)
	assert.Equal(t, 2, rename[0].Depth)
	assert.NotZero(t, rename[0].ParentID)
}

// Test: relations are listed with their source symbols
func TestStore_Relations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestStore(t)
	require.NoError(t, s.WriteUnit(ctx, "app/User.php", parse(t, phpSrc, "php")))
	require.NoError(t, s.WriteUnit(ctx, "cart.rb", parse(t, rubySrc, "ruby")))

	all, err := s.Relations(ctx, "")
	require.NoError(t, err)
	var got []string
	for _, r := range all {
		got = append(got, r.QualifiedName+" "+string(r.Kind)+" "+r.Target)
	}
	assert.Equal(t, []string{
		`App\User extends Model`,
		`App\User implements Jsonable`,
		`App\User uses HasName`,
		"Cart extends Base",
		"Cart includes Enumerable",
	}, got)

	extends, err := s.Relations(ctx, symtree.RelationExtends)
	require.NoError(t, err)
	require.Len(t, extends, 2)
	assert.Equal(t, symtree.KindClass, extends[1].SourceKind)
	assert.Equal(t, "cart.rb", extends[1].Path)
}

// Test: deleting units
func TestStore_DeleteUnit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTestStore(t)
	require.NoError(t, s.WriteUnit(ctx, "cart.rb", parse(t, rubySrc, "ruby")))

	ok, err := s.DeleteUnit(ctx, "cart.rb")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteUnit(ctx, "cart.rb")
	require.NoError(t, err)
	assert.False(t, ok)

	units, syms, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, units)
	assert.Zero(t, syms)

	assert.ErrorIs(t, s.WriteUnit(ctx, "x", nil), ErrNilResult)
}

// Test: a file-backed store keeps data across reopen
func TestStore_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, path := NewTestStoreFile(t)
	require.NoError(t, s.WriteUnit(ctx, "app/User.php", parse(t, phpSrc, "php")))
	require.NoError(t, s.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	units, err := reopened.Units(ctx)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "app/User.php", units[0].Path)
}

// Test: URI characters in the database path are escaped
func TestStore_OpenEscapedPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "odd?name#1%.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = os.Stat(path)
	require.NoError(t, err, "database created at the literal path")

	var fk int
	require.NoError(t, s.DB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	require.NoError(t, s.WriteUnit(ctx, "cart.rb", parse(t, rubySrc, "ruby")))
	ok, err := s.DeleteUnit(ctx, "cart.rb")
	require.NoError(t, err)
	assert.True(t, ok)

	units, syms, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, units)
	assert.Zero(t, syms)
}

func TestFileDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "file:/tmp/a%3Fb%23c.db?_foreign_keys=on&_busy_timeout=5000", fileDSN("/tmp/a?b#c.db"))
	assert.Equal(t, "file:.symtree/index.db?_foreign_keys=on&_busy_timeout=5000", fileDSN(".symtree/index.db"))
}
