package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/hierarchy"
	"github.com/mvp-joe/symtree/internal/storage"
	"github.com/mvp-joe/symtree/internal/watcher"
)

// Test Plan for CLI commands:
// - parse prints an outline per file and JSON on request
// - parse reads stdin with --lang, and --strict fails on partial units
// - parse reports files with an unknown language
// - check passes clean files and fails on tree-sitter mismatches
// - index stores units and symbols, and --prune drops vanished files
// - hierarchy answers type queries from files and from the index
// - hierarchy reports cycles
// - languages lists the front-ends with configured patterns
// - newLogger honours level and format
// - formatNumber and printUpdate render as expected

const (
	cartSource = `# A shopping cart.
class Cart < Base
  include Enumerable

  def total(tax = 0)
  end
end
`
	modelsSource = `<?php
namespace App;

abstract class Model {}

class User extends Model implements \JsonSerializable {
    public function name(string $prefix = ""): string {}
}
`
	shapeSource = `package geo;

public class Shape {
    public double area() { return 0; }
}
`
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "symbols.db")
	return cfg
}

func sourceTree(t *testing.T) string {
	t.Helper()
	return writeTree(t, map[string]string{
		"lib/cart.rb":          cartSource,
		"app/Models.php":       modelsSource,
		"src/geo/Shape.java":   shapeSource,
		"vendor/ignored/x.rb":  "class Ignored\nend\n",
		"docs/architecture.md": "# not code",
	})
}

func TestRunParse_Tree(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)
	cart := filepath.Join(root, "lib", "cart.rb")

	var out bytes.Buffer
	err := runParse(context.Background(), nil, &out, testConfig(t), quietLogger(), []string{cart}, parseOptions{Format: formatTree})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, cart+" (ruby)")
	assert.Contains(t, text, "  class Cart")
	assert.Contains(t, text, "extends Base")
	assert.Contains(t, text, "includes Enumerable")
	assert.Contains(t, text, "    method Cart::total(tax = 0)")
	assert.NotContains(t, text, "partial")
}

func TestRunParse_Python(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"pkg/shapes.py": "class Shape(Base):\n    def area(self, scale: float = 1.0) -> float:\n        return 0\n",
	})

	var out bytes.Buffer
	err := runParse(context.Background(), nil, &out, testConfig(t), quietLogger(), []string{root}, parseOptions{Format: formatTree, Strict: true})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "(python)")
	assert.Contains(t, text, "  class Shape")
	assert.Contains(t, text, "extends Base")
	assert.Contains(t, text, "    method Shape.area(self, scale: float = 1.0): float")
}

func TestRunParse_JSONDirectory(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)

	var out bytes.Buffer
	err := runParse(context.Background(), nil, &out, testConfig(t), quietLogger(), []string{root}, parseOptions{Format: formatJSON})
	require.NoError(t, err)

	var units []struct {
		Path   string `json:"path"`
		Result struct {
			Unit struct {
				Language string `json:"language"`
			} `json:"unit"`
			Tree struct {
				Roots []struct {
					Kind          string `json:"kind"`
					QualifiedName string `json:"qualified_name"`
				} `json:"roots"`
			} `json:"tree"`
			Partial bool `json:"partial"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &units))
	require.Len(t, units, 3, "vendor and markdown files are skipped")

	langs := map[string]string{}
	for _, u := range units {
		langs[filepath.Base(u.Path)] = u.Result.Unit.Language
		assert.False(t, u.Result.Partial)
		assert.NotEmpty(t, u.Result.Tree.Roots)
	}
	assert.Equal(t, map[string]string{"Models.php": "php", "cart.rb": "ruby", "Shape.java": "java"}, langs)
}

func TestRunParse_StdinAndStrict(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	var out bytes.Buffer
	err := runParse(context.Background(), strings.NewReader("class Open\n  def x\n"), &out, cfg, quietLogger(), nil,
		parseOptions{Stdin: true, Lang: "ruby", Format: formatTree})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "<stdin> (ruby) partial")
	assert.Contains(t, out.String(), "  ! ")

	err = runParse(context.Background(), strings.NewReader("class Open\n  def x\n"), io.Discard, cfg, quietLogger(), nil,
		parseOptions{Stdin: true, Lang: "ruby", Format: formatTree, Strict: true})
	assert.ErrorIs(t, err, ErrPartial)

	err = runParse(context.Background(), strings.NewReader("x"), io.Discard, cfg, quietLogger(), nil,
		parseOptions{Stdin: true, Format: formatTree})
	assert.ErrorContains(t, err, "--lang is required")

	out.Reset()
	err = runParse(context.Background(), strings.NewReader(""), &out, cfg, quietLogger(), nil,
		parseOptions{Stdin: true, Lang: "ruby", Format: formatTree, Strict: true})
	require.NoError(t, err)
	assert.Equal(t, "<stdin> (ruby)\n", out.String())
}

func TestRunParse_Errors(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)
	cfg := testConfig(t)

	err := runParse(context.Background(), nil, io.Discard, cfg, quietLogger(),
		[]string{filepath.Join(root, "docs", "architecture.md")}, parseOptions{Format: formatTree})
	assert.ErrorContains(t, err, "1 of 1 files failed")

	err = runParse(context.Background(), nil, io.Discard, cfg, quietLogger(), nil, parseOptions{Format: formatTree})
	assert.ErrorContains(t, err, "no files given")

	err = runParse(context.Background(), nil, io.Discard, cfg, quietLogger(), []string{root}, parseOptions{Format: "xml"})
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunParse_LangOverride(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"Rakefile.task": "module Tasks\nend\n"})

	var out bytes.Buffer
	err := runParse(context.Background(), nil, &out, testConfig(t), quietLogger(),
		[]string{filepath.Join(root, "Rakefile.task")}, parseOptions{Lang: "ruby", Format: formatTree})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "module Tasks")
}

func TestRunCheck(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)
	cfg := testConfig(t)

	var out bytes.Buffer
	err := runCheck(context.Background(), &out, cfg, quietLogger(), []string{root}, checkOptions{Format: formatTree})
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "3 files checked, 0 failed")

	// A broken Java class body: tree-sitter recovers differently.
	broken := writeTree(t, map[string]string{"Broken.java": "class A {\n  void m() {\n"})
	out.Reset()
	err = runCheck(context.Background(), &out, cfg, quietLogger(), []string{broken}, checkOptions{Format: formatJSON})
	if err != nil {
		assert.ErrorIs(t, err, ErrCheckFailed)
	}

	var results []checkResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	require.NotNil(t, results[0].CrossCheck)
	assert.True(t, results[0].CrossCheck.SyntaxErrors)
}

func TestRunIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := sourceTree(t)
	cfg := testConfig(t)
	db := filepath.Join(t.TempDir(), "nested", "index.db")

	var out bytes.Buffer
	err := runIndex(ctx, &out, io.Discard, cfg, quietLogger(), []string{root}, indexOptions{DB: db})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Indexed 3 files")

	store, err := storage.Open(db, nil)
	require.NoError(t, err)
	units, err := store.Units(ctx)
	require.NoError(t, err)
	require.Len(t, units, 3)
	require.NoError(t, store.Close())

	// Remove a file and re-index only the remaining tree with pruning.
	require.NoError(t, os.Remove(filepath.Join(root, "lib", "cart.rb")))
	out.Reset()
	err = runIndex(ctx, &out, io.Discard, cfg, quietLogger(), []string{root}, indexOptions{DB: db, Prune: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Pruned:  1")

	store, err = storage.Open(db, nil)
	require.NoError(t, err)
	defer store.Close()
	units, err = store.Units(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 2)
}

func TestRunIndex_Quiet(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)
	var out bytes.Buffer
	err := runIndex(context.Background(), &out, io.Discard, testConfig(t), quietLogger(), []string{root},
		indexOptions{DB: filepath.Join(t.TempDir(), "q.db"), Quiet: true})
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestRunHierarchy_FromFiles(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)
	cfg := testConfig(t)

	var out bytes.Buffer
	err := runHierarchy(context.Background(), &out, cfg, quietLogger(), []string{root},
		hierarchyOptions{Type: "App\\User", Format: formatJSON})
	require.NoError(t, err)

	var rep struct {
		Type        hierarchy.Type   `json:"type"`
		Parents     []hierarchy.Link `json:"parents"`
		Ancestors   []string         `json:"ancestors"`
		Descendants []string         `json:"descendants"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, "App\\User", rep.Type.QualifiedName)
	assert.Equal(t, []string{"App\\Model", "JsonSerializable"}, rep.Ancestors)
	assert.Empty(t, rep.Descendants)

	out.Reset()
	err = runHierarchy(context.Background(), &out, cfg, quietLogger(), []string{root},
		hierarchyOptions{Type: "Model", Format: formatTree})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "class App\\Model")
	assert.Contains(t, out.String(), "descendants:\n  App\\User\n")

	err = runHierarchy(context.Background(), io.Discard, cfg, quietLogger(), []string{root},
		hierarchyOptions{Type: "Nope", Format: formatTree})
	assert.ErrorIs(t, err, hierarchy.ErrUnknownType)
}

func TestRunHierarchy_FromIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := sourceTree(t)
	cfg := testConfig(t)

	err := runHierarchy(ctx, io.Discard, cfg, quietLogger(), nil, hierarchyOptions{Format: formatTree})
	assert.ErrorContains(t, err, "run symtree index first")

	require.NoError(t, runIndex(ctx, io.Discard, io.Discard, cfg, quietLogger(), []string{root}, indexOptions{Quiet: true}))

	var out bytes.Buffer
	err = runHierarchy(ctx, &out, cfg, quietLogger(), nil, hierarchyOptions{Format: formatTree})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "class Cart extends Base includes Enumerable\n")
	assert.Contains(t, out.String(), "class App\\User extends App\\Model implements JsonSerializable\n")
}

func TestRunHierarchy_Cycles(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"loop.rb": "class A < C\nend\nclass B < A\nend\nclass C < B\nend\n",
	})

	var out bytes.Buffer
	err := runHierarchy(context.Background(), &out, testConfig(t), quietLogger(), []string{root},
		hierarchyOptions{Cycles: true, Format: formatTree})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "cycle: A -> B -> C")
}

func TestRunLanguages(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Parser.Languages = []config.LanguagePattern{{Pattern: "*.thor", Language: "ruby"}}

	var out bytes.Buffer
	require.NoError(t, runLanguages(&out, cfg))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "LANGUAGE"))
	assert.True(t, strings.HasPrefix(lines[1], "ruby"))
	assert.Contains(t, lines[1], "*.thor")
	assert.Contains(t, lines[1], "yes")
	assert.True(t, strings.HasPrefix(lines[2], "php"))
	assert.True(t, strings.HasPrefix(lines[3], "java"))
	assert.True(t, strings.HasPrefix(lines[4], "python"))
	assert.Contains(t, lines[4], "*.py")
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "path", "a.rb")

	assert.NotContains(t, buf.String(), "hidden")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "a.rb", entry["path"])

	buf.Reset()
	newLogger(&buf, config.LogConfig{Level: "debug", Format: "text"}).Debug("details")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.n))
	}
}

func TestPrintUpdate(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printUpdate(&out, watcher.Update{Path: "gone.rb", Removed: true})
	printUpdate(&out, watcher.Update{Path: "bad.txt", Err: assert.AnError})
	assert.Equal(t, "- gone.rb\n✗ bad.txt: "+assert.AnError.Error()+"\n", out.String())
}

func TestRunWatch_StopsOnCancel(t *testing.T) {
	t.Parallel()

	root := sourceTree(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- runWatch(ctx, &out, testConfig(t), quietLogger(), []string{root}, watchOptions{Debounce: 50 * time.Millisecond})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}
