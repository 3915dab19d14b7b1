package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/parsers"
)

// Test Plan for file collection:
// - Directories are walked in lexical order, keeping files with a front-end
// - Ignored directories and files are skipped, also for relative paths
// - Explicit file arguments are kept even without a known language
// - Duplicates are dropped and missing paths are errors
// - Invalid ignore globs are rejected

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestFileFilter_Collect(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"b.php":              "<?php\nclass B {}\n",
		"a.rb":               "module A\nend\n",
		"notes.txt":          "not code",
		"src/geo/Shape.java": "package geo;\nclass Shape {}\n",
		"vendor/gem/lib.rb":  "module Gem\nend\n",
		"node_modules/x.php": "<?php\n",
	})

	filter, err := newFileFilter(parsers.Default(), config.Default().Paths.Ignore)
	require.NoError(t, err)

	files, err := filter.collect([]string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.rb"),
		filepath.Join(root, "b.php"),
		filepath.Join(root, "src", "geo", "Shape.java"),
	}, files)
}

func TestFileFilter_ExplicitFilesAndDuplicates(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.rb":      "module A\nend\n",
		"notes.txt": "not code",
	})
	a := filepath.Join(root, "a.rb")
	notes := filepath.Join(root, "notes.txt")

	filter, err := newFileFilter(parsers.Default(), nil)
	require.NoError(t, err)

	files, err := filter.collect([]string{notes, a, root})
	require.NoError(t, err)
	assert.Equal(t, []string{notes, a}, files)

	_, err = filter.collect([]string{filepath.Join(root, "missing.rb")})
	assert.Error(t, err)
}

func TestFileFilter_RelativeIgnore(t *testing.T) {
	t.Parallel()

	filter, err := newFileFilter(parsers.Default(), []string{"**/vendor/**", "**/*_spec.rb"})
	require.NoError(t, err)

	assert.True(t, filter.ignoredDir("vendor"))
	assert.True(t, filter.ignored("lib/cart_spec.rb"))
	assert.False(t, filter.ignored("lib/cart.rb"))
	assert.True(t, filter.accept("lib/cart.rb"))
	assert.False(t, filter.accept("lib/cart_spec.rb"))
	assert.False(t, filter.accept("README.md"))
}

func TestFileFilter_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := newFileFilter(parsers.Default(), []string{"{unclosed"})
	assert.Error(t, err)
}
