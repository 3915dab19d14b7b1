package cache

// Test Plan for the parse cache:
// - New rejects a non-positive capacity
// - Parse stores the first result and serves copies afterwards
// - Mutating a returned tree never affects later hits
// - Unknown languages are returned as errors and never cached
// - Invalidate and Clear drop entries
// - A nil cache parses every time
// - Entries expire after the TTL

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symtree/internal/parsers"
	"github.com/mvp-joe/symtree/internal/symtree"
)

const rubySrc = "module Shop\n  class Cart\n    def total\n    end\n  end\nend\n"

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(Options{Capacity: 1000, TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// Test: capacity must be positive
func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Capacity: 0})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

// Test: a second parse of the same text is a hit and returns an equal tree
func TestCache_ParseHit(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0)
	p := symtree.NewParser(parsers.Default())

	first, err := c.Parse(p, rubySrc, "ruby")
	require.NoError(t, err)
	second, err := c.Parse(p, rubySrc, "rb")
	require.NoError(t, err)

	assert.Equal(t, first.Tree, second.Tree)
	assert.NotSame(t, first.Tree, second.Tree)
	assert.Equal(t, first.Unit.ID, second.Unit.ID)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

// Test: callers own the trees they get back
func TestCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0)
	p := symtree.NewParser(parsers.Default())

	res, err := c.Parse(p, rubySrc, "ruby")
	require.NoError(t, err)
	res.Tree.Roots[0].Name = "Mutated"
	res.Tree.Roots[0].Children = nil

	again, ok := c.Get("ruby", rubySrc)
	require.True(t, ok)
	assert.Equal(t, "Shop", again.Tree.Roots[0].Name)
	assert.Len(t, again.Tree.Roots[0].Children, 1)
}

// Test: file names select the language and unknown languages are not cached
func TestCache_ParseFile(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0)
	p := symtree.NewParser(parsers.Default())

	res, err := c.ParseFile(p, "app/models/cart.rb", rubySrc)
	require.NoError(t, err)
	assert.Equal(t, "ruby", res.Unit.Language)
	_, ok := c.Get("ruby", rubySrc)
	assert.True(t, ok)

	_, err = c.ParseFile(p, "main.go", "package main")
	var unknown *symtree.UnknownLanguageError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 1, c.Stats().Entries)
}

// Test: Invalidate and Clear drop entries
func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 0)
	p := symtree.NewParser(parsers.Default())

	_, err := c.Parse(p, rubySrc, "ruby")
	require.NoError(t, err)
	_, err = c.Parse(p, "class A {}", "java")
	require.NoError(t, err)

	c.Invalidate("ruby", rubySrc)
	_, ok := c.Get("ruby", rubySrc)
	assert.False(t, ok)
	_, ok = c.Get("java", "class A {}")
	assert.True(t, ok)

	c.Clear()
	_, ok = c.Get("java", "class A {}")
	assert.False(t, ok)
}

// Test: a nil cache is a pass-through
func TestCache_Nil(t *testing.T) {
	t.Parallel()

	var c *Cache
	p := symtree.NewParser(parsers.Default())

	res, err := c.Parse(p, rubySrc, "ruby")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Tree.Count())

	_, ok := c.Get("ruby", rubySrc)
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
	c.Put("ruby", rubySrc, res)
	c.Invalidate("ruby", rubySrc)
	c.Clear()
	c.Close()
}

// Test: entries expire after the TTL
func TestCache_TTL(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, 50*time.Millisecond)
	p := symtree.NewParser(parsers.Default())

	_, err := c.Parse(p, rubySrc, "ruby")
	require.NoError(t, err)
	_, ok := c.Get("ruby", rubySrc)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("ruby", rubySrc)
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}
