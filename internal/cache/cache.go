// Package cache keeps recent parse results in memory so unchanged source is
// not parsed twice. Entries are keyed by language and text, bounded by the
// number of symbols they hold and expire after a TTL.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// ErrInvalidCapacity is returned by New for a non-positive capacity.
var ErrInvalidCapacity = errors.New("cache capacity must be positive")

// Options configures a Cache.
type Options struct {
	// Capacity bounds the total cost of cached entries. One entry costs one
	// plus the number of symbols in its tree.
	Capacity int
	// TTL expires entries this long after they were stored. Zero disables expiry.
	TTL    time.Duration
	Logger *slog.Logger
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Ratio   float64 `json:"ratio"`
	Entries int     `json:"entries"`
}

// Cache stores parse results. Results are deep-copied on the way in and out
// so callers never share a tree with the cache or with each other. A nil
// *Cache is valid and caches nothing.
type Cache struct {
	store  otter.Cache[string, *symtree.ParseResult]
	logger *slog.Logger
}

// New builds a cache from opts.
func New(opts Options) (*Cache, error) {
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, opts.Capacity)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	builder := otter.MustBuilder[string, *symtree.ParseResult](opts.Capacity).
		CollectStats().
		Cost(func(_ string, res *symtree.ParseResult) uint32 {
			return uint32(res.Tree.Count()) + 1
		})

	var (
		store otter.Cache[string, *symtree.ParseResult]
		err   error
	)
	if opts.TTL > 0 {
		store, err = builder.WithTTL(opts.TTL).Build()
	} else {
		store, err = builder.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build parse cache: %w", err)
	}

	return &Cache{store: store, logger: logger.With("component", "cache")}, nil
}

// Get returns a copy of the cached result for text in language.
func (c *Cache) Get(language, text string) (*symtree.ParseResult, bool) {
	if c == nil {
		return nil, false
	}
	res, ok := c.store.Get(Key(language, text))
	if !ok {
		return nil, false
	}
	return res.Clone(), true
}

// Put stores a copy of res. Results too large for the cache are dropped.
func (c *Cache) Put(language, text string, res *symtree.ParseResult) {
	if c == nil || res == nil {
		return
	}
	key := Key(language, text)
	if !c.store.Set(key, res.Clone()) {
		c.logger.Debug("result rejected", "key", ShortKey(key), "symbols", res.Tree.Count())
	}
}

// Invalidate drops the entry for text in language.
func (c *Cache) Invalidate(language, text string) {
	if c == nil {
		return
	}
	c.store.Delete(Key(language, text))
}

// Parse returns the cached result for text or parses it with p and caches
// the outcome. Unknown languages are not cached.
func (c *Cache) Parse(p *symtree.Parser, text, language string) (*symtree.ParseResult, error) {
	fe, err := p.Registry().Resolve(language)
	if err != nil {
		return nil, err
	}
	return c.parseWith(p, fe, text), nil
}

// ParseFile is Parse with the language chosen from the file name.
func (c *Cache) ParseFile(p *symtree.Parser, path, text string) (*symtree.ParseResult, error) {
	fe, err := p.Registry().ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return c.parseWith(p, fe, text), nil
}

func (c *Cache) parseWith(p *symtree.Parser, fe *symtree.Frontend, text string) *symtree.ParseResult {
	if res, ok := c.Get(fe.Language, text); ok {
		return res
	}
	res := p.ParseWith(fe, text)
	c.Put(fe.Language, text, res)
	return res
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	s := c.store.Stats()
	return Stats{
		Hits:    s.Hits(),
		Misses:  s.Misses(),
		Ratio:   s.Ratio(),
		Entries: c.store.Size(),
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.store.Clear()
}

// Close releases the cache's background resources.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}
