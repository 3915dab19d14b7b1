package symtree

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern  string
	glob     glob.Glob
	frontend *Frontend
}

// Registry maps language tags and file names to front-ends. It is filled
// during start-up and frozen before parsing begins; after Freeze, lookups
// take no locks.
type Registry struct {
	mu       sync.Mutex
	frozen   atomic.Bool
	byTag    map[string]*Frontend
	ordered  []*Frontend
	patterns []compiledPattern
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{byTag: make(map[string]*Frontend)}
}

// Register adds a front-end under its language tag, aliases and file patterns.
func (r *Registry) Register(fe Frontend) error {
	if fe.Language == "" || fe.Scanner == nil || fe.NewRecognizer == nil {
		return fmt.Errorf("invalid front-end %q: language, scanner and recognizer are required", fe.Language)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return ErrRegistryFrozen
	}

	tags := append([]string{fe.Language}, fe.Aliases...)
	for _, tag := range tags {
		if _, ok := r.byTag[normalizeTag(tag)]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateLanguage, tag)
		}
	}

	stored := fe
	compiled := make([]compiledPattern, 0, len(fe.Patterns))
	for _, p := range fe.Patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return fmt.Errorf("invalid pattern %q for %s: %w", p, fe.Language, err)
		}
		compiled = append(compiled, compiledPattern{pattern: p, glob: g, frontend: &stored})
	}

	for _, tag := range tags {
		r.byTag[normalizeTag(tag)] = &stored
	}
	r.ordered = append(r.ordered, &stored)
	r.patterns = append(r.patterns, compiled...)
	return nil
}

// AddPattern maps an extra file glob to an already registered language.
func (r *Registry) AddPattern(pattern, language string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return ErrRegistryFrozen
	}
	fe, ok := r.byTag[normalizeTag(language)]
	if !ok {
		return &UnknownLanguageError{Language: language}
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return fmt.Errorf("invalid pattern %q for %s: %w", pattern, language, err)
	}
	// Extra patterns take precedence over built-in ones.
	r.patterns = append([]compiledPattern{{pattern: pattern, glob: g, frontend: fe}}, r.patterns...)
	return nil
}

// Freeze ends registration. It is idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool { return r.frozen.Load() }

func (r *Registry) lock() func() {
	if r.frozen.Load() {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// Resolve returns the front-end registered for tag (case-insensitive).
func (r *Registry) Resolve(tag string) (*Frontend, error) {
	unlock := r.lock()
	defer unlock()
	if fe, ok := r.byTag[normalizeTag(tag)]; ok {
		return fe, nil
	}
	return nil, &UnknownLanguageError{Language: tag}
}

// ResolvePath returns the front-end whose file patterns match p. Patterns are
// tried against the base name first and then the whole slash-separated path.
func (r *Registry) ResolvePath(p string) (*Frontend, error) {
	unlock := r.lock()
	defer unlock()
	slashed := filepath.ToSlash(p)
	base := path.Base(slashed)
	for _, cp := range r.patterns {
		if cp.glob.Match(base) || cp.glob.Match(slashed) {
			return cp.frontend, nil
		}
	}
	lang := strings.TrimPrefix(path.Ext(base), ".")
	if lang == "" {
		lang = base
	}
	return nil, &UnknownLanguageError{Language: lang}
}

// Languages returns the canonical tags in registration order.
func (r *Registry) Languages() []string {
	unlock := r.lock()
	defer unlock()
	out := make([]string, 0, len(r.ordered))
	for _, fe := range r.ordered {
		out = append(out, fe.Language)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

var (
	defaultRegistry   = NewRegistry()
	defaultFreezeOnce sync.Once
)

// Register adds a front-end to the process-wide registry. Front-end packages
// call it from init.
func Register(fe Frontend) error {
	return defaultRegistry.Register(fe)
}

// DefaultRegistry returns the process-wide registry, freezing it on first use.
func DefaultRegistry() *Registry {
	defaultFreezeOnce.Do(defaultRegistry.Freeze)
	return defaultRegistry
}
