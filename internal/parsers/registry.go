// Package parsers holds the built-in language front-ends: hand-written
// scanners and declaration recognizers for Ruby, PHP, Java and Python.
package parsers

import (
	"fmt"
	"sync"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// Options configures the built-in front-ends.
type Options struct {
	Ruby RubyOptions
	// Patterns maps extra file globs to language tags (e.g. "*.thor" -> "ruby").
	Patterns map[string]string
}

// DefaultOptions returns the options used by Default.
func DefaultOptions() Options {
	return Options{Ruby: RubyOptions{DSLMethods: DefaultRubyDSLMethods}}
}

// Frontends returns the built-in front-ends.
func Frontends(opts Options) []symtree.Frontend {
	return []symtree.Frontend{
		NewRubyFrontend(opts.Ruby),
		NewPHPFrontend(),
		NewJavaFrontend(),
		NewPythonFrontend(),
	}
}

// NewRegistry returns a frozen registry holding the built-in front-ends.
func NewRegistry(opts Options) (*symtree.Registry, error) {
	reg := symtree.NewRegistry()
	for _, fe := range Frontends(opts) {
		if err := reg.Register(fe); err != nil {
			return nil, fmt.Errorf("register %s: %w", fe.Language, err)
		}
	}
	for pattern, lang := range opts.Patterns {
		if err := reg.AddPattern(pattern, lang); err != nil {
			return nil, fmt.Errorf("add pattern %q: %w", pattern, err)
		}
	}
	reg.Freeze()
	return reg, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *symtree.Registry
)

// Default returns the frozen built-in registry, built once.
func Default() *symtree.Registry {
	defaultOnce.Do(func() {
		reg, err := NewRegistry(DefaultOptions())
		if err != nil {
			panic(err)
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

func init() {
	for _, fe := range Frontends(DefaultOptions()) {
		if err := symtree.Register(fe); err != nil {
			panic(err)
		}
	}
}
