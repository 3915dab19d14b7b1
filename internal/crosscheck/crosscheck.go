// Package crosscheck compares symbol trees against an independent
// tree-sitter parse of the same text. Each grammar reduces its syntax tree to
// the shape the parser produces (kind, name, nesting depth) so the two can be
// diffed declaration by declaration.
package crosscheck

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// ErrUnsupported is returned for languages without a reference grammar.
var ErrUnsupported = errors.New("no reference grammar for language")

// Decl is one declaration in the compared shape.
type Decl struct {
	Kind  symtree.Kind `json:"kind"`
	Name  string       `json:"name"`
	Depth int          `json:"depth"`
	Line  int          `json:"line"`
}

func (d Decl) String() string {
	return fmt.Sprintf("%s %s (depth %d, line %d)", d.Kind, d.Name, d.Depth, d.Line)
}

type declKey struct {
	kind  symtree.Kind
	name  string
	depth int
}

func (d Decl) key() declKey { return declKey{d.Kind, d.Name, d.Depth} }

// Report is the outcome of one comparison.
type Report struct {
	Language  string `json:"language"`
	Reference []Decl `json:"reference"`
	Parsed    []Decl `json:"parsed"`
	// Missing holds reference declarations the parser did not produce.
	Missing []Decl `json:"missing,omitempty"`
	// Extra holds parsed declarations with no reference counterpart.
	Extra []Decl `json:"extra,omitempty"`
	// SyntaxErrors is set when tree-sitter itself could not parse the text
	// cleanly; mismatches are then expected.
	SyntaxErrors bool `json:"syntax_errors,omitempty"`
}

// OK reports whether both sides agree.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0
}

// Checker holds the reference grammars. It is safe for concurrent use; every
// call creates its own tree-sitter parser.
type Checker struct {
	grammars map[string]*grammar
}

// New returns a checker with the Ruby, PHP, Java and Python grammars.
func New() *Checker {
	c := &Checker{grammars: make(map[string]*grammar)}
	for _, g := range []*grammar{newRubyGrammar(), newPHPGrammar(), newJavaGrammar(), newPythonGrammar()} {
		c.grammars[g.lang] = g
	}
	return c
}

// Supports reports whether lang has a reference grammar.
func (c *Checker) Supports(lang string) bool {
	_, ok := c.grammars[lang]
	return ok
}

// Languages returns the supported language names, sorted.
func (c *Checker) Languages() []string {
	out := make([]string, 0, len(c.grammars))
	for l := range c.grammars {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Reference parses source with the tree-sitter grammar for lang.
func (c *Checker) Reference(ctx context.Context, lang string, source []byte) ([]Decl, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	g, ok := c.grammars[lang]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupported, lang)
	}
	return g.parse(source)
}

// Check compares res against the reference parse of its own text.
func (c *Checker) Check(ctx context.Context, res *symtree.ParseResult) (*Report, error) {
	if res == nil || res.Unit == nil {
		return nil, errors.New("nil parse result")
	}
	ref, syntaxErrors, err := c.Reference(ctx, res.Unit.Language, []byte(res.Unit.Text))
	if err != nil {
		return nil, err
	}

	parsed := Declarations(res.Tree)
	report := &Report{
		Language:     res.Unit.Language,
		Reference:    ref,
		Parsed:       parsed,
		SyntaxErrors: syntaxErrors,
	}
	report.Missing, report.Extra = diff(ref, parsed)
	return report, nil
}

// Declarations reduces a symbol tree to the compared shape. DSL blocks and
// reopened-by-eval scopes have no grammar counterpart: they are dropped and
// their children keep the parent's depth.
func Declarations(t *symtree.SymbolTree) []Decl {
	if t == nil {
		return nil
	}
	var out []Decl
	var visit func(syms []*symtree.Symbol, depth int)
	visit = func(syms []*symtree.Symbol, depth int) {
		for _, s := range syms {
			if s.HasModifier(symtree.ModifierDSL) || s.HasModifier(symtree.ModifierReopened) {
				visit(s.Children, depth)
				continue
			}
			out = append(out, Decl{Kind: s.Kind, Name: s.Name, Depth: depth, Line: s.Span.Start.Line})
			visit(s.Children, depth+1)
		}
	}
	visit(t.Roots, 0)
	return out
}

// diff matches declarations by kind, name and depth, in order.
func diff(ref, parsed []Decl) (missing, extra []Decl) {
	pending := make(map[declKey][]int)
	for i, d := range parsed {
		pending[d.key()] = append(pending[d.key()], i)
	}
	matched := make([]bool, len(parsed))
	for _, d := range ref {
		q := pending[d.key()]
		if len(q) == 0 {
			missing = append(missing, d)
			continue
		}
		matched[q[0]] = true
		pending[d.key()] = q[1:]
	}
	for i, d := range parsed {
		if !matched[i] {
			extra = append(extra, d)
		}
	}
	return missing, extra
}
