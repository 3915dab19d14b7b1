// Package symtree extracts a language-agnostic tree of declarations from
// source text. Language front-ends (scanner plus recognizer pairs) live in
// internal/parsers and are looked up through a Registry; this package owns the
// shared model, the scope tracker, the doc extractor and the parse engine.
package symtree

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// Kind is the shared declaration vocabulary every front-end maps onto.
type Kind string

const (
	KindModule    Kind = "module"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindTrait     Kind = "trait"
	KindMethod    Kind = "method"
	KindFunction  Kind = "function"
)

// IsTypeLike reports whether symbols of this kind can hold members.
func (k Kind) IsTypeLike() bool {
	switch k {
	case KindClass, KindInterface, KindTrait, KindModule:
		return true
	}
	return false
}

// IsCallable reports whether k is a method or function.
func (k Kind) IsCallable() bool {
	return k == KindMethod || k == KindFunction
}

// RelationKind names a structural relationship between a type and a target.
type RelationKind string

const (
	RelationExtends    RelationKind = "extends"
	RelationImplements RelationKind = "implements"
	RelationIncludes   RelationKind = "includes"
	RelationUses       RelationKind = "uses"
)

// Relation is a reference from a symbol to another named type.
type Relation struct {
	Kind   RelationKind `json:"kind"`
	Target string       `json:"target"`
}

// Parameter is one entry of a callable's parameter list.
type Parameter struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Default string `json:"default,omitempty"`
}

// Common modifier values. Front-ends may add language-specific ones
// (visibility keywords, final, abstract, readonly, ...).
const (
	ModifierStatic      = "static"
	ModifierReopened    = "reopened"
	ModifierMixin       = "mixin"
	ModifierNamespace   = "namespace"
	ModifierDSL         = "dsl"
	ModifierConstructor = "constructor"
	ModifierEnum        = "enum"
	ModifierAbstract    = "abstract"
)

// Symbol is one recognized declaration. Children are owned exclusively.
type Symbol struct {
	Kind          Kind        `json:"kind"`
	Name          string      `json:"name"`
	QualifiedName string      `json:"qualified_name"`
	DocComment    string      `json:"doc_comment,omitempty"`
	Span          token.Span  `json:"span"`
	Modifiers     []string    `json:"modifiers,omitempty"`
	Relations     []Relation  `json:"relations,omitempty"`
	Signature     string      `json:"signature,omitempty"`
	Parameters    []Parameter `json:"parameters,omitempty"`
	ReturnType    string      `json:"return_type,omitempty"`
	// Unparsed is set when the header was recognized but its signature could not be.
	Unparsed bool `json:"unparsed,omitempty"`
	// Partial is set on symbols whose block never closed.
	Partial  bool      `json:"partial,omitempty"`
	Children []*Symbol `json:"children,omitempty"`
}

// HasModifier reports whether m is among the symbol's modifiers.
func (s *Symbol) HasModifier(m string) bool {
	return slices.Contains(s.Modifiers, m)
}

// AddModifier appends m unless it is already present.
func (s *Symbol) AddModifier(m string) {
	if m != "" && !s.HasModifier(m) {
		s.Modifiers = append(s.Modifiers, m)
	}
}

// AddRelation appends a relation unless an identical one exists.
func (s *Symbol) AddRelation(kind RelationKind, target string) {
	if target == "" {
		return
	}
	r := Relation{Kind: kind, Target: target}
	if !slices.Contains(s.Relations, r) {
		s.Relations = append(s.Relations, r)
	}
}

// Child returns the first direct child with the given name.
func (s *Symbol) Child(name string) *Symbol {
	for _, c := range s.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Symbol) Clone() *Symbol {
	if s == nil {
		return nil
	}
	c := *s
	c.Modifiers = slices.Clone(s.Modifiers)
	c.Relations = slices.Clone(s.Relations)
	c.Parameters = slices.Clone(s.Parameters)
	c.Children = nil
	for _, ch := range s.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return &c
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.QualifiedName)
}

// SymbolTree is the ordered forest of top-level symbols of one source unit.
type SymbolTree struct {
	Roots []*Symbol `json:"roots"`
}

// Count returns the number of symbols in the tree.
func (t *SymbolTree) Count() int {
	n := 0
	Walk(t, func(*Symbol, int) bool { n++; return true })
	return n
}

// Clone returns a deep copy of the tree.
func (t *SymbolTree) Clone() *SymbolTree {
	if t == nil {
		return nil
	}
	c := &SymbolTree{}
	for _, r := range t.Roots {
		c.Roots = append(c.Roots, r.Clone())
	}
	return c
}

// SourceUnit is one input text tagged with its language.
type SourceUnit struct {
	ID       uuid.UUID     `json:"id"`
	Language string        `json:"language"`
	Text     string        `json:"-"`
	Tokens   []token.Token `json:"-"`
}

// ParseResult is everything a parse produces. Partial is true whenever an
// Error diagnostic was reported; the tree then holds what could be built.
type ParseResult struct {
	Unit        *SourceUnit  `json:"unit"`
	Tree        *SymbolTree  `json:"tree"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	Partial     bool         `json:"partial"`
}

// Errors returns the error-severity diagnostics.
func (r *ParseResult) Errors() []Diagnostic {
	return r.filter(SeverityError)
}

// Warnings returns the warning-severity diagnostics.
func (r *ParseResult) Warnings() []Diagnostic {
	return r.filter(SeverityWarning)
}

func (r *ParseResult) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Clone returns a deep copy sharing no symbols with r. Tokens are dropped.
func (r *ParseResult) Clone() *ParseResult {
	if r == nil {
		return nil
	}
	c := &ParseResult{
		Tree:        r.Tree.Clone(),
		Diagnostics: slices.Clone(r.Diagnostics),
		Partial:     r.Partial,
	}
	if r.Unit != nil {
		u := *r.Unit
		u.Tokens = nil
		c.Unit = &u
	}
	return c
}
