// Package hierarchy builds a directed graph of type relations (extends,
// implements, includes, uses) across parsed units. Edges point from a type
// to the type it relates to; targets that were never declared become
// external vertices.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/symtree/internal/storage"
	"github.com/mvp-joe/symtree/internal/symtree"
)

// ErrUnknownType is returned by queries naming a type that is not in the graph.
var ErrUnknownType = errors.New("unknown type")

// Type is one vertex: a declared type-like symbol or an external target.
type Type struct {
	QualifiedName string       `json:"qualified_name"`
	Name          string       `json:"name"`
	Kind          symtree.Kind `json:"kind,omitempty"`
	// Paths lists the units declaring the type; reopened types have several.
	Paths     []string           `json:"paths,omitempty"`
	Relations []symtree.Relation `json:"-"`
	External  bool               `json:"external,omitempty"`
}

// Link is a resolved relation between two vertices.
type Link struct {
	From string               `json:"from"`
	To   string               `json:"to"`
	Kind symtree.RelationKind `json:"kind"`
}

// Hierarchy is an immutable relation graph.
type Hierarchy struct {
	g      graph.Graph[string, *Type]
	byName map[string][]string
	links  []Link
}

const relationAttr = "relation"

// Build resolves the relations of types and returns the graph. Types sharing
// a qualified name are folded into one vertex.
func Build(types []Type) (*Hierarchy, error) {
	h := &Hierarchy{
		g:      graph.New(func(t *Type) string { return t.QualifiedName }, graph.Directed()),
		byName: make(map[string][]string),
	}

	var declared []*Type
	for i := range types {
		t := types[i]
		if existing, err := h.g.Vertex(t.QualifiedName); err == nil {
			for _, p := range t.Paths {
				if !slices.Contains(existing.Paths, p) {
					existing.Paths = append(existing.Paths, p)
				}
			}
			for _, r := range t.Relations {
				if !slices.Contains(existing.Relations, r) {
					existing.Relations = append(existing.Relations, r)
				}
			}
			continue
		}
		node := &t
		if err := h.g.AddVertex(node); err != nil {
			return nil, fmt.Errorf("failed to add type %s: %w", t.QualifiedName, err)
		}
		h.byName[t.Name] = append(h.byName[t.Name], t.QualifiedName)
		declared = append(declared, node)
	}

	for _, t := range declared {
		for _, rel := range t.Relations {
			target := h.resolve(t, rel.Target)
			if target == t.QualifiedName {
				continue
			}
			if _, err := h.g.Vertex(target); errors.Is(err, graph.ErrVertexNotFound) {
				ext := &Type{QualifiedName: target, Name: lastSegment(target), External: true}
				if err := h.g.AddVertex(ext); err != nil {
					return nil, fmt.Errorf("failed to add external type %s: %w", target, err)
				}
			}
			err := h.g.AddEdge(t.QualifiedName, target, graph.EdgeAttribute(relationAttr, string(rel.Kind)))
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to link %s to %s: %w", t.QualifiedName, target, err)
			}
			h.links = append(h.links, Link{From: t.QualifiedName, To: target, Kind: rel.Kind})
		}
	}
	return h, nil
}

// FromTrees collects the type-like symbols of every tree, keyed by unit path.
func FromTrees(trees map[string]*symtree.SymbolTree) (*Hierarchy, error) {
	paths := make([]string, 0, len(trees))
	for p := range trees {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var types []Type
	for _, p := range paths {
		symtree.Walk(trees[p], func(s *symtree.Symbol, _ int) bool {
			if s.Kind.IsTypeLike() {
				types = append(types, Type{
					QualifiedName: s.QualifiedName,
					Name:          s.Name,
					Kind:          s.Kind,
					Paths:         []string{p},
					Relations:     slices.Clone(s.Relations),
				})
			}
			return true
		})
	}
	return Build(types)
}

// FromStore builds the graph from every type stored in s.
func FromStore(ctx context.Context, s *storage.Store) (*Hierarchy, error) {
	var types []Type
	for _, kind := range []symtree.Kind{symtree.KindModule, symtree.KindClass, symtree.KindInterface, symtree.KindTrait} {
		syms, err := s.FindSymbols(ctx, storage.SymbolQuery{Kind: kind})
		if err != nil {
			return nil, fmt.Errorf("failed to load %s symbols: %w", kind, err)
		}
		for _, sym := range syms {
			types = append(types, Type{
				QualifiedName: sym.QualifiedName,
				Name:          sym.Name,
				Kind:          sym.Kind,
				Paths:         []string{sym.Path},
				Relations:     sym.Relations,
			})
		}
	}
	return Build(types)
}

// resolve maps a relation target written inside from to a vertex name: a
// sibling in from's namespace, an exact qualified name, or the only declared
// type with that simple name. Anything else is an external name.
func (h *Hierarchy) resolve(from *Type, target string) string {
	name := normalizeTarget(target)
	if ns := strings.TrimSuffix(from.QualifiedName, from.Name); ns != "" {
		if _, err := h.g.Vertex(ns + name); err == nil {
			return ns + name
		}
	}
	if _, err := h.g.Vertex(name); err == nil {
		return name
	}
	if matches := h.byName[lastSegment(name)]; len(matches) == 1 {
		return matches[0]
	}
	return name
}

// normalizeTarget drops a leading root separator and generic arguments.
func normalizeTarget(target string) string {
	t := strings.TrimPrefix(strings.TrimPrefix(target, `\`), "::")
	if i := strings.IndexByte(t, '<'); i > 0 {
		t = t[:i]
	}
	return t
}

func lastSegment(name string) string {
	i := strings.LastIndexAny(name, `\.:`)
	return name[i+1:]
}

// Lookup returns the vertex for a qualified name, or for a simple name when
// exactly one type carries it.
func (h *Hierarchy) Lookup(name string) (*Type, error) {
	if t, err := h.g.Vertex(name); err == nil {
		return t, nil
	}
	if matches := h.byName[name]; len(matches) == 1 {
		return h.g.Vertex(matches[0])
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
}

// Parents returns the direct relations of name.
func (h *Hierarchy) Parents(name string) ([]Link, error) {
	t, err := h.Lookup(name)
	if err != nil {
		return nil, err
	}
	var out []Link
	for _, l := range h.links {
		if l.From == t.QualifiedName {
			out = append(out, l)
		}
	}
	return out, nil
}

// Children returns the direct relations pointing at name.
func (h *Hierarchy) Children(name string) ([]Link, error) {
	t, err := h.Lookup(name)
	if err != nil {
		return nil, err
	}
	var out []Link
	for _, l := range h.links {
		if l.To == t.QualifiedName {
			out = append(out, l)
		}
	}
	return out, nil
}

// Ancestors returns every type reachable from name, nearest first. Siblings
// keep declaration order.
func (h *Hierarchy) Ancestors(name string) ([]string, error) {
	t, err := h.Lookup(name)
	if err != nil {
		return nil, err
	}
	return h.walk(t.QualifiedName, func(l Link) (string, string) { return l.From, l.To }), nil
}

// Descendants returns every type that reaches name, nearest first.
func (h *Hierarchy) Descendants(name string) ([]string, error) {
	t, err := h.Lookup(name)
	if err != nil {
		return nil, err
	}
	return h.walk(t.QualifiedName, func(l Link) (string, string) { return l.To, l.From }), nil
}

// walk is a breadth-first search over the links, oriented by dir.
func (h *Hierarchy) walk(start string, dir func(Link) (from, to string)) []string {
	next := make(map[string][]string)
	for _, l := range h.links {
		from, to := dir(l)
		if !slices.Contains(next[from], to) {
			next[from] = append(next[from], to)
		}
	}

	seen := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next[cur] {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
				queue = append(queue, n)
			}
		}
	}
	return out
}

// Cycles returns each group of types that reach one another, sorted.
func (h *Hierarchy) Cycles() ([][]string, error) {
	sccs, err := graph.StronglyConnectedComponents(h.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute components: %w", err)
	}
	var out [][]string
	for _, c := range sccs {
		if len(c) > 1 {
			sort.Strings(c)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out, nil
}

// Types returns every vertex sorted by qualified name.
func (h *Hierarchy) Types() ([]*Type, error) {
	adj, err := h.g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	out := make([]*Type, 0, len(adj))
	for name := range adj {
		t, err := h.g.Vertex(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out, nil
}

// Links returns every resolved relation in declaration order.
func (h *Hierarchy) Links() []Link {
	return slices.Clone(h.links)
}

// Relation returns the relation kind of the edge from one type to another.
func (h *Hierarchy) Relation(from, to string) (symtree.RelationKind, bool) {
	e, err := h.g.Edge(from, to)
	if err != nil {
		return "", false
	}
	return symtree.RelationKind(e.Properties.Attributes[relationAttr]), true
}
