package crosscheck

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/symtree/internal/symtree"
)

// match is what a grammar reports for a declaration node.
type match struct {
	kind symtree.Kind
	name string
	// trailing marks statement-form scopes (PHP `namespace X;`, Java
	// `package x;`) that own the sibling nodes after them.
	trailing bool
}

// grammar adapts one tree-sitter language to the shared declaration shape.
type grammar struct {
	lang     string
	language *sitter.Language
	classify func(n *sitter.Node, source []byte, enclosing symtree.Kind) (match, bool)
	// opaque node kinds are not descended into.
	opaque map[string]bool
}

// parse runs tree-sitter over source and collects the declaration shape.
// The second result reports whether the grammar found syntax errors.
func (g *grammar) parse(source []byte) ([]Decl, bool, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(g.language); err != nil {
		return nil, false, fmt.Errorf("failed to load %s grammar: %w", g.lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, false, fmt.Errorf("failed to parse %s source", g.lang)
	}
	defer tree.Close()

	root := tree.RootNode()
	var out []Decl
	g.visitChildren(root, source, 0, "", &out)
	return out, root.HasError(), nil
}

func (g *grammar) visitChildren(node *sitter.Node, source []byte, depth int, enclosing symtree.Kind, out *[]Decl) {
	cur, curEnclosing := depth, enclosing
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || g.opaque[child.Kind()] {
			continue
		}
		m, ok := g.classify(child, source, curEnclosing)
		if !ok {
			g.visitChildren(child, source, cur, curEnclosing, out)
			continue
		}
		if m.trailing {
			*out = append(*out, newDecl(m, child, depth))
			cur, curEnclosing = depth+1, m.kind
			continue
		}
		*out = append(*out, newDecl(m, child, cur))
		g.visitChildren(child, source, cur+1, m.kind, out)
	}
}

func newDecl(m match, node *sitter.Node, depth int) Decl {
	return Decl{
		Kind:  m.kind,
		Name:  m.name,
		Depth: depth,
		Line:  int(node.StartPosition().Row) + 1,
	}
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// fieldName returns the whitespace-free text of the node's name field.
func fieldName(node *sitter.Node, source []byte) string {
	return strings.Join(strings.Fields(extractNodeText(node.ChildByFieldName("name"), source)), "")
}

// findNamedChild returns the first named child whose kind is in kinds.
func findNamedChild(node *sitter.Node, kinds ...string) *sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		for _, k := range kinds {
			if child.Kind() == k {
				return child
			}
		}
	}
	return nil
}

func set(kinds ...string) map[string]bool {
	m := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}
