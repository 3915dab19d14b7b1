package crosscheck

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"github.com/mvp-joe/symtree/internal/symtree"
)

func newRubyGrammar() *grammar {
	return &grammar{
		lang:     "ruby",
		language: sitter.NewLanguage(ruby.Language()),
		classify: classifyRuby,
	}
}

// classifyRuby maps class, module and def nodes. `class << self` is
// transparent: its methods belong to the enclosing type.
func classifyRuby(n *sitter.Node, source []byte, enclosing symtree.Kind) (match, bool) {
	switch n.Kind() {
	case "class":
		return match{kind: symtree.KindClass, name: fieldName(n, source)}, true
	case "module":
		return match{kind: symtree.KindModule, name: fieldName(n, source)}, true
	case "method", "singleton_method":
		kind := symtree.KindFunction
		if enclosing.IsTypeLike() {
			kind = symtree.KindMethod
		}
		return match{kind: kind, name: fieldName(n, source)}, true
	}
	return match{}, false
}
