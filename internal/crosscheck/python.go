package crosscheck

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/mvp-joe/symtree/internal/symtree"
)

func newPythonGrammar() *grammar {
	return &grammar{
		lang:     "python",
		language: sitter.NewLanguage(python.Language()),
		classify: classifyPython,
		opaque:   set("lambda"),
	}
}

// classifyPython maps class and function definitions. decorated_definition
// is transparent so the definition inside it is found.
func classifyPython(n *sitter.Node, source []byte, enclosing symtree.Kind) (match, bool) {
	switch n.Kind() {
	case "class_definition":
		return match{kind: symtree.KindClass, name: fieldName(n, source)}, true
	case "function_definition":
		kind := symtree.KindFunction
		if enclosing.IsTypeLike() {
			kind = symtree.KindMethod
		}
		return match{kind: kind, name: fieldName(n, source)}, true
	}
	return match{}, false
}
