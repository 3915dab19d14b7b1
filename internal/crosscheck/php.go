package crosscheck

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/mvp-joe/symtree/internal/symtree"
)

func newPHPGrammar() *grammar {
	return &grammar{
		lang:     "php",
		language: sitter.NewLanguage(php.LanguagePHP()),
		classify: classifyPHP,
		// anonymous class bodies are opaque to the parser as well
		opaque: set("anonymous_class", "object_creation_expression"),
	}
}

func classifyPHP(n *sitter.Node, source []byte, _ symtree.Kind) (match, bool) {
	switch n.Kind() {
	case "namespace_definition":
		name := fieldName(n, source)
		if name == "" {
			return match{}, false
		}
		return match{
			kind:     symtree.KindModule,
			name:     name,
			trailing: n.ChildByFieldName("body") == nil,
		}, true
	case "class_declaration", "enum_declaration":
		return match{kind: symtree.KindClass, name: fieldName(n, source)}, true
	case "interface_declaration":
		return match{kind: symtree.KindInterface, name: fieldName(n, source)}, true
	case "trait_declaration":
		return match{kind: symtree.KindTrait, name: fieldName(n, source)}, true
	case "function_definition":
		return match{kind: symtree.KindFunction, name: fieldName(n, source)}, true
	case "method_declaration":
		return match{kind: symtree.KindMethod, name: fieldName(n, source)}, true
	}
	return match{}, false
}
