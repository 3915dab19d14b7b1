package crosscheck

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/mvp-joe/symtree/internal/symtree"
)

func newJavaGrammar() *grammar {
	return &grammar{
		lang:     "java",
		language: sitter.NewLanguage(java.Language()),
		classify: classifyJava,
		opaque:   set("object_creation_expression", "enum_constant"),
	}
}

func classifyJava(n *sitter.Node, source []byte, _ symtree.Kind) (match, bool) {
	switch n.Kind() {
	case "package_declaration":
		name := extractNodeText(findNamedChild(n, "scoped_identifier", "identifier"), source)
		if name == "" {
			return match{}, false
		}
		return match{kind: symtree.KindModule, name: strings.Join(strings.Fields(name), ""), trailing: true}, true
	case "class_declaration", "enum_declaration", "record_declaration":
		return match{kind: symtree.KindClass, name: fieldName(n, source)}, true
	case "interface_declaration", "annotation_type_declaration":
		return match{kind: symtree.KindInterface, name: fieldName(n, source)}, true
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration",
		"annotation_type_element_declaration":
		return match{kind: symtree.KindMethod, name: fieldName(n, source)}, true
	}
	return match{}, false
}
