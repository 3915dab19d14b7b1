package symtree

import "strings"

// Validate checks the structural invariants of a tree:
//   - children lie inside their parent's span
//   - siblings appear in source order and never overlap
//   - qualified names end with the symbol's own name and extend the parent's
//   - interface and trait symbols hold no type-like children
//
// Nesting violations are warnings; everything else is an error.
func Validate(tree *SymbolTree) []Diagnostic {
	if tree == nil {
		return nil
	}
	var diags []Diagnostic
	checkSiblings(nil, tree.Roots, &diags)
	return diags
}

func checkSiblings(parent *Symbol, syms []*Symbol, diags *[]Diagnostic) {
	for i, s := range syms {
		if s.Span.End.Offset < s.Span.Start.Offset {
			*diags = append(*diags, errorDiag(CodeInvariant, s.Span, nil,
				"%s ends before it starts", s))
		}
		if i > 0 {
			prev := syms[i-1]
			if prev.Span.Overlaps(s.Span) || prev.Span.Start.Offset > s.Span.Start.Offset {
				*diags = append(*diags, errorDiag(CodeInvariant, s.Span, nil,
					"%s overlaps or precedes its sibling %s", s, prev))
			}
		}
		if !strings.HasSuffix(s.QualifiedName, s.Name) {
			*diags = append(*diags, errorDiag(CodeInvariant, s.Span, nil,
				"qualified name %q does not end with %q", s.QualifiedName, s.Name))
		}
		if parent != nil {
			if !parent.Span.Contains(s.Span) {
				*diags = append(*diags, errorDiag(CodeInvariant, s.Span, nil,
					"%s is not contained in its parent %s", s, parent))
			}
			if !strings.HasPrefix(s.QualifiedName, parent.QualifiedName) {
				*diags = append(*diags, errorDiag(CodeInvariant, s.Span, nil,
					"qualified name %q does not extend %q", s.QualifiedName, parent.QualifiedName))
			}
			if (parent.Kind == KindInterface || parent.Kind == KindTrait) && s.Kind.IsTypeLike() {
				*diags = append(*diags, warning(CodeNestingViolation, s.Span, nil,
					"%s %s may not contain %s %s", parent.Kind, parent.Name, s.Kind, s.Name))
			}
		}
		checkSiblings(s, s.Children, diags)
	}
}
