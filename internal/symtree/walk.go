package symtree

// Walk visits every symbol of the tree depth-first in source order. Returning
// false from fn skips the symbol's children.
func Walk(t *SymbolTree, fn func(sym *Symbol, depth int) bool) {
	if t == nil {
		return
	}
	type item struct {
		sym   *Symbol
		depth int
	}
	stack := make([]item, 0, len(t.Roots))
	for i := len(t.Roots) - 1; i >= 0; i-- {
		stack = append(stack, item{t.Roots[i], 0})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.sym, it.depth) {
			continue
		}
		for i := len(it.sym.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{it.sym.Children[i], it.depth + 1})
		}
	}
}

// Find returns every symbol with the given qualified name, in source order.
// Reopened scopes produce more than one match.
func Find(t *SymbolTree, qualifiedName string) []*Symbol {
	var out []*Symbol
	Walk(t, func(s *Symbol, _ int) bool {
		if s.QualifiedName == qualifiedName {
			out = append(out, s)
		}
		return true
	})
	return out
}

// Lookup returns the first symbol with the given qualified name, or nil.
func Lookup(t *SymbolTree, qualifiedName string) *Symbol {
	var found *Symbol
	Walk(t, func(s *Symbol, _ int) bool {
		if found != nil {
			return false
		}
		if s.QualifiedName == qualifiedName {
			found = s
			return false
		}
		return true
	})
	return found
}

// Flatten returns all symbols in depth-first source order.
func Flatten(t *SymbolTree) []*Symbol {
	var out []*Symbol
	Walk(t, func(s *Symbol, _ int) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Merge returns a copy of t in which sibling symbols sharing kind and
// qualified name are folded into the first occurrence. Parse never merges;
// callers that want one node per logical scope opt in here. The folded
// symbol keeps the first span start and the last span end, and loses the
// reopened modifier.
func Merge(t *SymbolTree) *SymbolTree {
	if t == nil {
		return nil
	}
	return &SymbolTree{Roots: mergeSiblings(t.Roots)}
}

func mergeSiblings(syms []*Symbol) []*Symbol {
	type key struct {
		kind Kind
		name string
	}
	var out []*Symbol
	seen := make(map[key]*Symbol)
	for _, s := range syms {
		c := s.Clone()
		k := key{c.Kind, c.QualifiedName}
		if !c.Kind.IsTypeLike() {
			out = append(out, c)
			continue
		}
		first, ok := seen[k]
		if !ok {
			seen[k] = c
			out = append(out, c)
			continue
		}
		if c.Span.End.Offset > first.Span.End.Offset {
			first.Span.End = c.Span.End
		}
		if first.DocComment == "" {
			first.DocComment = c.DocComment
		}
		for _, m := range c.Modifiers {
			if m != ModifierReopened {
				first.AddModifier(m)
			}
		}
		for _, r := range c.Relations {
			first.AddRelation(r.Kind, r.Target)
		}
		first.Partial = first.Partial || c.Partial
		first.Children = append(first.Children, c.Children...)
	}
	for _, s := range out {
		s.Children = mergeSiblings(s.Children)
	}
	return out
}
