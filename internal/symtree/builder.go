package symtree

// Builder assembles symbols into a tree in source order. It never merges,
// deduplicates or reorders: a reopened scope becomes a second sibling.
type Builder struct {
	tree      *SymbolTree
	qualifier Qualifier
}

// NewBuilder returns an empty builder. A nil qualifier joins names with ".".
func NewBuilder(q Qualifier) *Builder {
	return &Builder{tree: &SymbolTree{}, qualifier: q}
}

// Append adds sym as the last child of parent, or as the last root when
// parent is nil, and computes its qualified name.
func (b *Builder) Append(parent, sym *Symbol) {
	sym.QualifiedName = b.qualify(parent, sym)
	if parent == nil {
		b.tree.Roots = append(b.tree.Roots, sym)
		return
	}
	parent.Children = append(parent.Children, sym)
}

func (b *Builder) qualify(parent, sym *Symbol) string {
	if parent == nil {
		return sym.Name
	}
	if b.qualifier != nil {
		return b.qualifier.Qualify(parent, sym)
	}
	return parent.QualifiedName + "." + sym.Name
}

// Tree returns the tree built so far.
func (b *Builder) Tree() *SymbolTree { return b.tree }

// NewSymbol turns a recognized header into a symbol with no span yet.
func NewSymbol(h *DeclarationHeader) *Symbol {
	sym := &Symbol{
		Kind:       h.Kind,
		Name:       h.Name,
		Signature:  h.Signature,
		Parameters: h.Parameters,
		ReturnType: h.ReturnType,
		Unparsed:   h.Unparsed,
	}
	for _, m := range h.Modifiers {
		sym.AddModifier(m)
	}
	for _, r := range h.Relations {
		sym.AddRelation(r.Kind, r.Target)
	}
	return sym
}
