package parsers

import (
	"github.com/mvp-joe/symtree/internal/symtree"
)

// modeAnonymous marks the body of an anonymous class. Declarations inside it
// are not reported.
const modeAnonymous = "anonymous"

func openEvent(start, end int, closer string) symtree.Event {
	return symtree.Event{Kind: symtree.EventOpen, Closer: closer, Start: start, End: end}
}

func closeEvent(at int, closer string) symtree.Event {
	return symtree.Event{Kind: symtree.EventClose, Closer: closer, Start: at, End: at}
}

// memberOwner returns the type whose body is the innermost open block, or nil
// when that block is a namespace, a callable body or an opaque block.
func memberOwner(scopes *symtree.ScopeStack) *symtree.Symbol {
	top := scopes.Top()
	if top == nil || !top.Declares() || top.Symbol.HasModifier(symtree.ModifierNamespace) {
		return nil
	}
	return top.Symbol
}

// inAnonymous reports whether the innermost symbol-owning or anonymous block
// is an anonymous class body.
func inAnonymous(scopes *symtree.ScopeStack) bool {
	f := scopes.Nearest(func(f *symtree.Frame) bool {
		return f.Mode == modeAnonymous || f.Symbol != nil
	})
	return f != nil && f.Mode == modeAnonymous
}
