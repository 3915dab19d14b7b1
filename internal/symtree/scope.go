package symtree

import (
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// DefaultMaxDepth bounds scope nesting when no limit is configured.
const DefaultMaxDepth = 256

// Frame is one open block on the scope stack.
type Frame struct {
	// Symbol is the declaration that owns the block; nil for opaque blocks
	// (control flow, literals, unknown declarations).
	Symbol *Symbol
	// Borrowed frames attach members to a symbol opened elsewhere
	// (class << self, Foo.class_eval do). Closing them does not end the symbol.
	Borrowed bool
	// Closer is the terminator text that ends the block ("}", "end").
	Closer string
	// Implicit frames have no terminator: they end at the next sibling of the
	// same construct (PHP "namespace X;", Java "package"), when a dedent
	// unwinds them (Python blocks) or at end of input.
	Implicit bool
	// Indent is the indentation width of the header line of an indented block.
	Indent int
	// Static marks members declared in the block as receiver-qualified.
	Static bool
	// Visibility is the default visibility for members declared next.
	Visibility string
	// Mode is free-form recognizer state for the block.
	Mode string
	// Opener is the token that opened the block.
	Opener token.Token
}

// Declares reports whether the frame directly holds member declarations of a
// type-like symbol.
func (f *Frame) Declares() bool {
	return f.Symbol != nil && f.Symbol.Kind.IsTypeLike()
}

// ScopeStack tracks open blocks with an explicit stack so deeply nested input
// fails with a diagnostic rather than exhausting the goroutine stack.
type ScopeStack struct {
	frames   []Frame
	maxDepth int
}

// NewScopeStack returns an empty stack limited to maxDepth frames
// (DefaultMaxDepth when maxDepth <= 0).
func NewScopeStack(maxDepth int) *ScopeStack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &ScopeStack{maxDepth: maxDepth}
}

// Len returns the number of open frames.
func (s *ScopeStack) Len() int { return len(s.frames) }

// MaxDepth returns the nesting limit.
func (s *ScopeStack) MaxDepth() int { return s.maxDepth }

// Push opens a frame.
func (s *ScopeStack) Push(f Frame) error {
	if len(s.frames) >= s.maxDepth {
		return ErrDepthExceeded
	}
	s.frames = append(s.frames, f)
	return nil
}

// Pop removes and returns the top frame.
func (s *ScopeStack) Pop() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f, true
}

// Top returns the innermost frame, or nil when the stack is empty.
func (s *ScopeStack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return &s.frames[len(s.frames)-1]
}

// At returns the frame at depth i, 0 being the outermost.
func (s *ScopeStack) At(i int) *Frame {
	if i < 0 || i >= len(s.frames) {
		return nil
	}
	return &s.frames[i]
}

// Nearest returns the innermost frame matching pred.
func (s *ScopeStack) Nearest(pred func(*Frame) bool) *Frame {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if pred(&s.frames[i]) {
			return &s.frames[i]
		}
	}
	return nil
}

// NearestSymbolFrame returns the innermost frame that owns or borrows a symbol.
func (s *ScopeStack) NearestSymbolFrame() *Frame {
	return s.Nearest(func(f *Frame) bool { return f.Symbol != nil })
}

// CurrentSymbol returns the symbol new declarations are attached to, or nil at top level.
func (s *ScopeStack) CurrentSymbol() *Symbol {
	if f := s.NearestSymbolFrame(); f != nil {
		return f.Symbol
	}
	return nil
}

// InStaticScope reports whether any enclosing frame up to the nearest symbol
// frame marks members static.
func (s *ScopeStack) InStaticScope() bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Static {
			return true
		}
		if s.frames[i].Symbol != nil {
			return false
		}
	}
	return false
}

// Lookup returns the innermost open symbol with the given qualified or simple name.
func (s *ScopeStack) Lookup(name string) *Symbol {
	for i := len(s.frames) - 1; i >= 0; i-- {
		sym := s.frames[i].Symbol
		if sym != nil && (sym.QualifiedName == name || sym.Name == name) {
			return sym
		}
	}
	return nil
}

// Find returns the depth of the innermost frame closed by closer, or -1.
func (s *ScopeStack) Find(closer string) int {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if !s.frames[i].Implicit && s.frames[i].Closer == closer {
			return i
		}
	}
	return -1
}

// IndentedDepth returns how many frames stay open when a line starts at
// indentation width indent: indented frames whose header is at indent or
// deeper are unwound from the top.
func (s *ScopeStack) IndentedDepth(indent int) int {
	d := len(s.frames)
	for d > 0 && s.frames[d-1].Implicit && s.frames[d-1].Indent >= indent {
		d--
	}
	return d
}

// Frames returns the open frames, outermost first. The slice must not be modified.
func (s *ScopeStack) Frames() []Frame { return s.frames }
