package symtree

import (
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// DeclarationHeader is what a recognizer knows about a declaration once its
// header has been read.
type DeclarationHeader struct {
	Kind       Kind
	Name       string
	Modifiers  []string
	Relations  []Relation
	Signature  string
	Parameters []Parameter
	ReturnType string
	// Unparsed marks a header whose parameter list could not be read.
	Unparsed bool
}

// EventKind tells the engine what structure a recognizer step found.
type EventKind uint8

const (
	// EventNone: the consumed tokens carry no structure.
	EventNone EventKind = iota
	// EventDeclaration: a declaration header was read.
	EventDeclaration
	// EventOpen: a block that declares nothing itself was opened.
	EventOpen
	// EventClose: a block terminator was read.
	EventClose
	// EventDedent: a line starts left of open indented blocks. Frames above
	// Event.Depth end at the last code token before Event.Start.
	EventDedent
)

// Body describes how a declaration's block ends.
type Body uint8

const (
	// BodyNone: the declaration has no block (abstract method, endless def).
	BodyNone Body = iota
	// BodyBlock: the block ends at Event.Closer.
	BodyBlock
	// BodyImplicit: the block ends at the next implicit sibling or end of input.
	BodyImplicit
	// BodyIndented: the block holds the lines indented past the header and
	// ends at an EventDedent that unwinds it, or at end of input.
	BodyIndented
)

// Event is the result of one Recognize step.
type Event struct {
	Kind EventKind
	// Header is set for EventDeclaration.
	Header *DeclarationHeader
	Body   Body
	// Closer is the terminator of the opened block (EventDeclaration with
	// BodyBlock, EventOpen) or the terminator read (EventClose).
	Closer string
	// Start is the token index where the construct begins; doc comments are
	// searched backward from it. End is the index of its last header token.
	Start, End int
	// Attach, for EventOpen, makes declarations inside the block children of
	// an already open symbol.
	Attach *Symbol
	// Static marks declarations inside the opened block static.
	Static bool
	// Mode seeds Frame.Mode of the opened block.
	Mode string
	// Indent seeds Frame.Indent of a BodyIndented block; for EventDedent it
	// is the indentation width of the line that caused it.
	Indent int
	// Depth, for EventDedent, is the number of frames that stay open.
	Depth int
	// Unknown names an opener that maps to no symbol kind.
	Unknown string
}

// Recognizer maps one language's declarations onto the shared vocabulary.
// Recognize reads at least one token from c, looking at the open scopes to
// decide what the tokens mean, and reports what it found. Implementations
// must not retain c or scopes between calls.
type Recognizer interface {
	Recognize(c *token.Cursor, scopes *ScopeStack) Event
}

// Qualifier joins a parent qualified name with a child name. Recognizers that
// do not implement it get "." as separator.
type Qualifier interface {
	Qualify(parent *Symbol, child *Symbol) string
}

// Finisher is implemented by recognizers that adjust a symbol once its block
// closes (for example to classify a Ruby module as mixin or namespace).
type Finisher interface {
	Finish(sym *Symbol)
}

// Frontend pairs a scanner with a recognizer for one language.
type Frontend struct {
	// Language is the canonical tag, e.g. "ruby".
	Language string
	// Aliases are extra tags resolving to this front-end, e.g. "rb".
	Aliases []string
	// Patterns are file name globs (matched against the base name and the
	// slash-separated path) that select this front-end.
	Patterns []string
	Scanner  token.Scanner
	// NewRecognizer returns a recognizer for one parse. Recognizers may keep
	// per-parse state, so a fresh one is created each time.
	NewRecognizer func() Recognizer
}
