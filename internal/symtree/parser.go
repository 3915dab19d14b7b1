package symtree

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// Parser turns source text into a ParseResult using the front-ends of a registry.
// A Parser holds no per-parse state and may be shared between goroutines.
type Parser struct {
	registry *Registry
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth limits how deeply blocks may nest before content is ignored.
func WithMaxDepth(n int) Option {
	return func(p *Parser) { p.maxDepth = n }
}

// NewParser returns a parser resolving languages through reg.
func NewParser(reg *Registry, opts ...Option) *Parser {
	p := &Parser{registry: reg, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the registry the parser resolves languages with.
func (p *Parser) Registry() *Registry { return p.registry }

// Parse extracts the symbol tree of text written in lang. The only error
// returned is *UnknownLanguageError; every other problem is reported as a
// diagnostic in the result.
func (p *Parser) Parse(text, lang string) (*ParseResult, error) {
	fe, err := p.registry.Resolve(lang)
	if err != nil {
		return nil, err
	}
	return p.ParseWith(fe, text), nil
}

// ParseFile is Parse with the language chosen from the file name.
func (p *Parser) ParseFile(path, text string) (*ParseResult, error) {
	fe, err := p.registry.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return p.ParseWith(fe, text), nil
}

// ParseWith parses text with a specific front-end.
func (p *Parser) ParseWith(fe *Frontend, text string) *ParseResult {
	unit := &SourceUnit{ID: uuid.New(), Language: fe.Language, Text: text}
	rec := fe.NewRecognizer()
	r := &run{
		rec:    rec,
		cur:    token.NewCursor(fe.Scanner.Scan(text)),
		scopes: NewScopeStack(p.maxDepth),
	}
	if q, ok := rec.(Qualifier); ok {
		r.b = NewBuilder(q)
	} else {
		r.b = NewBuilder(nil)
	}
	if f, ok := rec.(Finisher); ok {
		r.finisher = f
	}
	defer r.cur.Close()

	r.execute()
	return r.result(unit)
}

// Parse parses text with the process-wide registry.
func Parse(text, lang string) (*ParseResult, error) {
	return NewParser(DefaultRegistry()).Parse(text, lang)
}

// run is the state of one parse.
type run struct {
	rec      Recognizer
	finisher Finisher
	cur      *token.Cursor
	scopes   *ScopeStack
	b        *Builder
	diags    []Diagnostic
	// overflow counts blocks opened past the depth limit and not yet closed.
	overflow int
	// overflowIndented is set when the overflow began at an indented block,
	// which a dedent or end of input ends without a terminator.
	overflowIndented bool
	overflowIndent   int
}

func (r *run) execute() {
	defer func() {
		if v := recover(); v != nil {
			t := r.cur.Peek(0)
			r.diags = append(r.diags, errorDiag(CodeInternal, t.Span, nil,
				"recognizer failed near %s: %v", t.Span.Start, v))
			r.drainRemaining()
		}
	}()
	for !r.cur.EOF() {
		before := r.cur.Pos()
		ev := r.rec.Recognize(r.cur, r.scopes)
		if r.cur.Pos() <= before {
			r.cur.Seek(before + 1)
		}
		r.handle(ev)
	}
	r.closeAtEOF()
}

// drainRemaining pulls the rest of the input so lexical errors are still reported.
func (r *run) drainRemaining() {
	for !r.cur.EOF() {
		r.cur.Next()
	}
	r.closeAtEOF()
}

func (r *run) handle(ev Event) {
	switch ev.Kind {
	case EventNone:
		if ev.Unknown != "" {
			r.unknown(ev)
		}
	case EventDeclaration:
		r.declare(ev)
	case EventOpen:
		r.open(ev)
	case EventClose:
		r.close(ev)
	case EventDedent:
		r.dedent(ev)
	}
}

func (r *run) unknown(ev Event) {
	start := r.cur.At(ev.Start)
	err := &UnknownDeclarationError{Construct: ev.Unknown, Pos: start.Span.Start}
	r.diags = append(r.diags, warning(CodeUnknownDeclaration, start.Span, err, "%s", err.Error()))
}

func (r *run) declare(ev Event) {
	if ev.Header == nil {
		return
	}
	if r.overflow > 0 {
		if ev.Body == BodyBlock {
			r.overflow++
		}
		return
	}
	if ev.Body == BodyImplicit {
		r.closeImplicit(ev.Start)
	}

	startTok := r.cur.At(ev.Start)
	sym := NewSymbol(ev.Header)
	sym.Span = token.Span{Start: startTok.Span.Start, End: r.cur.At(ev.End).Span.End}
	if sym.Kind.IsCallable() && r.scopes.InStaticScope() {
		sym.AddModifier(ModifierStatic)
	}

	switch ev.Body {
	case BodyBlock, BodyImplicit, BodyIndented:
		frame := Frame{
			Symbol:   sym,
			Closer:   ev.Closer,
			Implicit: ev.Body != BodyBlock,
			Indent:   ev.Indent,
			Static:   ev.Static,
			Mode:     ev.Mode,
			Opener:   startTok,
		}
		parent := r.scopes.CurrentSymbol()
		if err := r.scopes.Push(frame); err != nil {
			r.depthExceeded(startTok, err)
			r.overflowIndented = ev.Body == BodyIndented
			r.overflowIndent = ev.Indent
			return
		}
		r.b.Append(parent, sym)
	default:
		r.b.Append(r.scopes.CurrentSymbol(), sym)
		r.finish(sym)
	}

	r.attachDoc(sym, ev.Start)
	if sym.Unparsed {
		r.diags = append(r.diags, warning(CodeUnparsedSignature, startTok.Span, nil,
			"could not parse the signature of %s %s", sym.Kind, sym.Name))
	}
}

func (r *run) attachDoc(sym *Symbol, start int) {
	doc := ExtractDoc(r.cur.Buffered(), start)
	switch {
	case doc.Found:
		sym.DocComment = doc.Text
	case doc.Discarded:
		r.diags = append(r.diags, warning(CodeDocDiscarded, doc.Span, nil,
			"comment is separated from %s %s by a blank line and was not attached", sym.Kind, sym.Name))
	}
}

func (r *run) open(ev Event) {
	if r.overflow > 0 {
		r.overflow++
		return
	}
	if ev.Unknown != "" {
		r.unknown(ev)
	}
	startTok := r.cur.At(ev.Start)
	frame := Frame{
		Symbol:   ev.Attach,
		Borrowed: ev.Attach != nil,
		Closer:   ev.Closer,
		Static:   ev.Static,
		Mode:     ev.Mode,
		Opener:   startTok,
	}
	if err := r.scopes.Push(frame); err != nil {
		r.depthExceeded(startTok, err)
	}
}

func (r *run) depthExceeded(at token.Token, err error) {
	r.overflow = 1
	r.diags = append(r.diags, errorDiag(CodeDepthExceeded, at.Span, err,
		"blocks nest deeper than %d; content ignored until they close", r.scopes.MaxDepth()))
}

func (r *run) close(ev Event) {
	if r.overflow > 0 {
		r.overflow--
		return
	}
	closeTok := r.cur.At(ev.End)
	idx := r.scopes.Find(ev.Closer)
	if idx < 0 {
		err := &UnbalancedScopeError{Closer: ev.Closer, Pos: closeTok.Span.Start}
		r.diags = append(r.diags, errorDiag(CodeUnbalancedScope, closeTok.Span, err, "%s", err.Error()))
		return
	}
	for r.scopes.Len()-1 > idx {
		f, _ := r.scopes.Pop()
		if f.Implicit {
			r.endFrame(f, r.lastSignificantEnd(ev.Start), false)
			continue
		}
		err := &UnbalancedScopeError{Opener: describe(f), Closer: ev.Closer, Pos: f.Opener.Span.Start}
		r.diags = append(r.diags, errorDiag(CodeUnbalancedScope, f.Opener.Span, err, "%s", err.Error()))
		r.endFrame(f, closeTok.Span.Start, true)
	}
	f, _ := r.scopes.Pop()
	r.endFrame(f, closeTok.Span.End, false)
}

// dedent ends the frames above ev.Depth. Indented and other implicit frames
// end silently; a terminated block cut off by the dedent is unbalanced.
func (r *run) dedent(ev Event) {
	if r.overflow > 0 && r.overflowIndented && ev.Indent <= r.overflowIndent {
		r.overflow = 0
		r.overflowIndented = false
	}
	end := r.lastSignificantEnd(ev.Start)
	for r.scopes.Len() > max(ev.Depth, 0) {
		f, _ := r.scopes.Pop()
		if f.Implicit {
			r.endFrame(f, end, false)
			continue
		}
		err := &UnbalancedScopeError{Opener: describe(f), Pos: f.Opener.Span.Start}
		r.diags = append(r.diags, errorDiag(CodeUnbalancedScope, f.Opener.Span, err, "%s", err.Error()))
		r.endFrame(f, end, true)
	}
}

// closeImplicit ends implicit frames on top of the stack before a new
// implicit sibling starts at token index start.
func (r *run) closeImplicit(start int) {
	for {
		top := r.scopes.Top()
		if top == nil || !top.Implicit {
			return
		}
		f, _ := r.scopes.Pop()
		r.endFrame(f, r.lastSignificantEnd(start), false)
	}
}

func (r *run) closeAtEOF() {
	eof := r.cur.At(r.cur.Pos())
	end := r.lastSignificantEnd(r.cur.Pos())
	for r.scopes.Len() > 0 {
		f, _ := r.scopes.Pop()
		if f.Implicit {
			r.endFrame(f, end, false)
			continue
		}
		err := &UnbalancedScopeError{Opener: describe(f), Pos: f.Opener.Span.Start}
		r.diags = append(r.diags, errorDiag(CodeUnbalancedScope, f.Opener.Span, err, "%s", err.Error()))
		r.endFrame(f, eof.Span.End, true)
	}
	if r.overflow > 0 && !r.overflowIndented {
		err := &UnbalancedScopeError{Opener: "blocks past the depth limit", Pos: eof.Span.End}
		r.diags = append(r.diags, errorDiag(CodeUnbalancedScope, eof.Span, err, "%s", err.Error()))
		r.overflow = 0
	}
}

func (r *run) endFrame(f Frame, end token.Position, partial bool) {
	if f.Symbol == nil || f.Borrowed {
		return
	}
	if end.Offset < f.Symbol.Span.End.Offset {
		end = f.Symbol.Span.End
	}
	f.Symbol.Span.End = end
	f.Symbol.Partial = partial
	r.finish(f.Symbol)
}

func (r *run) finish(sym *Symbol) {
	if r.finisher != nil {
		r.finisher.Finish(sym)
	}
}

// lastSignificantEnd returns the end of the last non-trivia token before index i.
func (r *run) lastSignificantEnd(i int) token.Position {
	for j := i - 1; j >= 0; j-- {
		t := r.cur.At(j)
		if !t.Kind.IsTrivia() {
			return t.Span.End
		}
	}
	return r.cur.At(0).Span.Start
}

func (r *run) result(unit *SourceUnit) *ParseResult {
	unit.Tokens = r.cur.Buffered()
	for _, t := range unit.Tokens {
		if t.Err != nil {
			r.diags = append(r.diags, errorDiag(CodeLex, t.Span, t.Err, "%s", t.Err.Error()))
		}
	}
	tree := r.b.Tree()
	r.diags = append(r.diags, Validate(tree)...)
	slices.SortStableFunc(r.diags, func(a, b Diagnostic) int {
		return cmp.Compare(a.Span.Start.Offset, b.Span.Start.Offset)
	})

	res := &ParseResult{Unit: unit, Tree: tree, Diagnostics: r.diags}
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			res.Partial = true
			break
		}
	}
	return res
}

func describe(f Frame) string {
	if f.Symbol != nil && !f.Borrowed {
		return fmt.Sprintf("%s %s", f.Symbol.Kind, f.Symbol.Name)
	}
	if f.Opener.Text != "" {
		return fmt.Sprintf("block %q", f.Opener.Text)
	}
	return "block"
}
