package symtree

import (
	"iter"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// braceFrontend is a small C-like language used to exercise the engine
// without depending on the real front-ends:
//
//	class Name [extends Base] { ... }
//	interface Name { ... }
//	ns Name;               implicit namespace until the next ns
//	fn name(a, b) { ... }  or  fn name(a);
//	static { ... }         members inside are static
//	weird { ... }          opener with no symbol kind
//	block Name:            class owning the lines until a dedent
//	dedent                 closes blocks whose header is at or right of it
//	unwind                 closes every open frame
//	boom                   makes the recognizer panic
func braceFrontend() Frontend {
	return Frontend{
		Language:      "brace",
		Aliases:       []string{"br"},
		Patterns:      []string{"*.brace"},
		Scanner:       braceScanner{},
		NewRecognizer: func() Recognizer { return &braceRecognizer{} },
	}
}

var braceKeywords = map[string]bool{
	"class": true, "interface": true, "ns": true, "fn": true,
	"extends": true, "static": true, "weird": true, "boom": true,
	"block": true, "dedent": true, "unwind": true,
}

type braceScanner struct{}

func (braceScanner) Scan(src string) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		l := token.NewLexer(src, yield)
		for !l.Done() {
			b := l.Peek()
			switch {
			case l.AtNewline():
				l.ScanNewline()
				l.Emit(token.Newline)
			case b == ' ' || b == '\t':
				l.ScanBlanks()
				l.Emit(token.Whitespace)
			case l.HasPrefix("//"):
				l.SkipToLineEnd()
				l.Emit(token.CommentLine)
			case l.HasPrefix("/*"):
				l.AdvanceN(2)
				if l.SkipPast("*/") {
					l.Emit(token.CommentBlock)
				} else {
					l.EmitUnterminated(token.CommentBlock, "unterminated block comment")
				}
			case b == '"':
				l.Advance()
				if l.SkipQuoted('"', true) {
					l.Emit(token.StringLiteral)
				} else {
					l.EmitUnterminated(token.StringLiteral, "unterminated string")
				}
			case token.IsIdentStart(b):
				l.ScanIdent()
				if braceKeywords[l.Pending()] {
					l.Emit(token.Keyword)
				} else {
					l.Emit(token.Identifier)
				}
			default:
				l.Advance()
				l.Emit(token.Punctuation)
			}
		}
	}
}

type braceRecognizer struct{}

func (*braceRecognizer) Recognize(c *token.Cursor, scopes *ScopeStack) Event {
	c.SkipTrivia(false)
	start := c.Pos()
	t := c.Next()
	switch {
	case t.Kind == token.EOF:
		return Event{}
	case t.IsKeyword("class"), t.IsKeyword("interface"):
		h := &DeclarationHeader{Kind: KindClass, Name: braceIdent(c)}
		if t.Text == "interface" {
			h.Kind = KindInterface
		}
		c.SkipTrivia(false)
		if c.Peek(0).IsKeyword("extends") {
			c.Next()
			h.Relations = append(h.Relations, Relation{Kind: RelationExtends, Target: braceIdent(c)})
		}
		end := braceExpect(c, "{")
		if end < 0 {
			return Event{}
		}
		return Event{Kind: EventDeclaration, Header: h, Body: BodyBlock, Closer: "}", Start: start, End: end}
	case t.IsKeyword("ns"):
		h := &DeclarationHeader{Kind: KindModule, Name: braceIdent(c)}
		end := braceExpect(c, ";")
		if end < 0 {
			return Event{}
		}
		return Event{Kind: EventDeclaration, Header: h, Body: BodyImplicit, Start: start, End: end}
	case t.IsKeyword("fn"):
		return braceFunction(c, scopes, start)
	case t.IsKeyword("static"), t.IsKeyword("weird"):
		end := braceExpect(c, "{")
		if end < 0 {
			return Event{}
		}
		ev := Event{Kind: EventOpen, Closer: "}", Start: start, End: end, Static: t.Text == "static"}
		if t.Text == "weird" {
			ev.Unknown = "weird"
		}
		return ev
	case t.IsKeyword("block"):
		h := &DeclarationHeader{Kind: KindClass, Name: braceIdent(c)}
		end := braceExpect(c, ":")
		if end < 0 {
			return Event{}
		}
		return Event{Kind: EventDeclaration, Header: h, Body: BodyIndented, Indent: t.Span.Start.Column, Start: start, End: end}
	case t.IsKeyword("dedent"):
		col := t.Span.Start.Column
		return Event{Kind: EventDedent, Depth: scopes.IndentedDepth(col), Indent: col, Start: start, End: start}
	case t.IsKeyword("unwind"):
		return Event{Kind: EventDedent, Start: start, End: start}
	case t.IsKeyword("boom"):
		panic("boom")
	case t.IsPunct("{"):
		return Event{Kind: EventOpen, Closer: "}", Start: start, End: start}
	case t.IsPunct("}"):
		return Event{Kind: EventClose, Closer: "}", Start: start, End: start}
	}
	return Event{}
}

func braceFunction(c *token.Cursor, scopes *ScopeStack, start int) Event {
	h := &DeclarationHeader{Kind: KindFunction, Name: braceIdent(c)}
	if s := scopes.CurrentSymbol(); s != nil && (s.Kind == KindClass || s.Kind == KindInterface) {
		h.Kind = KindMethod
	}
	if braceExpect(c, "(") < 0 {
		return Event{}
	}
	for {
		c.SkipTrivia(false)
		i := c.Pos()
		t := c.Next()
		switch {
		case t.Kind == token.EOF:
			h.Unparsed = true
			return Event{Kind: EventDeclaration, Header: h, Body: BodyNone, Start: start, End: i}
		case t.IsPunct("{"):
			h.Unparsed = true
			return Event{Kind: EventDeclaration, Header: h, Body: BodyBlock, Closer: "}", Start: start, End: i}
		case t.Kind == token.Identifier:
			h.Parameters = append(h.Parameters, Parameter{Name: t.Text})
		case t.IsPunct(")"):
			if end := braceExpect(c, "{"); end >= 0 {
				return Event{Kind: EventDeclaration, Header: h, Body: BodyBlock, Closer: "}", Start: start, End: end}
			}
			end := braceExpect(c, ";")
			if end < 0 {
				end = i
			}
			return Event{Kind: EventDeclaration, Header: h, Body: BodyNone, Start: start, End: end}
		}
	}
}

func braceIdent(c *token.Cursor) string {
	c.SkipTrivia(false)
	if c.Peek(0).Kind == token.Identifier {
		return c.Next().Text
	}
	return ""
}

func braceExpect(c *token.Cursor, p string) int {
	c.SkipTrivia(false)
	if c.Peek(0).IsPunct(p) {
		i := c.Pos()
		c.Next()
		return i
	}
	return -1
}

func newBraceParser(opts ...Option) *Parser {
	reg := NewRegistry()
	if err := reg.Register(braceFrontend()); err != nil {
		panic(err)
	}
	reg.Freeze()
	return NewParser(reg, opts...)
}
