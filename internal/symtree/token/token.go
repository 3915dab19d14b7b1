// Package token defines the lexical token model shared by every language scanner,
// a byte-level lexer helper the scanners are built on, and a lazily filled cursor
// the declaration recognizers read from.
package token

import (
	"fmt"
	"iter"
)

// Kind classifies a token independently of the source language.
type Kind uint8

const (
	EOF Kind = iota
	Identifier
	Keyword
	StringLiteral
	Number
	CommentLine
	CommentBlock
	Operator
	Punctuation
	Whitespace
	Newline
	// Text is source outside the language proper (PHP inline markup, Ruby __END__ data).
	Text
)

var kindNames = [...]string{
	EOF:           "eof",
	Identifier:    "identifier",
	Keyword:       "keyword",
	StringLiteral: "string",
	Number:        "number",
	CommentLine:   "comment_line",
	CommentBlock:  "comment_block",
	Operator:      "operator",
	Punctuation:   "punctuation",
	Whitespace:    "whitespace",
	Newline:       "newline",
	Text:          "text",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsComment reports whether k is a line or block comment.
func (k Kind) IsComment() bool {
	return k == CommentLine || k == CommentBlock
}

// IsTrivia reports whether k carries no syntax (whitespace, newlines, comments).
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Newline || k.IsComment()
}

// Position is a location in source text. Offset is a byte offset, Line and
// Column are 1-based.
type Position struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is the half-open byte range [Start.Offset, End.Offset).
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return s.Start.Offset <= o.Start.Offset && o.End.Offset <= s.End.Offset
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start.Offset < o.End.Offset && o.Start.Offset < s.End.Offset
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// Token is one lexical unit. Unterminated tokens (strings, comments, heredocs
// that reach end of input) carry a *LexError in Err.
type Token struct {
	Kind         Kind
	Text         string
	Span         Span
	Unterminated bool
	Err          error
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// IsKeyword reports whether the token is the keyword kw.
func (t Token) IsKeyword(kw string) bool {
	return t.Is(Keyword, kw)
}

// IsPunct reports whether the token is the punctuation or operator p.
func (t Token) IsPunct(p string) bool {
	return (t.Kind == Punctuation || t.Kind == Operator) && t.Text == p
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%s", t.Kind, t.Text, t.Span.Start)
}

// Scanner turns source text into a lazy token sequence. Implementations must
// be safe to call from multiple goroutines: each call owns its own state.
type Scanner interface {
	Scan(src string) iter.Seq[Token]
}

// LexError describes a malformed token. Scanners never stop on a LexError;
// they emit the partial token and carry on.
type LexError struct {
	Msg string
	Pos Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}
