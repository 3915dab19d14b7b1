package token

import "strings"

// Lexer is the byte-level reader language scanners are written on top of.
// A scanner marks the start of a token, advances over its bytes and emits it;
// the Lexer keeps offsets, line and column bookkeeping and forwards tokens to
// the consumer of the lazy sequence.
type Lexer struct {
	src   string
	start int
	cur   int
	line  int
	col   int

	startPos Position
	yield    func(Token) bool
	stopped  bool

	prev         Token
	lastSig      Token
	newlineSince bool
}

// NewLexer returns a Lexer over src that hands every emitted token to yield.
func NewLexer(src string, yield func(Token) bool) *Lexer {
	l := &Lexer{src: src, line: 1, col: 1, yield: yield}
	l.Mark()
	return l
}

// Src returns the full source text.
func (l *Lexer) Src() string { return l.src }

// Offset returns the current byte offset.
func (l *Lexer) Offset() int { return l.cur }

// AtEnd reports whether all input has been consumed.
func (l *Lexer) AtEnd() bool { return l.cur >= len(l.src) }

// Stopped reports whether the consumer asked for no more tokens.
func (l *Lexer) Stopped() bool { return l.stopped }

// Done reports whether scanning should end.
func (l *Lexer) Done() bool { return l.stopped || l.AtEnd() }

// Peek returns the current byte, or 0 at end of input.
func (l *Lexer) Peek() byte { return l.PeekAt(0) }

// PeekAt returns the byte n positions ahead, or 0 past the end.
func (l *Lexer) PeekAt(n int) byte {
	if l.cur+n < len(l.src) && l.cur+n >= 0 {
		return l.src[l.cur+n]
	}
	return 0
}

// HasPrefix reports whether the unread input starts with s.
func (l *Lexer) HasPrefix(s string) bool {
	return strings.HasPrefix(l.src[l.cur:], s)
}

// Rest returns the unread input.
func (l *Lexer) Rest() string { return l.src[l.cur:] }

// Advance consumes one byte and returns it.
func (l *Lexer) Advance() byte {
	if l.AtEnd() {
		return 0
	}
	b := l.src[l.cur]
	l.cur++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

// AdvanceN consumes n bytes.
func (l *Lexer) AdvanceN(n int) {
	for i := 0; i < n && !l.AtEnd(); i++ {
		l.Advance()
	}
}

// Pos returns the current position.
func (l *Lexer) Pos() Position {
	return Position{Offset: l.cur, Line: l.line, Column: l.col}
}

// Mark starts a new token at the current position.
func (l *Lexer) Mark() {
	l.start = l.cur
	l.startPos = l.Pos()
}

// Pending returns the text of the token being scanned.
func (l *Lexer) Pending() string { return l.src[l.start:l.cur] }

// AtLineStart reports whether the current position is the first column.
func (l *Lexer) AtLineStart() bool {
	return l.cur == 0 || l.src[l.cur-1] == '\n'
}

// Prev returns the last emitted token of any kind.
func (l *Lexer) Prev() Token { return l.prev }

// LastSignificant returns the last emitted non-trivia token and whether a
// newline has been emitted since.
func (l *Lexer) LastSignificant() (Token, bool) {
	return l.lastSig, l.newlineSince
}

// Emit sends the pending text as a token of the given kind. It reports false
// once the consumer has stopped.
func (l *Lexer) Emit(kind Kind) bool {
	return l.emit(Token{Kind: kind, Text: l.Pending(), Span: Span{Start: l.startPos, End: l.Pos()}})
}

// EmitUnterminated sends the pending text as a partial token carrying a LexError.
func (l *Lexer) EmitUnterminated(kind Kind, msg string) bool {
	return l.emit(Token{
		Kind:         kind,
		Text:         l.Pending(),
		Span:         Span{Start: l.startPos, End: l.Pos()},
		Unterminated: true,
		Err:          &LexError{Msg: msg, Pos: l.startPos},
	})
}

func (l *Lexer) emit(t Token) bool {
	if l.stopped {
		return false
	}
	if t.Text == "" && t.Kind != EOF {
		l.Mark()
		return true
	}
	l.prev = t
	switch {
	case t.Kind == Newline:
		l.newlineSince = true
	case !t.Kind.IsTrivia():
		l.lastSig = t
		l.newlineSince = false
	}
	if !l.yield(t) {
		l.stopped = true
	}
	l.Mark()
	return !l.stopped
}

// ScanBlanks consumes spaces, tabs, form feeds and carriage returns that are
// not part of a line break.
func (l *Lexer) ScanBlanks() {
	for !l.AtEnd() {
		switch l.Peek() {
		case ' ', '\t', '\f', '\v':
			l.Advance()
		case '\r':
			if l.PeekAt(1) == '\n' {
				return
			}
			l.Advance()
		default:
			return
		}
	}
}

// ScanNewline consumes "\n" or "\r\n" and reports whether it did.
func (l *Lexer) ScanNewline() bool {
	if l.Peek() == '\r' && l.PeekAt(1) == '\n' {
		l.AdvanceN(2)
		return true
	}
	if l.Peek() == '\n' {
		l.Advance()
		return true
	}
	return false
}

// AtNewline reports whether the current position starts a line break.
func (l *Lexer) AtNewline() bool {
	return l.Peek() == '\n' || (l.Peek() == '\r' && l.PeekAt(1) == '\n')
}

// ScanIdent consumes identifier characters.
func (l *Lexer) ScanIdent() {
	for !l.AtEnd() && IsIdentPart(l.Peek()) {
		l.Advance()
	}
}

// ScanNumber consumes a numeric literal, including hex/binary prefixes,
// underscores, fractions and exponents.
func (l *Lexer) ScanNumber() {
	if l.Peek() == '0' && strings.ContainsRune("xXbBoO", rune(l.PeekAt(1))) {
		l.AdvanceN(2)
		for !l.AtEnd() && (isHexDigit(l.Peek()) || l.Peek() == '_') {
			l.Advance()
		}
		return
	}
	l.scanDigits()
	if l.Peek() == '.' && IsDigit(l.PeekAt(1)) {
		l.Advance()
		l.scanDigits()
	}
	if (l.Peek() == 'e' || l.Peek() == 'E') && (IsDigit(l.PeekAt(1)) ||
		((l.PeekAt(1) == '+' || l.PeekAt(1) == '-') && IsDigit(l.PeekAt(2)))) {
		l.AdvanceN(2)
		l.scanDigits()
	}
	// type suffixes: 10L, 1.5f, 3r, 2i
	for !l.AtEnd() && strings.ContainsRune("lLfFdDri", rune(l.Peek())) && !IsIdentPart(l.PeekAt(1)) {
		l.Advance()
	}
}

func (l *Lexer) scanDigits() {
	for !l.AtEnd() && (IsDigit(l.Peek()) || l.Peek() == '_') {
		l.Advance()
	}
}

// SkipToLineEnd consumes up to, not including, the next line break.
func (l *Lexer) SkipToLineEnd() {
	for !l.AtEnd() && !l.AtNewline() {
		l.Advance()
	}
}

// SkipPast consumes input through the next occurrence of closer and reports
// whether it was found. When it is not, all input is consumed.
func (l *Lexer) SkipPast(closer string) bool {
	idx := strings.Index(l.src[l.cur:], closer)
	if idx < 0 {
		l.AdvanceN(len(l.src) - l.cur)
		return false
	}
	l.AdvanceN(idx + len(closer))
	return true
}

// SkipQuoted consumes a quoted literal whose opening quote has already been
// consumed. Backslash escapes are honoured when escapes is true. It reports
// whether the closing quote was found.
func (l *Lexer) SkipQuoted(quote byte, escapes bool) bool {
	for !l.AtEnd() {
		b := l.Advance()
		switch {
		case escapes && b == '\\':
			l.Advance()
		case b == quote:
			return true
		}
	}
	return false
}

// IsDigit reports whether b is an ASCII digit.
func IsDigit(b byte) bool { return b >= '0' && b <= '9' }

// IsIdentStart reports whether b can begin an identifier. Bytes of multi-byte
// UTF-8 sequences are accepted so non-ASCII names stay whole.
func IsIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b >= 0x80
}

// IsIdentPart reports whether b can continue an identifier.
func IsIdentPart(b byte) bool { return IsIdentStart(b) || IsDigit(b) }

func isHexDigit(b byte) bool {
	return IsDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
