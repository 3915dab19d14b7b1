package parsers

import (
	"iter"
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true, "with": true, "yield": true,
}

var pythonOperators = newOperatorSet(
	"**=", "//=", ">>=", "<<=", "...", "->", ":=", "**", "//", "==", "!=", "<=", ">=",
	"<<", ">>", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
)

// PythonScanner tokenizes Python source. Line breaks inside brackets and
// after a backslash are emitted as whitespace, so every Newline token ends a
// logical line.
type PythonScanner struct{}

// Scan implements token.Scanner.
func (PythonScanner) Scan(src string) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		s := &pythonScan{l: token.NewLexer(src, yield)}
		s.run()
	}
}

type pythonScan struct {
	l *token.Lexer
	// brackets holds the open brackets of the current logical line.
	brackets []byte
}

func (s *pythonScan) run() {
	l := s.l
	for !l.Done() {
		b := l.Peek()
		switch {
		case l.AtNewline():
			s.newline()
		case b == '\\' && (l.PeekAt(1) == '\n' || (l.PeekAt(1) == '\r' && l.PeekAt(2) == '\n')):
			l.Advance()
			l.ScanNewline()
			l.Emit(token.Whitespace)
		case b == ' ' || b == '\t' || b == '\f' || b == '\v' || b == '\r':
			scanBlanks(l)
		case b == '#':
			l.SkipToLineEnd()
			l.Emit(token.CommentLine)
		case b == '"' || b == '\'':
			s.scanString(0)
		case token.IsDigit(b) || (b == '.' && token.IsDigit(l.PeekAt(1))):
			l.ScanNumber()
			if l.Peek() == 'j' || l.Peek() == 'J' {
				l.Advance()
			}
			l.Emit(token.Number)
		case token.IsIdentStart(b):
			if n := stringPrefixLen(l); n > 0 {
				s.scanString(n)
				continue
			}
			l.ScanIdent()
			if pythonKeywords[l.Pending()] {
				l.Emit(token.Keyword)
			} else {
				l.Emit(token.Identifier)
			}
		default:
			s.bracket(b)
			scanSymbolOrOperator(l, pythonOperators)
		}
	}
}

func (s *pythonScan) bracket(b byte) {
	switch b {
	case '(', '[', '{':
		s.brackets = append(s.brackets, b)
	case ')', ']', '}':
		if n := len(s.brackets); n > 0 {
			s.brackets = s.brackets[:n-1]
		}
	}
}

// newline ends the logical line unless brackets are open. A line that opens
// with def or class cannot continue an expression, so open brackets before it
// are reported and dropped.
func (s *pythonScan) newline() {
	l := s.l
	l.ScanNewline()
	if len(s.brackets) == 0 {
		l.Emit(token.Newline)
		return
	}
	if startsStatement(l.Rest()) {
		open := string(s.brackets[len(s.brackets)-1])
		s.brackets = s.brackets[:0]
		l.EmitUnterminated(token.Newline, "unclosed '"+open+"'")
		return
	}
	l.Emit(token.Whitespace)
}

func startsStatement(rest string) bool {
	line := strings.TrimLeft(rest, " \t")
	for _, kw := range []string{"def", "class", "async def"} {
		if strings.HasPrefix(line, kw) && len(line) > len(kw) && (line[len(kw)] == ' ' || line[len(kw)] == '\t') {
			return true
		}
	}
	return false
}

// stringPrefixLen returns the length of a string prefix (r, b, f, rb, ...)
// directly followed by a quote, or 0.
func stringPrefixLen(l *token.Lexer) int {
	n := 0
	for n < 2 && strings.IndexByte("rRbBuUfFtT", l.PeekAt(n)) >= 0 {
		n++
	}
	if n == 0 {
		return 0
	}
	if q := l.PeekAt(n); q == '"' || q == '\'' {
		return n
	}
	return 0
}

// scanString consumes a string literal whose prefix is n bytes long.
func (s *pythonScan) scanString(n int) {
	l := s.l
	prefix := strings.ToLower(l.Rest()[:n])
	l.AdvanceN(n)
	format := strings.ContainsAny(prefix, "ft")
	q := l.Peek()
	triple := l.HasPrefix(strings.Repeat(string(q), 3))
	if triple {
		l.AdvanceN(3)
	} else {
		l.Advance()
	}
	if s.scanStringBody(q, triple, format) {
		l.Emit(token.StringLiteral)
		return
	}
	l.EmitUnterminated(token.StringLiteral, "unterminated string literal")
}

// scanStringBody reads up to and including the closing quote. A single-quoted
// string ends at the line break when unterminated; replacement fields of
// f-strings are skipped as code so nested quotes do not close the literal.
func (s *pythonScan) scanStringBody(q byte, triple, format bool) bool {
	l := s.l
	closer := string(q)
	if triple {
		closer = strings.Repeat(closer, 3)
	}
	for !l.AtEnd() {
		switch {
		case l.Peek() == '\\':
			l.AdvanceN(2)
		case l.HasPrefix(closer):
			l.AdvanceN(len(closer))
			return true
		case !triple && l.AtNewline():
			return false
		case format && l.HasPrefix("{{"):
			l.AdvanceN(2)
		case format && l.Peek() == '{':
			l.Advance()
			if !s.skipReplacement() {
				return false
			}
		default:
			l.Advance()
		}
	}
	return false
}

func (s *pythonScan) skipReplacement() bool {
	l := s.l
	depth := 1
	for !l.AtEnd() {
		switch b := l.Peek(); {
		case b == '{':
			depth++
			l.Advance()
		case b == '}':
			depth--
			l.Advance()
			if depth == 0 {
				return true
			}
		case b == '"' || b == '\'':
			q := b
			l.Advance()
			triple := l.HasPrefix(string([]byte{q, q}))
			if triple {
				l.AdvanceN(2)
			}
			if !s.scanStringBody(q, triple, true) {
				return false
			}
		default:
			l.Advance()
		}
	}
	return false
}
