package parsers

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

var rubyKeywords = map[string]bool{
	"BEGIN": true, "END": true, "alias": true, "and": true, "begin": true, "break": true,
	"case": true, "class": true, "def": true, "defined?": true, "do": true, "else": true,
	"elsif": true, "end": true, "ensure": true, "false": true, "for": true, "if": true,
	"in": true, "module": true, "next": true, "nil": true, "not": true, "or": true,
	"redo": true, "rescue": true, "retry": true, "return": true, "self": true, "super": true,
	"then": true, "true": true, "undef": true, "unless": true, "until": true, "when": true,
	"while": true, "yield": true, "__FILE__": true, "__LINE__": true, "__ENCODING__": true,
}

// rubyValueKeywords end an expression: an operator-like character after them
// is binary (division, modulo, shift) and if/unless/while/until are modifiers.
var rubyValueKeywords = map[string]bool{
	"end": true, "self": true, "nil": true, "true": true, "false": true,
	"return": true, "break": true, "next": true, "redo": true, "retry": true,
	"super": true, "yield": true, "__FILE__": true, "__LINE__": true,
}

var rubyOperators = newOperatorSet(
	"**=", "<=>", "===", "...", "<<=", ">>=", "&&=", "||=",
	"**", "==", "!=", ">=", "<=", "&&", "||", "<<", ">>", "=~", "!~", "+=", "-=",
	"*=", "/=", "%=", "|=", "&=", "^=", "::", "..", "->", "=>", "&.",
)

// RubyScanner tokenizes Ruby source.
type RubyScanner struct{}

// Scan implements token.Scanner.
func (RubyScanner) Scan(src string) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		s := &rubyScan{l: token.NewLexer(src, yield)}
		s.run()
	}
}

type rubyHeredoc struct {
	id       string
	indented bool
}

type rubyScan struct {
	l        *token.Lexer
	heredocs []rubyHeredoc
}

func (s *rubyScan) run() {
	l := s.l
	for !l.Done() {
		b := l.Peek()
		switch {
		case l.AtNewline():
			l.ScanNewline()
			l.Emit(token.Newline)
			s.scanHeredocs()
		case b == '\\' && (l.PeekAt(1) == '\n' || (l.PeekAt(1) == '\r' && l.PeekAt(2) == '\n')):
			// line continuation
			l.Advance()
			l.ScanNewline()
			l.Emit(token.Whitespace)
		case b == ' ' || b == '\t' || b == '\f' || b == '\v' || b == '\r':
			scanBlanks(l)
		case b == '=' && l.HasPrefix("=begin") && !token.IsIdentPart(l.PeekAt(6)) && onlyBlanksBefore(l):
			s.scanEmbeddedDoc()
		case b == '_' && l.AtLineStart() && s.atEndMarker():
			l.AdvanceN(len("__END__"))
			l.Emit(token.Keyword)
			l.AdvanceN(len(l.Rest()))
			l.Emit(token.Text)
		case b == '#':
			l.SkipToLineEnd()
			l.Emit(token.CommentLine)
		case b == '?' && s.literalAllowed():
			if n := s.charLiteralLen(); n > 0 {
				l.AdvanceN(n)
				l.Emit(token.StringLiteral)
			} else {
				scanSymbolOrOperator(l, rubyOperators)
			}
		case b == '"' || b == '`':
			l.Advance()
			s.finishString(s.scanBody(b, b, true))
		case b == '\'':
			l.Advance()
			s.finishString(s.scanBody('\'', '\'', false))
		case b == ':' && l.PeekAt(1) == '"':
			l.AdvanceN(2)
			s.finishString(s.scanBody('"', '"', true))
		case b == ':' && l.PeekAt(1) != ':' && (token.IsIdentStart(l.PeekAt(1)) || l.PeekAt(1) == '@' || l.PeekAt(1) == '$'):
			s.scanSymbol()
		case b == '%' && s.literalAllowed() && s.percentLiteralStart():
			s.scanPercent()
		case b == '/' && s.literalAllowed():
			l.Advance()
			ok := s.scanBody('/', '/', true)
			for ok && strings.IndexByte("imxounse", l.Peek()) >= 0 {
				l.Advance()
			}
			s.finishString(ok)
		case b == '<' && l.HasPrefix("<<") && s.heredocStart():
			s.scanHeredocMarker()
		case b == '@':
			l.Advance()
			if l.Peek() == '@' {
				l.Advance()
			}
			if token.IsIdentStart(l.Peek()) {
				l.ScanIdent()
				l.Emit(token.Identifier)
			} else {
				l.Emit(token.Operator)
			}
		case b == '$':
			l.Advance()
			if token.IsIdentStart(l.Peek()) {
				l.ScanIdent()
			} else if !l.AtEnd() && !l.AtNewline() {
				l.Advance()
			}
			l.Emit(token.Identifier)
		case token.IsDigit(b):
			l.ScanNumber()
			l.Emit(token.Number)
		case token.IsIdentStart(b):
			s.scanIdentifier()
		default:
			scanSymbolOrOperator(l, rubyOperators)
		}
	}
}

func (s *rubyScan) atEndMarker() bool {
	if !s.l.HasPrefix("__END__") {
		return false
	}
	next := s.l.PeekAt(len("__END__"))
	return next == 0 || next == '\n' || next == '\r'
}

func (s *rubyScan) scanEmbeddedDoc() {
	l := s.l
	for !l.AtEnd() {
		l.SkipToLineEnd()
		if !l.ScanNewline() {
			break
		}
		for l.Peek() == ' ' || l.Peek() == '\t' {
			l.Advance()
		}
		if l.HasPrefix("=end") && !token.IsIdentPart(l.PeekAt(4)) {
			l.SkipToLineEnd()
			l.Emit(token.CommentBlock)
			return
		}
	}
	l.EmitUnterminated(token.CommentBlock, "unterminated =begin comment")
}

func (s *rubyScan) scanIdentifier() {
	l := s.l
	l.ScanIdent()
	if (l.Peek() == '?' || l.Peek() == '!') && l.PeekAt(1) != '=' {
		l.Advance()
	} else if (l.Peek() == '?' || l.Peek() == '!') && l.PeekAt(1) == '=' && l.PeekAt(2) == '=' {
		l.Advance()
	}
	text := l.Pending()
	if !rubyKeywords[text] || s.afterDot() || s.isLabel() {
		l.Emit(token.Identifier)
		return
	}
	l.Emit(token.Keyword)
}

// afterDot reports whether the previous token is a method-call dot, which
// makes a keyword-looking name a plain method name (x.class, y.end).
func (s *rubyScan) afterDot() bool {
	prev, nl := s.l.LastSignificant()
	return !nl && (prev.IsPunct(".") || prev.IsPunct("&."))
}

// isLabel reports whether the identifier is a hash label (class: "x").
func (s *rubyScan) isLabel() bool {
	return s.l.Peek() == ':' && s.l.PeekAt(1) != ':'
}

func (s *rubyScan) scanSymbol() {
	l := s.l
	l.Advance()
	for l.Peek() == '@' || l.Peek() == '$' {
		l.Advance()
	}
	l.ScanIdent()
	switch l.Peek() {
	case '?', '!', '=':
		if l.PeekAt(1) != '=' && l.PeekAt(1) != '>' && l.PeekAt(1) != '~' {
			l.Advance()
		}
	}
	l.Emit(token.StringLiteral)
}

// valueBefore reports whether the previous token ends an expression on the
// same line, so the next operator character is binary.
func (s *rubyScan) valueBefore() bool {
	prev, nl := s.l.LastSignificant()
	if nl {
		return false
	}
	return rubyEndsValue(prev)
}

func rubyEndsValue(t token.Token) bool {
	switch t.Kind {
	case token.Identifier, token.Number, token.StringLiteral:
		return true
	case token.Keyword:
		return rubyValueKeywords[t.Text]
	case token.Punctuation:
		return t.Text == ")" || t.Text == "]" || t.Text == "}"
	}
	return false
}

// literalAllowed decides whether '/' or '%' starts a literal: at the start of
// an expression, or after a method name separated by a space when no space
// follows (puts %w[a b], gsub /x/).
func (s *rubyScan) literalAllowed() bool {
	if !s.valueBefore() {
		return true
	}
	prev, _ := s.l.LastSignificant()
	spaced := s.l.Prev().Kind == token.Whitespace
	next := s.l.PeekAt(1)
	return prev.Kind == token.Identifier && !isRubyVariable(prev.Text) && spaced &&
		next != ' ' && next != '=' && next != '\t'
}

func isRubyVariable(name string) bool {
	return strings.HasPrefix(name, "@") || strings.HasPrefix(name, "$")
}

// charLiteralLen returns the length of a character literal (?a, ?", ?\n,
// ?\u{263a}) at the lexer position, or 0 when the '?' is an operator.
func (s *rubyScan) charLiteralLen() int {
	l := s.l
	c := l.PeekAt(1)
	n := 2
	switch {
	case c == 0 || c == ' ' || c == '\t' || c == '\n' || c == '\r':
		return 0
	case c == '\\':
		e := l.PeekAt(2)
		if e == 0 || e == '\n' {
			return 0
		}
		n = 3
		switch {
		case e == 'u' && l.PeekAt(3) == '{':
			for n < 16 && l.PeekAt(n) != '}' && l.PeekAt(n) != 0 && l.PeekAt(n) != '\n' {
				n++
			}
			if l.PeekAt(n) != '}' {
				return 0
			}
			n++
		case e == 'u' || e == 'x':
			max := 7
			if e == 'x' {
				max = 5
			}
			for n < max && isRubyHex(l.PeekAt(n)) {
				n++
			}
		case (e == 'C' || e == 'M') && l.PeekAt(3) == '-' && l.PeekAt(4) != 0:
			n = 5
		}
		return n
	case c >= utf8.RuneSelf:
		_, size := utf8.DecodeRuneInString(l.Rest()[1:])
		n = 1 + size
	}
	// ?a followed by more word characters or a quote is a ternary (x ?"a":"b").
	next := l.PeekAt(n)
	if token.IsIdentPart(next) || next == '"' || next == '\'' {
		return 0
	}
	return n
}

func isRubyHex(b byte) bool {
	return token.IsDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (s *rubyScan) percentLiteralStart() bool {
	l := s.l
	next := l.PeekAt(1)
	if strings.IndexByte("qQwWiIrsx", next) >= 0 {
		d := l.PeekAt(2)
		return d != 0 && !token.IsIdentPart(d) && d != ' ' && d != '\n' && d != '='
	}
	return strings.IndexByte("([{<|!/^", next) >= 0
}

func (s *rubyScan) scanPercent() {
	l := s.l
	l.Advance()
	interp := true
	if c := l.Peek(); token.IsIdentStart(c) {
		interp = c == 'Q' || c == 'W' || c == 'I' || c == 'r' || c == 'x'
		l.Advance()
	}
	open := l.Advance()
	s.finishString(s.scanBody(open, closingBracket(open), interp))
}

func closingBracket(b byte) byte {
	switch b {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	}
	return b
}

// scanBody consumes a literal body whose opener has been read. Nested
// brackets are counted when open and close differ; #{...} interpolation is
// skipped as code when interp is set.
func (s *rubyScan) scanBody(open, close byte, interp bool) bool {
	l := s.l
	depth := 1
	for !l.AtEnd() {
		b := l.Advance()
		switch {
		case b == '\\':
			l.Advance()
		case interp && b == '#' && l.Peek() == '{':
			l.Advance()
			if !s.skipInterpolation() {
				return false
			}
		case open != close && b == open:
			depth++
		case b == close:
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func (s *rubyScan) skipInterpolation() bool {
	l := s.l
	depth := 1
	for !l.AtEnd() {
		b := l.Advance()
		switch b {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return true
			}
		case '"', '`':
			if !s.scanBody(b, b, true) {
				return false
			}
		case '\'':
			if !s.scanBody('\'', '\'', false) {
				return false
			}
		}
	}
	return false
}

func (s *rubyScan) finishString(ok bool) {
	if ok {
		s.l.Emit(token.StringLiteral)
		return
	}
	s.l.EmitUnterminated(token.StringLiteral, "unterminated literal")
}

// heredocStart recognizes <<~ID, <<-ID, <<ID and their quoted forms.
func (s *rubyScan) heredocStart() bool {
	l := s.l
	i := 2
	squiggly := l.PeekAt(2) == '~' || l.PeekAt(2) == '-'
	if squiggly {
		i = 3
	}
	c := l.PeekAt(i)
	quoted := c == '"' || c == '\'' || c == '`'
	if !quoted && !token.IsIdentStart(c) {
		return false
	}
	if squiggly {
		return true
	}
	// Bare <<ID must look like an argument, not a shift: upper-case id and
	// either no value before or a method name followed by a space.
	if !quoted && !(c >= 'A' && c <= 'Z') && c != '_' {
		return false
	}
	return !s.valueBefore() || (l.Prev().Kind == token.Whitespace && s.prevIsMethodName())
}

func (s *rubyScan) prevIsMethodName() bool {
	prev, _ := s.l.LastSignificant()
	return prev.Kind == token.Identifier && !isRubyVariable(prev.Text)
}

func (s *rubyScan) scanHeredocMarker() {
	l := s.l
	l.AdvanceN(2)
	indented := false
	if l.Peek() == '~' || l.Peek() == '-' {
		indented = true
		l.Advance()
	}
	var id string
	if q := l.Peek(); q == '"' || q == '\'' || q == '`' {
		l.Advance()
		start := l.Offset()
		for !l.AtEnd() && l.Peek() != q && !l.AtNewline() {
			l.Advance()
		}
		id = l.Src()[start:l.Offset()]
		if l.Peek() == q {
			l.Advance()
		}
	} else {
		start := l.Offset()
		l.ScanIdent()
		id = l.Src()[start:l.Offset()]
	}
	l.Emit(token.StringLiteral)
	s.heredocs = append(s.heredocs, rubyHeredoc{id: id, indented: indented})
}

// scanHeredocs reads the bodies of heredocs opened on the line just ended.
func (s *rubyScan) scanHeredocs() {
	pending := s.heredocs
	s.heredocs = nil
	for _, h := range pending {
		if scanHeredocBody(s.l, h.id, h.indented, true) {
			s.l.Emit(token.StringLiteral)
		} else {
			s.l.EmitUnterminated(token.StringLiteral, "unterminated heredoc "+h.id)
		}
		if s.l.AtNewline() {
			s.l.ScanNewline()
			s.l.Emit(token.Newline)
		}
	}
}
