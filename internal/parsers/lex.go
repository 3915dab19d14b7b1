package parsers

import (
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// operatorSet matches the longest operator at the lexer position.
type operatorSet []string

// newOperatorSet returns ops ordered longest first.
func newOperatorSet(ops ...string) operatorSet {
	out := make(operatorSet, 0, len(ops))
	for n := 4; n >= 1; n-- {
		for _, op := range ops {
			if len(op) == n {
				out = append(out, op)
			}
		}
	}
	return out
}

func (s operatorSet) match(l *token.Lexer) string {
	for _, op := range s {
		if l.HasPrefix(op) {
			return op
		}
	}
	return ""
}

// isPunctuation reports whether b is a bracket or separator rather than an operator.
func isPunctuation(b byte) bool {
	return strings.IndexByte("()[]{},;.", b) >= 0
}

// scanSymbolOrOperator emits the operator at the lexer position, falling back
// to a single byte.
func scanSymbolOrOperator(l *token.Lexer, ops operatorSet) {
	if op := ops.match(l); op != "" {
		l.AdvanceN(len(op))
		if len(op) == 1 && isPunctuation(op[0]) {
			l.Emit(token.Punctuation)
			return
		}
		l.Emit(token.Operator)
		return
	}
	b := l.Advance()
	if isPunctuation(b) {
		l.Emit(token.Punctuation)
		return
	}
	l.Emit(token.Operator)
}

// scanBlockComment consumes a comment opened by open and closed by close.
func scanBlockComment(l *token.Lexer, open, close string) {
	l.AdvanceN(len(open))
	if l.SkipPast(close) {
		l.Emit(token.CommentBlock)
		return
	}
	l.EmitUnterminated(token.CommentBlock, "unterminated block comment")
}

// scanQuoted consumes a simple quoted literal with backslash escapes.
func scanQuoted(l *token.Lexer, quote byte) {
	l.Advance()
	if l.SkipQuoted(quote, true) {
		l.Emit(token.StringLiteral)
		return
	}
	l.EmitUnterminated(token.StringLiteral, "unterminated string literal")
}

// scanBlanks emits a run of horizontal whitespace.
func scanBlanks(l *token.Lexer) bool {
	before := l.Offset()
	l.ScanBlanks()
	if l.Offset() == before {
		return false
	}
	l.Emit(token.Whitespace)
	return true
}

// onlyBlanksBefore reports whether only spaces and tabs precede the lexer
// position on its line.
func onlyBlanksBefore(l *token.Lexer) bool {
	src := l.Src()
	for i := l.Offset() - 1; i >= 0; i-- {
		switch src[i] {
		case ' ', '\t':
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// scanHeredocBody consumes lines up to and including the closing identifier
// id. Leading blanks before the closer are allowed when indented; when
// alone is set, nothing but blanks may follow it on its line. Whatever
// follows the closer is left for the caller.
func scanHeredocBody(l *token.Lexer, id string, indented, alone bool) bool {
	for !l.AtEnd() {
		if indented {
			for l.Peek() == ' ' || l.Peek() == '\t' {
				l.Advance()
			}
		}
		if l.HasPrefix(id) && closesHeredoc(l.Rest()[len(id):], alone) {
			l.AdvanceN(len(id))
			return true
		}
		l.SkipToLineEnd()
		if !l.ScanNewline() {
			return false
		}
	}
	return false
}

func closesHeredoc(rest string, alone bool) bool {
	if alone {
		line, _, _ := strings.Cut(rest, "\n")
		return strings.TrimSpace(line) == ""
	}
	return rest == "" || !token.IsIdentPart(rest[0])
}
