package parsers

import (
	"iter"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

var javaKeywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true,
}

var javaOperators = newOperatorSet(
	">>>=", "<<=", ">>=", ">>>", "...", "->", "::", "==", "!=", "<=", ">=", "&&", "||",
	"++", "--", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>",
)

// JavaScanner tokenizes Java source.
type JavaScanner struct{}

// Scan implements token.Scanner.
func (JavaScanner) Scan(src string) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		l := token.NewLexer(src, yield)
		for !l.Done() {
			scanJava(l)
		}
	}
}

func scanJava(l *token.Lexer) {
	b := l.Peek()
	switch {
	case l.AtNewline():
		l.ScanNewline()
		l.Emit(token.Newline)
	case b == ' ' || b == '\t' || b == '\f' || b == '\v' || b == '\r':
		scanBlanks(l)
	case b == '/' && l.PeekAt(1) == '/':
		l.SkipToLineEnd()
		l.Emit(token.CommentLine)
	case b == '/' && l.PeekAt(1) == '*':
		scanBlockComment(l, "/*", "*/")
	case b == '"' && l.HasPrefix(`"""`):
		scanTextBlock(l)
	case b == '"' || b == '\'':
		scanQuoted(l, b)
	case token.IsDigit(b) || (b == '.' && token.IsDigit(l.PeekAt(1))):
		l.ScanNumber()
		l.Emit(token.Number)
	case token.IsIdentStart(b) || b == '$':
		for !l.AtEnd() && (token.IsIdentPart(l.Peek()) || l.Peek() == '$') {
			l.Advance()
		}
		if javaKeywords[l.Pending()] {
			l.Emit(token.Keyword)
		} else {
			l.Emit(token.Identifier)
		}
	default:
		scanSymbolOrOperator(l, javaOperators)
	}
}

// scanTextBlock consumes a """ text block; escaped quotes do not close it.
func scanTextBlock(l *token.Lexer) {
	l.AdvanceN(3)
	for !l.AtEnd() {
		switch {
		case l.Peek() == '\\':
			l.AdvanceN(2)
		case l.HasPrefix(`"""`):
			l.AdvanceN(3)
			l.Emit(token.StringLiteral)
			return
		default:
			l.Advance()
		}
	}
	l.EmitUnterminated(token.StringLiteral, "unterminated text block")
}
