package parsers

import (
	"iter"
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// phpKeywords are matched case-insensitively; tokens keep their source spelling.
var phpKeywords = map[string]bool{
	"abstract": true, "and": true, "as": true, "break": true, "callable": true, "case": true,
	"catch": true, "class": true, "clone": true, "const": true, "continue": true,
	"declare": true, "default": true, "do": true, "echo": true, "else": true, "elseif": true,
	"empty": true, "enddeclare": true, "endfor": true, "endforeach": true, "endif": true,
	"endswitch": true, "endwhile": true, "enum": true, "extends": true, "final": true,
	"finally": true, "fn": true, "for": true, "foreach": true, "function": true,
	"global": true, "goto": true, "if": true, "implements": true, "include": true,
	"include_once": true, "instanceof": true, "insteadof": true, "interface": true,
	"isset": true, "list": true, "match": true, "namespace": true, "new": true, "or": true,
	"print": true, "private": true, "protected": true, "public": true, "readonly": true,
	"require": true, "require_once": true, "return": true, "static": true, "switch": true,
	"throw": true, "trait": true, "try": true, "unset": true, "use": true, "var": true,
	"while": true, "xor": true, "yield": true,
}

var phpOperators = newOperatorSet(
	"<=>", "===", "!==", "**=", "...", "<<=", ">>=", "??=", "?->",
	"==", "!=", "<>", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=", ".=",
	"%=", "&=", "|=", "^=", "->", "=>", "::", "<<", ">>", "??", "**",
)

// PHPScanner tokenizes PHP source. Markup outside <?php ... ?> becomes Text
// tokens; input without any open tag is scanned as code.
type PHPScanner struct{}

// Scan implements token.Scanner.
func (PHPScanner) Scan(src string) iter.Seq[token.Token] {
	return func(yield func(token.Token) bool) {
		s := &phpScan{l: token.NewLexer(src, yield), code: !strings.Contains(src, "<?")}
		s.run()
	}
}

type phpScan struct {
	l    *token.Lexer
	code bool
}

func (s *phpScan) run() {
	l := s.l
	for !l.Done() {
		if !s.code {
			s.scanMarkup()
			continue
		}
		b := l.Peek()
		switch {
		case l.AtNewline():
			l.ScanNewline()
			l.Emit(token.Newline)
		case b == ' ' || b == '\t' || b == '\f' || b == '\v' || b == '\r':
			scanBlanks(l)
		case b == '?' && l.HasPrefix("?>"):
			l.AdvanceN(2)
			l.Emit(token.Operator)
			s.code = false
		case b == '#' && l.PeekAt(1) == '[':
			s.scanAttribute()
		case b == '#' || (b == '/' && l.PeekAt(1) == '/'):
			s.scanLineComment()
		case b == '/' && l.PeekAt(1) == '*':
			scanBlockComment(l, "/*", "*/")
		case b == '\'':
			scanQuoted(l, '\'')
		case b == '"' || b == '`':
			s.scanInterpolated(b)
		case b == '<' && l.HasPrefix("<<<"):
			s.scanHeredoc()
		case b == '$' && token.IsIdentStart(l.PeekAt(1)):
			l.Advance()
			l.ScanIdent()
			l.Emit(token.Identifier)
		case token.IsDigit(b):
			l.ScanNumber()
			l.Emit(token.Number)
		case token.IsIdentStart(b):
			l.ScanIdent()
			if phpKeywords[strings.ToLower(l.Pending())] && !s.afterMember() {
				l.Emit(token.Keyword)
			} else {
				l.Emit(token.Identifier)
			}
		default:
			scanSymbolOrOperator(l, phpOperators)
		}
	}
}

// scanMarkup emits inline text up to the next open tag, then the tag itself.
func (s *phpScan) scanMarkup() {
	l := s.l
	idx := strings.Index(l.Rest(), "<?")
	if idx < 0 {
		l.AdvanceN(len(l.Rest()))
		l.Emit(token.Text)
		return
	}
	l.AdvanceN(idx)
	l.Emit(token.Text)
	rest := l.Rest()
	switch {
	case len(rest) >= 5 && strings.EqualFold(rest[:5], "<?php"):
		l.AdvanceN(5)
	case strings.HasPrefix(rest, "<?="):
		l.AdvanceN(3)
	default:
		l.AdvanceN(2)
	}
	l.Emit(token.Operator)
	s.code = true
}

// afterMember reports whether the identifier follows ->, ?-> or ::, where
// keywords are plain member names (Foo::class, $x->list).
func (s *phpScan) afterMember() bool {
	prev, nl := s.l.LastSignificant()
	return !nl && (prev.IsPunct("->") || prev.IsPunct("?->") || prev.IsPunct("::"))
}

// scanLineComment stops at the line end or a closing tag.
func (s *phpScan) scanLineComment() {
	l := s.l
	for !l.AtEnd() && !l.AtNewline() && !l.HasPrefix("?>") {
		l.Advance()
	}
	l.Emit(token.CommentLine)
}

// scanAttribute emits #[...] as one punctuation token.
func (s *phpScan) scanAttribute() {
	l := s.l
	l.AdvanceN(2)
	depth := 1
	for !l.AtEnd() {
		switch b := l.Advance(); b {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				l.Emit(token.Punctuation)
				return
			}
		case '\'', '"':
			l.SkipQuoted(b, true)
		}
	}
	l.EmitUnterminated(token.Punctuation, "unterminated attribute")
}

// scanInterpolated consumes a double-quoted or backtick string. Quotes inside
// {$...} interpolations do not end it.
func (s *phpScan) scanInterpolated(quote byte) {
	l := s.l
	l.Advance()
	depth := 0
	for !l.AtEnd() {
		b := l.Advance()
		switch {
		case b == '\\':
			l.Advance()
		case depth == 0 && b == quote:
			l.Emit(token.StringLiteral)
			return
		case b == '{' && (depth > 0 || l.Peek() == '$'):
			depth++
		case depth > 0 && b == '}':
			depth--
		case depth > 0 && (b == '\'' || b == '"'):
			l.SkipQuoted(b, true)
		}
	}
	l.EmitUnterminated(token.StringLiteral, "unterminated string literal")
}

// scanHeredoc consumes <<<ID, <<<"ID" and nowdoc <<<'ID' literals. The
// closing identifier may be indented.
func (s *phpScan) scanHeredoc() {
	l := s.l
	l.AdvanceN(3)
	for l.Peek() == ' ' || l.Peek() == '\t' {
		l.Advance()
	}
	quote := l.Peek()
	if quote == '"' || quote == '\'' {
		l.Advance()
	}
	idStart := l.Offset()
	l.ScanIdent()
	id := l.Src()[idStart:l.Offset()]
	if id == "" {
		// not a heredoc after all: emit "<<<" as an operator
		l.Emit(token.Operator)
		return
	}
	if quote == '"' || quote == '\'' {
		if l.Peek() != quote {
			l.Emit(token.Operator)
			return
		}
		l.Advance()
	}
	l.SkipToLineEnd()
	if !l.ScanNewline() || !scanHeredocBody(l, id, true, false) {
		l.EmitUnterminated(token.StringLiteral, "unterminated heredoc "+id)
		return
	}
	l.Emit(token.StringLiteral)
}
