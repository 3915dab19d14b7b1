package symtree

import (
	"slices"
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// DocResult is the outcome of looking for a declaration's doc comment.
type DocResult struct {
	// Text is the normalized comment, empty when none is attached.
	Text string
	// Span covers the comment run that was found, attached or not.
	Span token.Span
	// Found is set when a comment run is attached to the declaration.
	Found bool
	// Discarded is set when a comment run precedes the declaration but is
	// separated from it by a blank line.
	Discarded bool
}

// ExtractDoc looks backward from tokens[declStart], the first token of a
// declaration header, for an adjacent comment run. Only whitespace and a
// single line break may separate the run from the declaration; any code in
// between means the declaration has no doc. A block comment closest to the
// declaration is taken on its own, a series of line comments is taken while
// the lines are consecutive.
func ExtractDoc(tokens []token.Token, declStart int) DocResult {
	i, newlines := skipBackBlanks(tokens, declStart-1)
	if i < 0 || !tokens[i].Kind.IsComment() || !startsLine(tokens, i) {
		return DocResult{}
	}

	run := []token.Token{tokens[i]}
	if tokens[i].Kind == token.CommentLine {
		for {
			j, nl := skipBackBlanks(tokens, i-1)
			if j < 0 || nl > 1 || tokens[j].Kind != token.CommentLine || !startsLine(tokens, j) {
				break
			}
			run = append(run, tokens[j])
			i = j
		}
		slices.Reverse(run)
	}

	span := token.Span{Start: run[0].Span.Start, End: run[len(run)-1].Span.End}
	if newlines > 1 {
		return DocResult{Span: span, Discarded: true}
	}

	parts := make([]string, 0, len(run))
	for _, t := range run {
		parts = append(parts, NormalizeComment(t.Text))
	}
	return DocResult{Text: trimBlankLines(strings.Join(parts, "\n")), Span: span, Found: true}
}

// skipBackBlanks moves i backward over whitespace and newlines and returns the
// index of the first other token together with the newlines crossed.
func skipBackBlanks(tokens []token.Token, i int) (int, int) {
	newlines := 0
	for ; i >= 0; i-- {
		switch tokens[i].Kind {
		case token.Whitespace:
		case token.Newline:
			newlines++
		default:
			return i, newlines
		}
	}
	return i, newlines
}

// startsLine reports whether only whitespace precedes tokens[i] on its line.
func startsLine(tokens []token.Token, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch tokens[j].Kind {
		case token.Whitespace:
		case token.Newline:
			return true
		default:
			return false
		}
	}
	return true
}

// NormalizeComment strips comment markers from a single comment token.
func NormalizeComment(text string) string {
	text = strings.TrimRight(text, "\r\n")
	trimmed := strings.TrimLeft(text, " \t")
	switch {
	case strings.HasPrefix(trimmed, "=begin"):
		return normalizeEmbeddedDoc(text)
	case strings.HasPrefix(trimmed, "/*"):
		return normalizeBlock(trimmed)
	case strings.HasPrefix(trimmed, "//"):
		return stripOneSpace(strings.TrimLeft(trimmed, "/"))
	case strings.HasPrefix(trimmed, "#"):
		return stripOneSpace(strings.TrimLeft(trimmed, "#"))
	}
	return trimmed
}

// normalizeEmbeddedDoc drops the =begin and =end lines and keeps the body verbatim.
func normalizeEmbeddedDoc(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "=begin") || strings.HasPrefix(t, "=end") {
			continue
		}
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return trimBlankLines(strings.Join(out, "\n"))
}

func normalizeBlock(text string) string {
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimLeft(text, "*")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		t := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(t, "*") {
			t = stripOneSpace(strings.TrimLeft(t, "*"))
		}
		lines[i] = t
	}
	return trimBlankLines(strings.Join(lines, "\n"))
}

func stripOneSpace(s string) string {
	s = strings.TrimRight(s, " \t\r")
	if strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t") {
		return s[1:]
	}
	return s
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
