package parsers

import (
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree"
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// group is the content of a bracketed list split at top-level commas. Each
// part holds the absolute cursor indices of its non-trivia tokens.
type group struct {
	parts [][]int
	// closer is the index of the closing bracket, or of the last token read
	// when the group is not closed.
	closer int
}

// readGroup consumes a bracketed list starting at the opener under the
// cursor. It stops without consuming a token for which stop returns true and
// reports false when the list is not closed. With angles set, commas inside
// <...> type arguments do not split.
func readGroup(c *token.Cursor, angles bool, stop func(token.Token) bool) (group, bool) {
	open := c.Next()
	want := []string{closerOf(open.Text)}
	g := group{closer: c.Pos() - 1}
	var cur []int
	angle := 0
	for {
		i := c.Pos()
		t := c.Peek(0)
		if t.Kind == token.EOF || (stop != nil && stop(t)) {
			if len(cur) > 0 {
				g.parts = append(g.parts, cur)
			}
			return g, false
		}
		c.Next()
		if t.Kind.IsTrivia() {
			continue
		}
		g.closer = i
		switch {
		case t.IsPunct("(") || t.IsPunct("[") || t.IsPunct("{"):
			want = append(want, closerOf(t.Text))
		case t.IsPunct(want[len(want)-1]):
			want = want[:len(want)-1]
			if len(want) == 0 {
				if len(cur) > 0 {
					g.parts = append(g.parts, cur)
				}
				return g, true
			}
		case angles && t.IsPunct("<"):
			angle++
		case angles && angle > 0 && (t.IsPunct(">") || t.IsPunct(">>") || t.IsPunct(">>>")):
			angle = max(0, angle-len(t.Text))
		case len(want) == 1 && angle == 0 && t.IsPunct(","):
			g.parts = append(g.parts, cur)
			cur = nil
			continue
		}
		cur = append(cur, i)
	}
}

func closerOf(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	case "{":
		return "}"
	case "<":
		return ">"
	case "|":
		return "|"
	}
	return open
}

// textFrom joins the source text of part[from:] with original spacing.
func textFrom(c *token.Cursor, part []int, from int) string {
	if from >= len(part) {
		return ""
	}
	return strings.TrimSpace(c.Text(part[from], part[len(part)-1]+1))
}

// compact collapses runs of whitespace to single spaces.
func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitDefault returns the position of the top-level "=" in a parameter part.
func splitDefault(c *token.Cursor, part []int, sep string) int {
	depth := 0
	for k, i := range part {
		t := c.At(i)
		switch {
		case t.IsPunct("(") || t.IsPunct("[") || t.IsPunct("{"):
			depth++
		case t.IsPunct(")") || t.IsPunct("]") || t.IsPunct("}"):
			depth--
		case depth == 0 && t.IsPunct(sep):
			return k
		}
	}
	return -1
}

// rubyParams builds Ruby parameters. Splat and block sigils stay on the name;
// defaults follow "=" and keyword defaults follow ":".
func rubyParams(c *token.Cursor, parts [][]int) ([]symtree.Parameter, bool) {
	params := make([]symtree.Parameter, 0, len(parts))
	ok := true
	for _, part := range parts {
		var p symtree.Parameter
		k := 0
		sigil := ""
		for k < len(part) {
			t := c.At(part[k])
			if t.Kind == token.Operator && (t.Text == "*" || t.Text == "**" || t.Text == "&") {
				sigil += t.Text
				k++
				continue
			}
			break
		}
		if k < len(part) && c.At(part[k]).Kind == token.Identifier {
			p.Name = sigil + c.At(part[k]).Text
			k++
		} else if sigil != "" && k == len(part) {
			p.Name = sigil
		} else {
			ok = false
			continue
		}
		if k < len(part) {
			t := c.At(part[k])
			switch {
			case t.IsPunct("=") || t.IsPunct(":"):
				p.Default = compact(textFrom(c, part, k+1))
				if t.Text == ":" {
					p.Name += ":"
				}
				if t.Text == "=" && p.Default == "" {
					ok = false
				}
			default:
				ok = false
			}
		}
		params = append(params, p)
	}
	return params, ok
}

var phpParamModifiers = map[string]bool{
	"public": true, "private": true, "protected": true, "readonly": true,
}

// phpParams builds PHP parameters: [modifiers] [type] [&] [...]$name [= default].
func phpParams(c *token.Cursor, parts [][]int) ([]symtree.Parameter, bool) {
	params := make([]symtree.Parameter, 0, len(parts))
	ok := true
	for _, part := range parts {
		eq := splitDefault(c, part, "=")
		head := part
		if eq >= 0 {
			head = part[:eq]
		}
		nameAt := -1
		for k, i := range head {
			if strings.HasPrefix(c.At(i).Text, "$") {
				nameAt = k
			}
		}
		if nameAt < 0 {
			ok = false
			continue
		}
		var p symtree.Parameter
		p.Name = c.At(head[nameAt]).Text
		var typ []string
		for _, i := range head[:nameAt] {
			t := c.At(i)
			switch {
			case t.Kind == token.Keyword && phpParamModifiers[strings.ToLower(t.Text)]:
			case t.Text == "&" || t.Text == "...":
				p.Name = t.Text + p.Name
			case t.Kind == token.Text || strings.HasPrefix(t.Text, "#["):
			default:
				typ = append(typ, t.Text)
			}
		}
		p.Type = strings.Join(typ, "")
		if eq >= 0 {
			p.Default = compact(textFrom(c, part, eq+1))
			if p.Default == "" {
				ok = false
			}
		}
		params = append(params, p)
	}
	return params, ok
}

// javaParams builds Java parameters: [annotations] [final] Type [...] name.
func javaParams(c *token.Cursor, parts [][]int) ([]symtree.Parameter, bool) {
	params := make([]symtree.Parameter, 0, len(parts))
	ok := true
	for _, part := range parts {
		k := skipJavaAnnotations(c, part)
		for k < len(part) && c.At(part[k]).IsKeyword("final") {
			k++
		}
		if len(part)-k < 2 || c.At(part[len(part)-1]).Kind != token.Identifier {
			ok = false
			continue
		}
		name := part[len(part)-1]
		typ := compact(strings.TrimSpace(c.Text(part[k], name)))
		params = append(params, symtree.Parameter{Name: c.At(name).Text, Type: typ})
	}
	return params, ok
}

// skipJavaAnnotations returns the index in part of the first token after
// leading @Annotation and @Annotation(...) groups.
func skipJavaAnnotations(c *token.Cursor, part []int) int {
	k := 0
	for k < len(part) && c.At(part[k]).Kind == token.Operator && c.At(part[k]).Text == "@" {
		k++
		for k < len(part) && (c.At(part[k]).Kind == token.Identifier || c.At(part[k]).IsPunct(".")) {
			k++
		}
		if k < len(part) && c.At(part[k]).IsPunct("(") {
			depth := 0
			for ; k < len(part); k++ {
				t := c.At(part[k])
				if t.IsPunct("(") {
					depth++
				} else if t.IsPunct(")") {
					depth--
					if depth == 0 {
						k++
						break
					}
				}
			}
		}
	}
	return k
}
