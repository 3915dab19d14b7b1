package parsers

import (
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree"
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// Modifiers specific to the Python front-end.
const (
	ModifierAsync       = "async"
	ModifierClassMethod = "classmethod"
	ModifierProperty    = "property"
	// ModifierInternal marks a single-underscore name.
	ModifierInternal = "internal"
)

// pythonDecorators maps the last segment of a decorator name to modifiers.
var pythonDecorators = map[string][]string{
	"staticmethod":        {symtree.ModifierStatic},
	"classmethod":         {ModifierClassMethod, symtree.ModifierStatic},
	"property":            {ModifierProperty},
	"cached_property":     {ModifierProperty},
	"setter":              {ModifierProperty},
	"getter":              {ModifierProperty},
	"deleter":             {ModifierProperty},
	"abstractmethod":      {symtree.ModifierAbstract},
	"abstractproperty":    {symtree.ModifierAbstract, ModifierProperty},
	"abstractclassmethod": {symtree.ModifierAbstract, ModifierClassMethod, symtree.ModifierStatic},
}

var pythonEnumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true, "Flag": true, "IntFlag": true,
}

// NewPythonFrontend returns the Python front-end. Blocks are scoped by
// indentation: a def or class owns the lines indented past its header.
func NewPythonFrontend() symtree.Frontend {
	return symtree.Frontend{
		Language:      "python",
		Aliases:       []string{"py"},
		Patterns:      []string{"*.py", "*.pyi", "*.pyw"},
		Scanner:       PythonScanner{},
		NewRecognizer: func() symtree.Recognizer { return &pythonRecognizer{} },
	}
}

type pythonRecognizer struct {
	// indent is the indentation width of the current logical line.
	indent int
	// docDepth is the stack depth at which the next statement is the
	// docstring candidate of the block just opened; zero when none is.
	docDepth int
}

func (r *pythonRecognizer) Recognize(c *token.Cursor, scopes *symtree.ScopeStack) symtree.Event {
	if c.Peek(0).Kind.IsTrivia() {
		c.SkipTrivia(false)
		if c.EOF() {
			return symtree.Event{}
		}
		start := c.Pos()
		if indent := lineIndent(c, start); indent >= 0 {
			prev := r.indent
			r.indent = indent
			if depth := scopes.IndentedDepth(indent); depth < scopes.Len() || indent < prev {
				r.docDepth = 0
				return symtree.Event{Kind: symtree.EventDedent, Depth: depth, Indent: indent, Start: start, End: start}
			}
		}
	}
	return r.statement(c, scopes)
}

// statement reads one logical line starting at a significant token.
func (r *pythonRecognizer) statement(c *token.Cursor, scopes *symtree.ScopeStack) symtree.Event {
	start := c.Pos()
	t := c.Peek(0)
	if r.docDepth > 0 {
		depth := r.docDepth
		r.docDepth = 0
		if depth == scopes.Len() && t.Kind == token.StringLiteral && docstring(c, scopes) {
			return symtree.Event{}
		}
	}
	switch {
	case t.IsPunct("@"):
		return r.decorated(c, scopes, start)
	case startsPythonDeclaration(c):
		return r.declaration(c, scopes, start, nil)
	}
	c.Next()
	skipLogicalLine(c)
	return symtree.Event{}
}

// startsPythonDeclaration reports whether def, class or async def is under the cursor.
func startsPythonDeclaration(c *token.Cursor) bool {
	t := c.Peek(0)
	if t.IsKeyword("def") || t.IsKeyword("class") {
		return true
	}
	next, _ := c.PeekSignificant(1, true)
	return t.IsKeyword("async") && next.IsKeyword("def")
}

// docstring attaches a string literal standing alone on its line to the
// symbol of the innermost block. It consumes nothing when the line holds more.
func docstring(c *token.Cursor, scopes *symtree.ScopeStack) bool {
	start := c.Pos()
	lit := c.Next()
	c.SkipTrivia(true)
	top := scopes.Top()
	if next := c.Peek(0); (next.Kind != token.Newline && next.Kind != token.EOF) || top == nil || top.Symbol == nil {
		c.Seek(start)
		return false
	}
	top.Symbol.DocComment = cleanDocstring(lit.Text)
	return true
}

// decorated reads decorator lines and the def or class they apply to. When
// none follows, only the first decorator line is consumed.
func (r *pythonRecognizer) decorated(c *token.Cursor, scopes *symtree.ScopeStack, start int) symtree.Event {
	var decorators []string
	resume := -1
	for {
		c.Next()
		decorators = append(decorators, decoratorName(c))
		skipLogicalLine(c)
		if resume < 0 {
			resume = c.Pos()
		}
		c.SkipTrivia(false)
		switch {
		case c.Peek(0).IsPunct("@"):
			continue
		case startsPythonDeclaration(c):
			return r.declaration(c, scopes, start, decorators)
		}
		c.Seek(resume)
		return symtree.Event{}
	}
}

func decoratorName(c *token.Cursor) string {
	c.SkipTrivia(true)
	var b strings.Builder
	for {
		t := c.Peek(0)
		if t.Kind != token.Identifier && !(t.IsPunct(".") && b.Len() > 0) {
			return b.String()
		}
		b.WriteString(t.Text)
		c.Next()
	}
}

func (r *pythonRecognizer) declaration(c *token.Cursor, scopes *symtree.ScopeStack, start int, decorators []string) symtree.Event {
	sigStart := c.Pos()
	var mods []string
	t := c.Next()
	if t.IsKeyword("async") {
		mods = append(mods, ModifierAsync)
		c.SkipTrivia(true)
		t = c.Next()
	}

	c.SkipTrivia(true)
	nameTok := c.Peek(0)
	if nameTok.Kind != token.Identifier {
		skipLogicalLine(c)
		return symtree.Event{}
	}
	c.Next()
	end := c.Pos() - 1

	h := &symtree.DeclarationHeader{Kind: symtree.KindClass, Name: nameTok.Text, Modifiers: mods}
	if t.IsKeyword("def") {
		h.Kind = symtree.KindFunction
		if memberOwner(scopes) != nil {
			h.Kind = symtree.KindMethod
		}
	}
	for _, d := range decorators {
		h.Modifiers = append(h.Modifiers, pythonDecorators[d[strings.LastIndexByte(d, '.')+1:]]...)
	}
	h.Modifiers = append(h.Modifiers, pythonNameModifiers(h.Name)...)

	// PEP 695 type parameters: def f[T](x: T), class Box[T]
	c.SkipTrivia(true)
	if c.Peek(0).IsPunct("[") {
		g, _ := readGroup(c, false, isNewline)
		end = g.closer
		c.SkipTrivia(true)
	}

	if h.Kind == symtree.KindClass {
		if c.Peek(0).IsPunct("(") {
			g, closed := readGroup(c, false, isNewline)
			pythonBases(c, h, g.parts)
			h.Unparsed = !closed
			end = g.closer
		}
	} else {
		end = pythonSignature(c, h, end)
	}
	h.Signature = compact(c.Text(sigStart, end+1))
	return r.body(c, scopes, h, start, end)
}

// pythonSignature reads a parameter list and return annotation and returns
// the index of the last header token.
func pythonSignature(c *token.Cursor, h *symtree.DeclarationHeader, end int) int {
	if !c.Peek(0).IsPunct("(") {
		h.Unparsed = true
		return end
	}
	g, closed := readGroup(c, false, isNewline)
	params, ok := pythonParams(c, g.parts)
	h.Parameters = params
	h.Unparsed = !closed || !ok
	end = g.closer

	c.SkipTrivia(true)
	if c.Peek(0).IsPunct("->") {
		arrow := c.Pos()
		c.Next()
		typ, last := pythonAnnotation(c)
		if typ == "" {
			h.Unparsed = true
			return arrow
		}
		h.ReturnType = typ
		end = last
	}
	return end
}

// body reads the ":" ending a header. An indented block follows when only a
// comment is left on the line; otherwise the rest of the line is the body.
func (r *pythonRecognizer) body(c *token.Cursor, scopes *symtree.ScopeStack, h *symtree.DeclarationHeader, start, end int) symtree.Event {
	ev := symtree.Event{Kind: symtree.EventDeclaration, Header: h, Start: start, End: end}
	c.SkipTrivia(true)
	if !c.Peek(0).IsPunct(":") {
		h.Unparsed = true
		ev.End = max(end, skipLogicalLine(c))
		return ev
	}
	c.Next()
	c.SkipTrivia(true)
	if t := c.Peek(0); t.Kind == token.Newline || t.Kind == token.EOF {
		ev.Body = symtree.BodyIndented
		ev.Indent = r.indent
		r.docDepth = scopes.Len() + 1
		return ev
	}
	ev.End = max(end, skipLogicalLine(c))
	return ev
}

func pythonNameModifiers(name string) []string {
	switch {
	case name == "__init__":
		return []string{symtree.ModifierConstructor}
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return nil
	case strings.HasPrefix(name, "__"):
		return []string{ModifierPrivate}
	case strings.HasPrefix(name, "_"):
		return []string{ModifierInternal}
	}
	return nil
}

// pythonBases records positional base classes as extends relations. Keyword
// arguments (metaclass=...) and unpacked arguments are not bases.
func pythonBases(c *token.Cursor, h *symtree.DeclarationHeader, parts [][]int) {
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		first := c.At(part[0])
		if first.IsPunct("*") || first.IsPunct("**") {
			continue
		}
		if eq := splitDefault(c, part, "="); eq >= 0 {
			if first.Text == "metaclass" && strings.HasSuffix(textFrom(c, part, eq+1), "ABCMeta") {
				h.Modifiers = append(h.Modifiers, symtree.ModifierAbstract)
			}
			continue
		}
		target := compact(textFrom(c, part, 0))
		if i := strings.IndexByte(target, '['); i > 0 {
			target = strings.TrimSpace(target[:i])
		}
		h.Relations = append(h.Relations, symtree.Relation{Kind: symtree.RelationExtends, Target: target})
		switch simple := target[strings.LastIndexByte(target, '.')+1:]; {
		case simple == "ABC":
			h.Modifiers = append(h.Modifiers, symtree.ModifierAbstract)
		case pythonEnumBases[simple]:
			h.Modifiers = append(h.Modifiers, symtree.ModifierEnum)
		}
	}
}

// pythonParams builds Python parameters: [*|**]name [: annotation] [= default].
// The bare "*" and "/" markers are not parameters.
func pythonParams(c *token.Cursor, parts [][]int) ([]symtree.Parameter, bool) {
	params := make([]symtree.Parameter, 0, len(parts))
	ok := true
	for _, part := range parts {
		if len(part) == 0 {
			ok = false
			continue
		}
		k := 0
		sigil := ""
		if t := c.At(part[0]); t.IsPunct("*") || t.IsPunct("**") {
			sigil = t.Text
			k++
		}
		if k == len(part) || (len(part) == 1 && c.At(part[0]).IsPunct("/")) {
			if sigil != "**" {
				continue
			}
			ok = false
			continue
		}
		nameTok := c.At(part[k])
		if nameTok.Kind != token.Identifier {
			ok = false
			continue
		}
		p := symtree.Parameter{Name: sigil + nameTok.Text}
		rest := part[k+1:]
		eq := splitDefault(c, rest, "=")
		head := rest
		if eq >= 0 {
			head = rest[:eq]
		}
		if len(head) > 0 {
			if !c.At(head[0]).IsPunct(":") || len(head) == 1 {
				ok = false
			} else {
				p.Type = compact(textFrom(c, head, 1))
			}
		}
		if eq >= 0 {
			p.Default = compact(textFrom(c, rest, eq+1))
			if p.Default == "" {
				ok = false
			}
		}
		params = append(params, p)
	}
	return params, ok
}

// pythonAnnotation reads a return annotation up to the header's ":".
func pythonAnnotation(c *token.Cursor) (string, int) {
	c.SkipTrivia(true)
	first, last := c.Pos(), -1
	depth := 0
	for {
		t := c.Peek(0)
		if t.Kind == token.EOF || t.Kind == token.Newline || (depth == 0 && t.IsPunct(":")) {
			break
		}
		switch {
		case t.IsPunct("(") || t.IsPunct("[") || t.IsPunct("{"):
			depth++
		case t.IsPunct(")") || t.IsPunct("]") || t.IsPunct("}"):
			depth--
		}
		if !t.Kind.IsTrivia() {
			last = c.Pos()
		}
		c.Next()
	}
	if last < 0 {
		return "", -1
	}
	return compact(c.Text(first, last+1)), last
}

func isNewline(t token.Token) bool { return t.Kind == token.Newline }

// skipLogicalLine consumes tokens up to the Newline ending the logical line
// and returns the index of the last significant token consumed, or -1.
func skipLogicalLine(c *token.Cursor) int {
	last := -1
	for {
		t := c.Peek(0)
		if t.Kind == token.EOF || t.Kind == token.Newline {
			return last
		}
		if !t.Kind.IsTrivia() {
			last = c.Pos()
		}
		c.Next()
	}
}

// lineIndent returns the indentation width of the token at index i, or -1
// when other tokens precede it on its line. Tabs advance to the next
// multiple of eight.
func lineIndent(c *token.Cursor, i int) int {
	first := i
	for j := i - 1; j >= 0; j-- {
		t := c.At(j)
		if t.Kind == token.Newline {
			break
		}
		if t.Kind != token.Whitespace || strings.Contains(t.Text, "\n") {
			return -1
		}
		first = j
	}
	width := 0
	for k := first; k < i; k++ {
		for _, ch := range c.At(k).Text {
			if ch == '\t' {
				width += 8 - width%8
			} else {
				width++
			}
		}
	}
	return width
}

// cleanDocstring strips the quotes of a docstring literal and removes the
// common indentation of its continuation lines.
func cleanDocstring(lit string) string {
	body := lit[strings.IndexAny(lit, `"'`):]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(body, q) {
			body = strings.TrimSuffix(strings.TrimPrefix(body, q), q)
			break
		}
	}
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	margin := -1
	for _, l := range lines[1:] {
		trimmed := strings.TrimLeft(l, " \t")
		if trimmed == "" {
			continue
		}
		if n := len(l) - len(trimmed); margin < 0 || n < margin {
			margin = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if margin > 0 && len(lines[i]) >= margin {
			lines[i] = lines[i][margin:]
		}
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
