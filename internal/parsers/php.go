package parsers

import (
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree"
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

var phpModifiers = map[string]bool{
	"abstract": true, "final": true, "readonly": true, "public": true,
	"private": true, "protected": true, "static": true, "var": true,
}

var phpTypeKinds = map[string]symtree.Kind{
	"class":     symtree.KindClass,
	"interface": symtree.KindInterface,
	"trait":     symtree.KindTrait,
	"enum":      symtree.KindClass,
}

// NewPHPFrontend returns the PHP front-end.
func NewPHPFrontend() symtree.Frontend {
	return symtree.Frontend{
		Language:      "php",
		Patterns:      []string{"*.php", "*.phtml", "*.php[3-8]", "*.inc"},
		Scanner:       PHPScanner{},
		NewRecognizer: func() symtree.Recognizer { return phpRecognizer{} },
	}
}

type phpRecognizer struct{}

// kw returns the lower-cased keyword text, or "" for other tokens.
func kw(t token.Token) string {
	if t.Kind != token.Keyword {
		return ""
	}
	return strings.ToLower(t.Text)
}

func isAttribute(t token.Token) bool {
	return t.Kind == token.Punctuation && strings.HasPrefix(t.Text, "#[")
}

func (phpRecognizer) Recognize(c *token.Cursor, scopes *symtree.ScopeStack) symtree.Event {
	c.SkipTrivia(false)
	start := c.Pos()
	t := c.Peek(0)

	if phpModifiers[kw(t)] || isAttribute(t) {
		mods := phpReadModifiers(c)
		next := c.Peek(0)
		switch k := kw(next); {
		case k == "function":
			c.Next()
			return phpFunction(c, scopes, start, mods)
		case phpTypeKinds[k] != "":
			c.Next()
			return phpType(c, k, start, mods)
		}
		return symtree.Event{}
	}

	c.Next()
	switch k := kw(t); {
	case k == "function":
		return phpFunction(c, scopes, start, nil)
	case phpTypeKinds[k] != "":
		return phpType(c, k, start, nil)
	case k == "namespace":
		return phpNamespace(c, start)
	case k == "new":
		return phpNew(c, start)
	case k == "use":
		phpUse(c, scopes, start)
		return symtree.Event{}
	}
	switch {
	case t.IsPunct("{"):
		return openEvent(start, start, "}")
	case t.IsPunct("}"):
		return closeEvent(start, "}")
	}
	return symtree.Event{}
}

// Qualify separates namespace segments with "\" and type members with "::".
func (phpRecognizer) Qualify(parent, child *symtree.Symbol) string {
	if parent.Kind == symtree.KindModule {
		return parent.QualifiedName + `\` + child.Name
	}
	return parent.QualifiedName + "::" + child.Name
}

// phpReadModifiers consumes modifier keywords and attributes.
func phpReadModifiers(c *token.Cursor) []string {
	var mods []string
	for {
		c.SkipTrivia(false)
		t := c.Peek(0)
		switch {
		case isAttribute(t):
			c.Next()
		case phpModifiers[kw(t)]:
			c.Next()
			if m := kw(t); m != "var" {
				mods = append(mods, m)
			}
		default:
			return mods
		}
	}
}

// phpName reads a possibly qualified name (Foo\Bar, \Foo) and returns it with
// the index of its last token.
func phpName(c *token.Cursor) (string, int) {
	c.SkipTrivia(false)
	var b strings.Builder
	last := -1
	for {
		t := c.Peek(0)
		switch {
		case t.IsPunct(`\`):
		case t.Kind == token.Identifier && !strings.HasPrefix(t.Text, "$"):
		case t.Kind == token.Keyword && b.Len() > 0 && strings.HasSuffix(b.String(), `\`):
		case kw(t) == "namespace" && b.Len() == 0 && c.Peek(1).IsPunct(`\`):
		default:
			return b.String(), last
		}
		b.WriteString(t.Text)
		last = c.Pos()
		c.Next()
	}
}

// phpNames reads a comma-separated name list.
func phpNames(c *token.Cursor) ([]string, int) {
	var names []string
	last := -1
	for {
		name, end := phpName(c)
		if name == "" {
			return names, last
		}
		names = append(names, name)
		last = end
		c.SkipTrivia(false)
		if !c.Peek(0).IsPunct(",") {
			return names, last
		}
		c.Next()
	}
}

func phpType(c *token.Cursor, keyword string, start int, mods []string) symtree.Event {
	c.SkipTrivia(false)
	nameTok := c.Peek(0)
	named := nameTok.Kind == token.Identifier || (nameTok.Kind == token.Keyword && keyword != "enum")
	if !named || strings.HasPrefix(nameTok.Text, "$") {
		return symtree.Event{}
	}
	c.Next()
	h := &symtree.DeclarationHeader{Kind: phpTypeKinds[keyword], Name: nameTok.Text, Modifiers: mods}
	if keyword == "enum" {
		h.Modifiers = append(h.Modifiers, symtree.ModifierEnum)
	}
	end := c.Pos() - 1
	for {
		c.SkipTrivia(false)
		t := c.Peek(0)
		switch {
		case kw(t) == "extends" || kw(t) == "implements":
			c.Next()
			names, last := phpNames(c)
			rel := symtree.RelationExtends
			if kw(t) == "implements" {
				rel = symtree.RelationImplements
			}
			for _, n := range names {
				h.Relations = append(h.Relations, symtree.Relation{Kind: rel, Target: n})
			}
			if last >= 0 {
				end = last
			}
		case t.IsPunct(":") && keyword == "enum":
			// backed enum: enum Suit: string
			c.Next()
			_, end = phpName(c)
		case t.IsPunct("{"):
			c.Next()
			h.Signature = compact(c.Text(start, end+1))
			return symtree.Event{
				Kind:   symtree.EventDeclaration,
				Header: h,
				Body:   symtree.BodyBlock,
				Closer: "}",
				Start:  start,
				End:    end,
			}
		default:
			// not a declaration (class_alias strings, malformed header)
			return symtree.Event{}
		}
	}
}

func phpFunction(c *token.Cursor, scopes *symtree.ScopeStack, start int, mods []string) symtree.Event {
	c.SkipTrivia(false)
	if c.Peek(0).IsPunct("&") {
		c.Next()
		c.SkipTrivia(false)
	}
	nameTok := c.Peek(0)
	if nameTok.Kind != token.Identifier && nameTok.Kind != token.Keyword {
		// closure: its body is an ordinary brace block
		return symtree.Event{}
	}
	c.Next()

	if inAnonymous(scopes) {
		return symtree.Event{}
	}
	h := &symtree.DeclarationHeader{Kind: symtree.KindFunction, Name: nameTok.Text, Modifiers: mods}
	if memberOwner(scopes) != nil {
		h.Kind = symtree.KindMethod
	}
	end := c.Pos() - 1

	c.SkipTrivia(false)
	if !c.Peek(0).IsPunct("(") {
		h.Unparsed = true
		h.Signature = compact(c.Text(start, end+1))
		return phpBody(c, h, start, end)
	}
	g, closed := readGroup(c, false, func(t token.Token) bool { return t.IsPunct(";") || t.IsPunct("{") })
	params, parsed := phpParams(c, g.parts)
	h.Parameters = params
	h.Unparsed = !closed || !parsed
	end = g.closer

	c.SkipTrivia(false)
	if c.Peek(0).IsPunct(":") {
		colon := c.Pos()
		c.Next()
		typ, last := phpReturnType(c)
		if typ == "" {
			h.Unparsed = true
			end = colon
		} else {
			h.ReturnType = typ
			end = last
		}
	}
	h.Signature = compact(c.Text(start, end+1))
	return phpBody(c, h, start, end)
}

// phpReturnType reads the type after ":" up to the body or ";".
func phpReturnType(c *token.Cursor) (string, int) {
	c.SkipTrivia(false)
	first, last := c.Pos(), -1
	for {
		t := c.Peek(0)
		if t.Kind == token.EOF || t.IsPunct("{") || t.IsPunct(";") {
			break
		}
		if !t.Kind.IsTrivia() {
			last = c.Pos()
		}
		c.Next()
	}
	if last < 0 {
		return "", -1
	}
	return strings.Join(strings.Fields(c.Text(first, last+1)), ""), last
}

// phpBody finishes a function header: "{" opens the body, ";" ends a
// bodyless abstract or interface method.
func phpBody(c *token.Cursor, h *symtree.DeclarationHeader, start, end int) symtree.Event {
	ev := symtree.Event{Kind: symtree.EventDeclaration, Header: h, Start: start, End: end}
	c.SkipTrivia(false)
	switch {
	case c.Peek(0).IsPunct("{"):
		c.Next()
		ev.Body = symtree.BodyBlock
		ev.Closer = "}"
	case c.Peek(0).IsPunct(";"):
		c.Next()
	default:
		h.Unparsed = true
	}
	return ev
}

func phpNamespace(c *token.Cursor, start int) symtree.Event {
	c.SkipTrivia(false)
	if c.Peek(0).IsPunct(`\`) {
		// namespace\func() relative name
		return symtree.Event{}
	}
	name, end := phpName(c)
	c.SkipTrivia(false)
	next := c.Peek(0)
	if name == "" {
		if next.IsPunct("{") {
			c.Next()
			return openEvent(start, c.Pos()-1, "}")
		}
		return symtree.Event{}
	}
	h := &symtree.DeclarationHeader{
		Kind:      symtree.KindModule,
		Name:      name,
		Modifiers: []string{symtree.ModifierNamespace},
	}
	h.Signature = compact(c.Text(start, end+1))
	ev := symtree.Event{Kind: symtree.EventDeclaration, Header: h, Start: start, End: end}
	switch {
	case next.IsPunct("{"):
		c.Next()
		ev.Body = symtree.BodyBlock
		ev.Closer = "}"
	case next.IsPunct(";"):
		c.Next()
		ev.Body = symtree.BodyImplicit
	default:
		ev.Body = symtree.BodyImplicit
		h.Unparsed = true
	}
	return ev
}

// phpNew recognizes anonymous classes; their bodies are opaque.
func phpNew(c *token.Cursor, start int) symtree.Event {
	next, idx := c.PeekSignificant(0, false)
	if kw(next) != "class" {
		return symtree.Event{}
	}
	c.Seek(idx + 1)
	depth := 0
	for {
		t := c.Peek(0)
		switch {
		case t.Kind == token.EOF || (depth == 0 && t.IsPunct(";")):
			return symtree.Event{}
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth == 0 && t.IsPunct("{"):
			c.Next()
			ev := openEvent(start, c.Pos()-1, "}")
			ev.Unknown = "new class"
			ev.Mode = modeAnonymous
			return ev
		}
		c.Next()
	}
}

// phpUse records trait imports inside a type body. Namespace imports and
// closure use-lists carry no structure but are consumed so that
// "use function Foo\bar;" is not read as a declaration.
func phpUse(c *token.Cursor, scopes *symtree.ScopeStack, start int) {
	if prev, _ := c.PrevSignificant(start); prev.IsPunct(")") {
		return
	}
	if owner := memberOwner(scopes); owner != nil {
		names, _ := phpNames(c)
		for _, n := range names {
			owner.AddRelation(symtree.RelationUses, n)
		}
		c.SkipTrivia(false)
		if c.Peek(0).IsPunct("{") {
			// conflict resolution block: use A, B { A::x insteadof B; }
			skipBalanced(c, "{", "}")
		}
		return
	}
	// use Foo\{A, B}; group imports nest one brace level
	depth := 0
	for {
		t := c.Peek(0)
		switch {
		case t.Kind == token.EOF:
			return
		case t.IsPunct("{"):
			depth++
		case t.IsPunct("}"):
			if depth == 0 {
				return
			}
			depth--
		case depth == 0 && t.IsPunct(";"):
			c.Next()
			return
		}
		c.Next()
	}
}

// skipBalanced consumes a bracketed run starting at the opener under the cursor.
func skipBalanced(c *token.Cursor, open, close string) {
	depth := 0
	for {
		t := c.Next()
		switch {
		case t.Kind == token.EOF:
			return
		case t.IsPunct(open):
			depth++
		case t.IsPunct(close):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}
