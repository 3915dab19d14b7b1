package parsers

import (
	"slices"
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree"
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// Modifiers specific to the Java front-end.
const (
	ModifierRecord     = "record"
	ModifierAnnotation = "annotation"
)

// modeEnumConstants marks an enum body whose constant list has not been read yet.
const modeEnumConstants = "enum-constants"

var javaModifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true, "final": true,
	"abstract": true, "native": true, "synchronized": true, "transient": true,
	"volatile": true, "strictfp": true, "default": true, "sealed": true,
}

// NewJavaFrontend returns the Java front-end.
func NewJavaFrontend() symtree.Frontend {
	return symtree.Frontend{
		Language:      "java",
		Patterns:      []string{"*.java"},
		Scanner:       JavaScanner{},
		NewRecognizer: func() symtree.Recognizer { return javaRecognizer{} },
	}
}

type javaRecognizer struct{}

func (javaRecognizer) Recognize(c *token.Cursor, scopes *symtree.ScopeStack) symtree.Event {
	c.SkipTrivia(false)
	if top := scopes.Top(); top != nil && top.Mode == modeEnumConstants {
		top.Mode = ""
		skipEnumConstants(c)
		return symtree.Event{}
	}

	start := c.Pos()
	t := c.Peek(0)
	switch {
	case t.IsKeyword("package"):
		c.Next()
		return javaPackage(c, start)
	case t.IsKeyword("import"):
		skipStatement(c)
		return symtree.Event{}
	case t.IsKeyword("new"):
		c.Next()
		return javaNew(c, start)
	case t.IsPunct("{"):
		c.Next()
		return openEvent(start, start, "}")
	case t.IsPunct("}"):
		c.Next()
		return closeEvent(start, "}")
	}

	mods, ok := javaReadModifiers(c, scopes)
	if !ok {
		c.Seek(start + 1)
		return symtree.Event{}
	}
	if kind, ok := javaTypeKeyword(c); ok {
		return javaType(c, kind, start, mods)
	}
	if owner := memberOwner(scopes); owner != nil {
		if c.Peek(0).IsPunct("{") {
			// initializer block
			c.Next()
			ev := openEvent(start, start, "}")
			ev.Static = slices.Contains(mods, symtree.ModifierStatic)
			return ev
		}
		return javaMember(c, owner, start, mods)
	}
	if c.Pos() == start {
		c.Next()
	}
	return symtree.Event{}
}

// javaReadModifiers consumes annotations and modifier keywords. It reports
// false when an "@" does not start an annotation. "default" only counts as a
// modifier in a type body, where it marks interface methods.
func javaReadModifiers(c *token.Cursor, scopes *symtree.ScopeStack) ([]string, bool) {
	var mods []string
	inType := memberOwner(scopes) != nil
	for {
		c.SkipTrivia(false)
		t := c.Peek(0)
		switch {
		case t.Is(token.Operator, "@") && c.Peek(1).IsKeyword("interface"):
			return mods, true
		case t.Is(token.Operator, "@"):
			if !skipAnnotation(c) {
				return mods, false
			}
		case t.Is(token.Identifier, "non") && c.Peek(1).IsPunct("-") && c.Peek(2).Is(token.Identifier, "sealed"):
			c.Next()
			c.Next()
			c.Next()
			mods = append(mods, "non-sealed")
		case t.IsKeyword("default") && !inType:
			return mods, true
		case t.IsKeyword("default") && (c.Peek(1).IsPunct(":") || c.Peek(1).IsPunct("->")):
			return mods, true
		case javaModifiers[t.Text] && (t.Kind == token.Keyword || nextIsDeclaration(c)):
			c.Next()
			mods = append(mods, t.Text)
		default:
			return mods, true
		}
	}
}

// nextIsDeclaration reports whether the contextual keyword under the cursor
// is followed by more of a declaration header.
func nextIsDeclaration(c *token.Cursor) bool {
	next, _ := c.PeekSignificant(1, false)
	return next.Kind == token.Keyword || next.Kind == token.Identifier
}

// skipAnnotation consumes @Name, @a.b.Name and @Name(...).
func skipAnnotation(c *token.Cursor) bool {
	c.Next()
	if c.Peek(0).Kind != token.Identifier {
		return false
	}
	c.Next()
	for c.Peek(0).IsPunct(".") && c.Peek(1).Kind == token.Identifier {
		c.Next()
		c.Next()
	}
	c.SkipTrivia(false)
	if c.Peek(0).IsPunct("(") {
		if _, ok := readGroup(c, false, nil); !ok {
			return false
		}
	}
	return true
}

// javaTypeKeyword consumes a type declaration keyword.
func javaTypeKeyword(c *token.Cursor) (string, bool) {
	c.SkipTrivia(false)
	t := c.Peek(0)
	switch {
	case t.IsKeyword("class"), t.IsKeyword("interface"), t.IsKeyword("enum"):
		c.Next()
		return t.Text, true
	case t.Is(token.Operator, "@") && c.Peek(1).IsKeyword("interface"):
		c.Next()
		c.Next()
		return "@interface", true
	case t.Is(token.Identifier, "record"):
		if next, _ := c.PeekSignificant(1, false); next.Kind == token.Identifier {
			c.Next()
			return "record", true
		}
	}
	return "", false
}

func javaPackage(c *token.Cursor, start int) symtree.Event {
	name, end := javaQualifiedName(c)
	if name == "" {
		return symtree.Event{}
	}
	c.SkipTrivia(false)
	h := &symtree.DeclarationHeader{
		Kind:      symtree.KindModule,
		Name:      name,
		Modifiers: []string{symtree.ModifierNamespace},
	}
	if c.Peek(0).IsPunct(";") {
		c.Next()
	} else {
		h.Unparsed = true
	}
	h.Signature = compact(c.Text(start, end+1))
	return symtree.Event{
		Kind:   symtree.EventDeclaration,
		Header: h,
		Body:   symtree.BodyImplicit,
		Start:  start,
		End:    end,
	}
}

// javaQualifiedName reads a.b.C and returns it with the index of its last token.
func javaQualifiedName(c *token.Cursor) (string, int) {
	c.SkipTrivia(false)
	var b strings.Builder
	last := -1
	for c.Peek(0).Kind == token.Identifier {
		b.WriteString(c.Peek(0).Text)
		last = c.Pos()
		c.Next()
		if !c.Peek(0).IsPunct(".") || c.Peek(1).Kind != token.Identifier {
			break
		}
		b.WriteString(".")
		c.Next()
	}
	return b.String(), last
}

// javaTypeRef reads a type reference with optional type arguments
// (Comparable<Foo>) and returns its compacted text.
func javaTypeRef(c *token.Cursor) (string, int) {
	c.SkipTrivia(false)
	first := c.Pos()
	name, last := javaQualifiedName(c)
	if name == "" {
		return "", -1
	}
	if c.Peek(0).IsPunct("<") {
		last = skipAngles(c)
	}
	return strings.Join(strings.Fields(c.Text(first, last+1)), ""), last
}

// skipAngles consumes a <...> type argument list and returns the index of
// its last token.
func skipAngles(c *token.Cursor) int {
	depth := 0
	for {
		i := c.Pos()
		t := c.Peek(0)
		switch {
		case t.Kind == token.EOF || t.IsPunct("{") || t.IsPunct(";"):
			return i - 1
		case t.IsPunct("<"):
			depth++
		case t.IsPunct(">"), t.IsPunct(">>"), t.IsPunct(">>>"):
			depth -= len(t.Text)
		}
		c.Next()
		if depth <= 0 {
			return i
		}
	}
}

func javaType(c *token.Cursor, keyword string, start int, mods []string) symtree.Event {
	c.SkipTrivia(false)
	nameTok := c.Peek(0)
	if nameTok.Kind != token.Identifier {
		return symtree.Event{}
	}
	c.Next()
	h := &symtree.DeclarationHeader{Kind: symtree.KindClass, Name: nameTok.Text, Modifiers: mods}
	mode := ""
	switch keyword {
	case "interface":
		h.Kind = symtree.KindInterface
	case "@interface":
		h.Kind = symtree.KindInterface
		h.Modifiers = append(h.Modifiers, ModifierAnnotation)
	case "enum":
		h.Modifiers = append(h.Modifiers, symtree.ModifierEnum)
		mode = modeEnumConstants
	case "record":
		h.Modifiers = append(h.Modifiers, ModifierRecord)
	}
	end := c.Pos() - 1
	for {
		c.SkipTrivia(false)
		t := c.Peek(0)
		switch {
		case t.IsPunct("<"):
			end = skipAngles(c)
		case t.IsPunct("(") && keyword == "record":
			g, closed := readGroup(c, true, nil)
			params, parsed := javaParams(c, g.parts)
			h.Parameters = params
			h.Unparsed = !closed || !parsed
			end = g.closer
		case t.IsKeyword("extends") || t.IsKeyword("implements") || t.Is(token.Identifier, "permits"):
			c.Next()
			rel := symtree.RelationExtends
			if t.IsKeyword("implements") {
				rel = symtree.RelationImplements
			}
			for {
				ref, last := javaTypeRef(c)
				if ref == "" {
					break
				}
				end = last
				if !t.Is(token.Identifier, "permits") {
					h.Relations = append(h.Relations, symtree.Relation{Kind: rel, Target: ref})
				}
				c.SkipTrivia(false)
				if !c.Peek(0).IsPunct(",") {
					break
				}
				c.Next()
			}
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
				Mode:   mode,
			}
		default:
			return symtree.Event{}
		}
	}
}

// javaMember reads a method, constructor or field in the body of owner.
// Fields produce no symbol.
func javaMember(c *token.Cursor, owner *symtree.Symbol, start int, mods []string) symtree.Event {
	c.SkipTrivia(false)
	if c.Peek(0).IsPunct("<") {
		skipAngles(c)
	}
	typeStart := -1
	nameAt := -1
	angle := 0
	for {
		c.SkipTrivia(false)
		i := c.Pos()
		t := c.Peek(0)
		switch {
		case t.Kind == token.EOF, t.IsPunct("{"), t.IsPunct("}"):
			if c.Pos() == start {
				c.Next()
			}
			return symtree.Event{}
		case t.IsPunct("<"):
			angle++
		case t.IsPunct(">"), t.IsPunct(">>"), t.IsPunct(">>>"):
			angle = max(0, angle-len(t.Text))
		case angle == 0 && (t.IsPunct("=") || t.IsPunct(";") || t.IsPunct(",")):
			c.Next()
			return symtree.Event{}
		case angle == 0 && t.IsPunct("("):
			if nameAt < 0 || c.At(nameAt).Kind != token.Identifier {
				c.Next()
				return symtree.Event{}
			}
			return javaMethod(c, owner, start, mods, typeStart, nameAt)
		}
		if typeStart < 0 {
			typeStart = i
		}
		nameAt = i
		c.Next()
	}
}

func javaMethod(c *token.Cursor, owner *symtree.Symbol, start int, mods []string, typeStart, nameAt int) symtree.Event {
	name := c.At(nameAt)
	h := &symtree.DeclarationHeader{Kind: symtree.KindMethod, Name: name.Text, Modifiers: mods}
	if typeStart < nameAt {
		h.ReturnType = compact(c.Text(typeStart, nameAt))
	} else if name.Text == owner.Name {
		h.Modifiers = append(h.Modifiers, symtree.ModifierConstructor)
	} else {
		h.Unparsed = true
	}

	g, closed := readGroup(c, true, func(t token.Token) bool { return t.IsPunct("{") || t.IsPunct(";") })
	params, parsed := javaParams(c, g.parts)
	h.Parameters = params
	h.Unparsed = h.Unparsed || !closed || !parsed
	end := g.closer

	for {
		c.SkipTrivia(false)
		t := c.Peek(0)
		switch {
		case t.IsPunct("[") || t.IsPunct("]"):
			// legacy array dimensions after the parameter list
			end = c.Pos()
			c.Next()
			continue
		case t.IsKeyword("throws"):
			c.Next()
			for {
				ref, last := javaTypeRef(c)
				if ref == "" {
					break
				}
				end = last
				c.SkipTrivia(false)
				if !c.Peek(0).IsPunct(",") {
					break
				}
				c.Next()
			}
			continue
		}
		break
	}
	h.Signature = compact(c.Text(start, end+1))

	ev := symtree.Event{Kind: symtree.EventDeclaration, Header: h, Start: start, End: end}
	c.SkipTrivia(false)
	switch t := c.Peek(0); {
	case t.IsPunct("{"):
		c.Next()
		ev.Body = symtree.BodyBlock
		ev.Closer = "}"
	case t.IsPunct(";"):
		c.Next()
	case t.IsKeyword("default"):
		// annotation element default value
		skipStatement(c)
	default:
		h.Unparsed = true
	}
	return ev
}

// javaNew recognizes anonymous class bodies: new Type(args) { ... }.
func javaNew(c *token.Cursor, start int) symtree.Event {
	ref, _ := javaTypeRef(c)
	if ref == "" {
		return symtree.Event{}
	}
	c.SkipTrivia(false)
	if !c.Peek(0).IsPunct("(") {
		return symtree.Event{}
	}
	if _, ok := readGroup(c, false, func(t token.Token) bool { return t.IsPunct(";") }); !ok {
		return symtree.Event{}
	}
	next, idx := c.PeekSignificant(0, false)
	if !next.IsPunct("{") {
		return symtree.Event{}
	}
	c.Seek(idx + 1)
	ev := openEvent(start, idx, "}")
	ev.Unknown = "anonymous class " + ref
	ev.Mode = modeAnonymous
	return ev
}

// skipEnumConstants consumes an enum constant list up to the ";" that ends
// it, or up to the closing brace of an enum without members.
func skipEnumConstants(c *token.Cursor) {
	depth := 0
	for {
		t := c.Peek(0)
		switch {
		case t.Kind == token.EOF:
			return
		case t.IsPunct("(") || t.IsPunct("{"):
			depth++
		case t.IsPunct(")"):
			depth--
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

// skipStatement consumes tokens through the next ";" outside brackets.
func skipStatement(c *token.Cursor) {
	depth := 0
	for {
		t := c.Next()
		switch {
		case t.Kind == token.EOF:
			return
		case t.IsPunct("(") || t.IsPunct("{") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("}") || t.IsPunct("]"):
			depth--
		case depth <= 0 && t.IsPunct(";"):
			return
		}
	}
}
