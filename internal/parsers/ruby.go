package parsers

import (
	"slices"
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree"
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// DefaultRubyDSLMethods are the macro calls whose do-blocks are reported as
// function symbols (Chef resource actions).
var DefaultRubyDSLMethods = []string{"action", "load_current_value"}

// Modifiers specific to the Ruby front-end.
const (
	ModifierPrivate        = "private"
	ModifierProtected      = "protected"
	ModifierModuleFunction = "module_function"
)

var rubyVisibility = map[string]string{
	"private":              ModifierPrivate,
	"protected":            ModifierProtected,
	"public":               "",
	"module_function":      ModifierModuleFunction,
	"private_class_method": ModifierPrivate,
}

var rubyEvalMethods = map[string]bool{
	"class_eval": true, "module_eval": true, "class_exec": true,
	"module_exec": true, "instance_eval": true, "instance_exec": true,
}

// RubyOptions configures the Ruby front-end.
type RubyOptions struct {
	// DSLMethods lists method names whose do-blocks become function symbols.
	DSLMethods []string
}

// NewRubyFrontend returns the Ruby front-end.
func NewRubyFrontend(opts RubyOptions) symtree.Frontend {
	dsl := make(map[string]bool, len(opts.DSLMethods))
	for _, m := range opts.DSLMethods {
		dsl[m] = true
	}
	return symtree.Frontend{
		Language: "ruby",
		Aliases:  []string{"rb"},
		Patterns: []string{"*.rb", "*.rake", "*.gemspec", "*.ru", "Rakefile", "Gemfile", "Guardfile", "Vagrantfile"},
		Scanner:  RubyScanner{},
		NewRecognizer: func() symtree.Recognizer {
			return &rubyRecognizer{dsl: dsl}
		},
	}
}

type rubyRecognizer struct {
	dsl map[string]bool
	// loopLine is the line of a while/until/for whose optional "do" belongs
	// to the loop rather than opening a block of its own.
	loopLine int
	// pendingVisibility applies to the next def only (private def x).
	pendingVisibility string
}

func (r *rubyRecognizer) Recognize(c *token.Cursor, scopes *symtree.ScopeStack) symtree.Event {
	c.SkipTrivia(false)
	start := c.Pos()
	t := c.Next()
	switch t.Kind {
	case token.Keyword:
		return r.keyword(c, scopes, t, start)
	case token.Identifier:
		return r.identifier(c, scopes, t, start)
	case token.Punctuation:
		switch t.Text {
		case "{":
			return openEvent(start, start, "}")
		case "}":
			return closeEvent(start, "}")
		}
	}
	return symtree.Event{}
}

func (r *rubyRecognizer) Qualify(parent, child *symtree.Symbol) string {
	return parent.QualifiedName + "::" + child.Name
}

// Finish classifies modules: one defining instance methods is a mixin,
// anything else is a namespace.
func (r *rubyRecognizer) Finish(sym *symtree.Symbol) {
	if sym.Kind != symtree.KindModule {
		return
	}
	for _, c := range sym.Children {
		if c.Kind == symtree.KindMethod && !c.HasModifier(symtree.ModifierStatic) && !c.HasModifier(ModifierModuleFunction) {
			sym.AddModifier(symtree.ModifierMixin)
			return
		}
	}
	sym.AddModifier(symtree.ModifierNamespace)
}

func (r *rubyRecognizer) keyword(c *token.Cursor, scopes *symtree.ScopeStack, t token.Token, start int) symtree.Event {
	switch t.Text {
	case "module":
		return r.module(c, start)
	case "class":
		return r.class(c, scopes, start)
	case "def":
		return r.def(c, scopes, start)
	case "end":
		return closeEvent(start, "end")
	case "if", "unless", "while", "until":
		if r.isModifier(c, start) {
			return symtree.Event{}
		}
		if t.Text == "while" || t.Text == "until" {
			r.loopLine = t.Span.Start.Line
		}
		return openEvent(start, start, "end")
	case "for":
		r.loopLine = t.Span.Start.Line
		return openEvent(start, start, "end")
	case "case", "begin":
		return openEvent(start, start, "end")
	case "do":
		if r.loopLine == t.Span.Start.Line {
			r.loopLine = 0
			return symtree.Event{}
		}
		return openEvent(start, start, "end")
	}
	return symtree.Event{}
}

// isModifier reports whether the keyword at index i follows an expression on
// the same line (x = 1 if y), so it opens no block.
func (r *rubyRecognizer) isModifier(c *token.Cursor, i int) bool {
	prev, nl := c.PrevSignificant(i)
	return !nl && rubyEndsValue(prev)
}

func atStatementStart(c *token.Cursor, i int) bool {
	prev, nl := c.PrevSignificant(i)
	return nl || prev.Kind == token.EOF || prev.IsPunct(";")
}

// constPath reads Name or A::B::C on the current line and returns it with
// the index of its last token.
func constPath(c *token.Cursor) (string, int) {
	c.SkipTrivia(true)
	var b strings.Builder
	last := -1
	if c.Peek(0).IsPunct("::") {
		b.WriteString("::")
		last = c.Pos()
		c.Next()
	}
	for {
		t := c.Peek(0)
		if t.Kind != token.Identifier {
			break
		}
		b.WriteString(t.Text)
		last = c.Pos()
		c.Next()
		if !c.Peek(0).IsPunct("::") || c.Peek(1).Kind != token.Identifier {
			break
		}
		b.WriteString("::")
		c.Next()
	}
	if last < 0 || strings.HasSuffix(b.String(), "::") {
		return "", last
	}
	return b.String(), last
}

func (r *rubyRecognizer) module(c *token.Cursor, start int) symtree.Event {
	name, end := constPath(c)
	if name == "" {
		ev := openEvent(start, start, "end")
		ev.Unknown = "module"
		return ev
	}
	return symtree.Event{
		Kind:   symtree.EventDeclaration,
		Header: &symtree.DeclarationHeader{Kind: symtree.KindModule, Name: name},
		Body:   symtree.BodyBlock,
		Closer: "end",
		Start:  start,
		End:    end,
	}
}

func (r *rubyRecognizer) class(c *token.Cursor, scopes *symtree.ScopeStack, start int) symtree.Event {
	c.SkipTrivia(true)
	if c.Peek(0).IsPunct("<<") {
		c.Next()
		c.SkipTrivia(true)
		target := c.Next()
		ev := openEvent(start, c.Pos()-1, "end")
		ev.Static = true
		if target.IsKeyword("self") {
			if cur := scopes.CurrentSymbol(); cur != nil && cur.Kind.IsTypeLike() {
				ev.Attach = cur
			}
		}
		return ev
	}

	name, end := constPath(c)
	if name == "" {
		ev := openEvent(start, start, "end")
		ev.Unknown = "class"
		return ev
	}
	h := &symtree.DeclarationHeader{Kind: symtree.KindClass, Name: name}
	c.SkipTrivia(true)
	if c.Peek(0).IsPunct("<") {
		c.Next()
		if super, last := superclass(c); super != "" {
			h.Relations = append(h.Relations, symtree.Relation{Kind: symtree.RelationExtends, Target: super})
			end = last
		}
	}
	return symtree.Event{
		Kind:   symtree.EventDeclaration,
		Header: h,
		Body:   symtree.BodyBlock,
		Closer: "end",
		Start:  start,
		End:    end,
	}
}

// superclass reads the expression after "<" up to the end of the line.
func superclass(c *token.Cursor) (string, int) {
	c.SkipTrivia(true)
	first, last := -1, -1
	depth := 0
	for {
		t := c.Peek(0)
		if t.Kind == token.EOF || t.Kind == token.Newline || (depth == 0 && t.IsPunct(";")) {
			break
		}
		if t.Kind.IsComment() {
			break
		}
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		}
		if !t.Kind.IsTrivia() {
			if first < 0 {
				first = c.Pos()
			}
			last = c.Pos()
		}
		c.Next()
	}
	if first < 0 {
		return "", -1
	}
	return compact(c.Text(first, last+1)), last
}

func (r *rubyRecognizer) def(c *token.Cursor, scopes *symtree.ScopeStack, start int) symtree.Event {
	c.SkipTrivia(true)
	h := &symtree.DeclarationHeader{Kind: symtree.KindFunction}
	if cur := scopes.CurrentSymbol(); cur != nil && cur.Kind.IsTypeLike() {
		h.Kind = symtree.KindMethod
	}

	recv := c.Peek(0)
	if (recv.IsKeyword("self") || recv.Kind == token.Identifier) && c.Peek(1).IsPunct(".") {
		c.Next()
		c.Next()
		h.Modifiers = append(h.Modifiers, symtree.ModifierStatic)
	}

	name, ok := rubyMethodName(c)
	if !ok {
		r.pendingVisibility = ""
		ev := openEvent(start, start, "end")
		ev.Unknown = "def"
		return ev
	}
	h.Name = name
	r.applyVisibility(h, scopes)
	end := c.Pos() - 1

	c.SkipTrivia(true)
	switch {
	case c.Peek(0).IsPunct("("):
		g, closed := readGroup(c, false, rubyParamStop)
		params, parsed := rubyParams(c, g.parts)
		h.Parameters = params
		h.Unparsed = !closed || !parsed
		end = g.closer
	case !c.Peek(0).IsPunct("=") && !endsRubyLine(c.Peek(0)):
		g := readRubyLine(c)
		params, parsed := rubyParams(c, g.parts)
		h.Parameters = params
		h.Unparsed = !parsed
		if len(g.parts) > 0 {
			end = g.closer
		}
	}
	h.Signature = compact(c.Text(start, end+1))

	c.SkipTrivia(true)
	if c.Peek(0).IsPunct("=") {
		// endless method: the body is the rest of the line
		return symtree.Event{
			Kind:   symtree.EventDeclaration,
			Header: h,
			Body:   symtree.BodyNone,
			Start:  start,
			End:    skipRubyLine(c),
		}
	}
	return symtree.Event{
		Kind:   symtree.EventDeclaration,
		Header: h,
		Body:   symtree.BodyBlock,
		Closer: "end",
		Start:  start,
		End:    end,
	}
}

func rubyParamStop(t token.Token) bool {
	return t.IsKeyword("def") || t.IsKeyword("class") || t.IsKeyword("module") || t.IsKeyword("end")
}

func endsRubyLine(t token.Token) bool {
	return t.Kind == token.EOF || t.Kind == token.Newline || t.IsPunct(";")
}

// readRubyLine reads an unparenthesized parameter list up to the end of the line.
func readRubyLine(c *token.Cursor) group {
	var g group
	var cur []int
	for !endsRubyLine(c.Peek(0)) {
		i := c.Pos()
		t := c.Next()
		if t.Kind.IsTrivia() {
			continue
		}
		g.closer = i
		if t.IsPunct(",") {
			g.parts = append(g.parts, cur)
			cur = nil
			continue
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		g.parts = append(g.parts, cur)
	}
	return g
}

// skipRubyLine consumes the rest of the line outside brackets and returns the
// index of the last significant token.
func skipRubyLine(c *token.Cursor) int {
	last := c.Pos()
	depth := 0
	for {
		t := c.Peek(0)
		if t.Kind == token.EOF || (depth == 0 && (t.Kind == token.Newline || t.IsPunct(";"))) {
			return last
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
}

// rubyMethodName reads a method name: identifiers (with ?, ! or a setter
// "="), keywords, operators and the [] / []= forms.
func rubyMethodName(c *token.Cursor) (string, bool) {
	t := c.Peek(0)
	switch {
	case t.Kind == token.Identifier || t.Kind == token.Keyword:
		c.Next()
		name := t.Text
		if eq := c.Peek(0); eq.IsPunct("=") && eq.Span.Start.Offset == t.Span.End.Offset && c.Peek(1).IsPunct("(") {
			c.Next()
			name += "="
		}
		return name, true
	case t.IsPunct("["):
		c.Next()
		if !c.Peek(0).IsPunct("]") {
			return "", false
		}
		end := c.Next()
		if eq := c.Peek(0); eq.IsPunct("=") && eq.Span.Start.Offset == end.Span.End.Offset {
			c.Next()
			return "[]=", true
		}
		return "[]", true
	case t.Kind == token.Operator:
		c.Next()
		name := t.Text
		if at := c.Peek(0); at.Is(token.Operator, "@") && at.Span.Start.Offset == t.Span.End.Offset {
			c.Next()
			name += "@"
		}
		return name, true
	}
	return "", false
}

func (r *rubyRecognizer) applyVisibility(h *symtree.DeclarationHeader, scopes *symtree.ScopeStack) {
	vis := r.pendingVisibility
	r.pendingVisibility = ""
	if vis == "" && !slices.Contains(h.Modifiers, symtree.ModifierStatic) {
		vis = sectionVisibility(scopes)
	}
	if vis != "" {
		h.Modifiers = append(h.Modifiers, vis)
	}
}

// sectionVisibility returns the visibility set by a bare private/protected/
// module_function line in the innermost body holding the declaration.
func sectionVisibility(scopes *symtree.ScopeStack) string {
	frames := scopes.Frames()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Visibility != "" {
			return frames[i].Visibility
		}
		if frames[i].Symbol != nil {
			return ""
		}
	}
	return ""
}

func (r *rubyRecognizer) identifier(c *token.Cursor, scopes *symtree.ScopeStack, t token.Token, start int) symtree.Event {
	if !atStatementStart(c, start) {
		return symtree.Event{}
	}
	if mod, ok := rubyVisibility[t.Text]; ok {
		r.visibility(c, scopes, t.Text, mod)
		return symtree.Event{}
	}
	switch t.Text {
	case "include", "extend", "prepend":
		r.mixins(c, scopes)
		return symtree.Event{}
	}
	if r.dsl[t.Text] {
		if ev, ok := r.dslBlock(c, t, start); ok {
			return ev
		}
	}
	if rubyEvalMethods[t.Text] {
		if ev, ok := r.evalBlock(c, scopes, "", t, start); ok {
			return ev
		}
	}
	if isConstant(t.Text) {
		if ev, ok := r.capabilityBlock(c, scopes, t, start); ok {
			return ev
		}
	}
	return symtree.Event{}
}

func isConstant(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

func (r *rubyRecognizer) visibility(c *token.Cursor, scopes *symtree.ScopeStack, keyword, mod string) {
	c.SkipTrivia(true)
	next := c.Peek(0)
	switch {
	case endsRubyLine(next):
		if top := scopes.Top(); top != nil && keyword != "private_class_method" {
			top.Visibility = mod
		}
	case next.IsKeyword("def"):
		r.pendingVisibility = mod
	case next.Kind == token.StringLiteral && strings.HasPrefix(next.Text, ":"):
		cur := scopes.CurrentSymbol()
		for !endsRubyLine(c.Peek(0)) {
			t := c.Next()
			if cur == nil || mod == "" || t.Kind != token.StringLiteral || !strings.HasPrefix(t.Text, ":") {
				continue
			}
			name := strings.Trim(t.Text[1:], `"`)
			for _, m := range cur.Children {
				if m.Name == name && m.Kind.IsCallable() {
					m.AddModifier(mod)
				}
			}
		}
	}
}

// mixins records include/extend/prepend targets as relations of the
// enclosing type.
func (r *rubyRecognizer) mixins(c *token.Cursor, scopes *symtree.ScopeStack) {
	cur := scopes.CurrentSymbol()
	for {
		name, _ := constPath(c)
		if name != "" && cur != nil && cur.Kind.IsTypeLike() {
			cur.AddRelation(symtree.RelationIncludes, name)
		}
		c.SkipTrivia(true)
		if !c.Peek(0).IsPunct(",") {
			break
		}
		c.Next()
	}
}

// dslBlock recognizes `name :arg ... do |params|` on one line.
func (r *rubyRecognizer) dslBlock(c *token.Cursor, t token.Token, start int) (symtree.Event, bool) {
	save := c.Pos()
	name := t.Text
	first := true
	depth := 0
	for {
		tok := c.Peek(0)
		if endsRubyLine(tok) || tok.Kind.IsComment() {
			c.Seek(save)
			return symtree.Event{}, false
		}
		c.Next()
		if tok.Kind.IsTrivia() {
			continue
		}
		if first && !tok.IsPunct("(") {
			first = false
			if tok.Kind == token.StringLiteral {
				name += ":" + strings.Trim(strings.TrimPrefix(tok.Text, ":"), `"'`)
			}
		}
		switch {
		case tok.IsPunct("(") || tok.IsPunct("[") || tok.IsPunct("{"):
			depth++
		case tok.IsPunct(")") || tok.IsPunct("]") || tok.IsPunct("}"):
			depth--
		case depth == 0 && tok.IsKeyword("do"):
			h := &symtree.DeclarationHeader{
				Kind:      symtree.KindFunction,
				Name:      name,
				Modifiers: []string{symtree.ModifierDSL},
			}
			end := c.Pos() - 1
			c.SkipTrivia(true)
			switch {
			case c.Peek(0).Is(token.Operator, "|"):
				g, closed := readGroup(c, false, endsRubyLine)
				params, parsed := rubyParams(c, g.parts)
				h.Parameters = params
				h.Unparsed = !closed || !parsed
				end = g.closer
			case c.Peek(0).Is(token.Operator, "||"):
				end = c.Pos()
				c.Next()
			}
			h.Signature = compact(c.Text(start, end+1))
			return symtree.Event{
				Kind:   symtree.EventDeclaration,
				Header: h,
				Body:   symtree.BodyBlock,
				Closer: "end",
				Start:  start,
				End:    end,
			}, true
		}
	}
}

// capabilityBlock recognizes Const.class_eval do / Const::Path.module_eval { }.
func (r *rubyRecognizer) capabilityBlock(c *token.Cursor, scopes *symtree.ScopeStack, t token.Token, start int) (symtree.Event, bool) {
	save := c.Pos()
	name := t.Text
	for c.Peek(0).IsPunct("::") && c.Peek(1).Kind == token.Identifier {
		c.Next()
		name += "::" + c.Next().Text
	}
	if !c.Peek(0).IsPunct(".") || c.Peek(1).Kind != token.Identifier || !rubyEvalMethods[c.Peek(1).Text] {
		c.Seek(save)
		return symtree.Event{}, false
	}
	c.Next()
	method := c.Next()
	ev, ok := r.evalBlock(c, scopes, name, method, start)
	if !ok {
		c.Seek(save)
	}
	return ev, ok
}

// evalBlock finishes a capability-extension block after its eval method.
// Methods inside attach to the open symbol called target (the enclosing
// symbol when target is empty), or to a new reopened sibling otherwise.
func (r *rubyRecognizer) evalBlock(c *token.Cursor, scopes *symtree.ScopeStack, target string, method token.Token, start int) (symtree.Event, bool) {
	c.SkipTrivia(true)
	if c.Peek(0).IsPunct("(") {
		if _, ok := readGroup(c, false, endsRubyLine); !ok {
			return symtree.Event{}, false
		}
		c.SkipTrivia(true)
	}
	opener := c.Peek(0)
	var closer string
	switch {
	case opener.IsKeyword("do"):
		closer = "end"
	case opener.IsPunct("{"):
		closer = "}"
	default:
		return symtree.Event{}, false
	}
	openIdx := c.Pos()
	c.Next()
	static := strings.HasPrefix(method.Text, "instance_")

	var sym *symtree.Symbol
	if target == "" {
		sym = scopes.CurrentSymbol()
	} else {
		sym = scopes.Lookup(target)
	}
	if sym != nil || target == "" {
		ev := openEvent(start, openIdx, closer)
		ev.Attach = sym
		ev.Static = static
		return ev, true
	}

	kind := symtree.KindClass
	if strings.HasPrefix(method.Text, "module_") {
		kind = symtree.KindModule
	}
	return symtree.Event{
		Kind: symtree.EventDeclaration,
		Header: &symtree.DeclarationHeader{
			Kind:      kind,
			Name:      target,
			Modifiers: []string{symtree.ModifierReopened},
		},
		Body:   symtree.BodyBlock,
		Closer: closer,
		Start:  start,
		End:    openIdx,
		Static: static,
	}, true
}
