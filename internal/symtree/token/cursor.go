package token

import "iter"

// Cursor reads a lazy token sequence on demand and keeps every token it has
// pulled, so recognizers can look ahead and the doc extractor can look back.
type Cursor struct {
	next func() (Token, bool)
	stop func()
	toks []Token
	pos  int
	done bool
	eof  Token
}

// NewCursor pulls from seq. Close must be called to release the sequence.
func NewCursor(seq iter.Seq[Token]) *Cursor {
	next, stop := iter.Pull(seq)
	return &Cursor{next: next, stop: stop}
}

// Close stops the underlying sequence. It is safe to call more than once.
func (c *Cursor) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.done = true
}

// fill makes sure index i is buffered and reports whether it exists.
func (c *Cursor) fill(i int) bool {
	for len(c.toks) <= i && !c.done {
		t, ok := c.next()
		if !ok {
			c.done = true
			c.eof = Token{Kind: EOF}
			if n := len(c.toks); n > 0 {
				end := c.toks[n-1].Span.End
				c.eof.Span = Span{Start: end, End: end}
			} else {
				c.eof.Span = Span{Start: Position{Line: 1, Column: 1}, End: Position{Line: 1, Column: 1}}
			}
			break
		}
		c.toks = append(c.toks, t)
	}
	return i < len(c.toks)
}

// At returns the token at absolute index i, or an EOF token past the end.
func (c *Cursor) At(i int) Token {
	if i < 0 {
		return Token{Kind: EOF}
	}
	if !c.fill(i) {
		return c.eof
	}
	return c.toks[i]
}

// Pos returns the absolute index of the next unread token.
func (c *Cursor) Pos() int { return c.pos }

// Seek moves the read position to absolute index i.
func (c *Cursor) Seek(i int) {
	if i < 0 {
		i = 0
	}
	c.pos = i
}

// EOF reports whether every token has been read.
func (c *Cursor) EOF() bool { return !c.fill(c.pos) }

// Peek returns the token n positions after the read position without consuming it.
func (c *Cursor) Peek(n int) Token { return c.At(c.pos + n) }

// Next consumes and returns the next token.
func (c *Cursor) Next() Token {
	t := c.At(c.pos)
	if t.Kind != EOF {
		c.pos++
	}
	return t
}

// SkipTrivia advances past whitespace and comments. Newlines are skipped too
// unless keepNewlines is set.
func (c *Cursor) SkipTrivia(keepNewlines bool) {
	for {
		t := c.Peek(0)
		if t.Kind == EOF || !t.Kind.IsTrivia() || (keepNewlines && t.Kind == Newline) {
			return
		}
		c.pos++
	}
}

// PeekSignificant returns the nth non-trivia token at or after the read
// position together with its absolute index. Newlines count as significant
// when keepNewlines is set.
func (c *Cursor) PeekSignificant(n int, keepNewlines bool) (Token, int) {
	for i := c.pos; ; i++ {
		t := c.At(i)
		if t.Kind == EOF {
			return t, i
		}
		if t.Kind.IsTrivia() && !(keepNewlines && t.Kind == Newline) {
			continue
		}
		if n == 0 {
			return t, i
		}
		n--
	}
}

// PrevSignificant returns the closest non-trivia token before absolute index
// i and whether a newline separates it from i.
func (c *Cursor) PrevSignificant(i int) (Token, bool) {
	newline := false
	for j := i - 1; j >= 0; j-- {
		t := c.At(j)
		if t.Kind == Newline {
			newline = true
			continue
		}
		if t.Kind.IsTrivia() {
			continue
		}
		return t, newline
	}
	return Token{Kind: EOF}, true
}

// Buffered returns every token pulled so far. The slice must not be modified.
func (c *Cursor) Buffered() []Token { return c.toks }

// Text joins the raw text of tokens in [from, to).
func (c *Cursor) Text(from, to int) string {
	if from >= to {
		return ""
	}
	c.fill(to - 1)
	if to > len(c.toks) {
		to = len(c.toks)
	}
	if from >= to {
		return ""
	}
	src := make([]byte, 0, 64)
	for _, t := range c.toks[from:to] {
		src = append(src, t.Text...)
	}
	return string(src)
}
