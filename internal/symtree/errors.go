package symtree

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

var (
	// ErrDepthExceeded is returned by ScopeStack.Push past the configured nesting limit.
	ErrDepthExceeded = errors.New("maximum scope depth exceeded")

	// ErrRegistryFrozen is returned when registering a front-end after Freeze.
	ErrRegistryFrozen = errors.New("front-end registry is frozen")

	// ErrDuplicateLanguage is returned when a language tag or alias is registered twice.
	ErrDuplicateLanguage = errors.New("language already registered")
)

// LexError is the scanner error type, re-exported for callers of this package.
type LexError = token.LexError

// UnbalancedScopeError reports a block terminator with nothing to close, or a
// block still open when input ends.
type UnbalancedScopeError struct {
	// Closer is the terminator seen, empty when the block was left open.
	Closer string
	// Opener describes the unclosed block, empty for a stray terminator.
	Opener string
	Pos    token.Position
}

func (e *UnbalancedScopeError) Error() string {
	if e.Opener == "" {
		return fmt.Sprintf("unbalanced scope: %q at %s closes nothing", e.Closer, e.Pos)
	}
	if e.Closer == "" {
		return fmt.Sprintf("unbalanced scope: %s opened at %s is never closed", e.Opener, e.Pos)
	}
	return fmt.Sprintf("unbalanced scope: %s opened at %s is closed by %q", e.Opener, e.Pos, e.Closer)
}

// UnknownDeclarationError reports a block opener that maps to no symbol kind.
// The block is kept as an opaque scope.
type UnknownDeclarationError struct {
	Construct string
	Pos       token.Position
}

func (e *UnknownDeclarationError) Error() string {
	return fmt.Sprintf("unknown declaration %q at %s treated as opaque scope", e.Construct, e.Pos)
}

// UnknownLanguageError is returned when no front-end is registered for a tag.
type UnknownLanguageError struct {
	Language string
}

func (e *UnknownLanguageError) Error() string {
	return fmt.Sprintf("no front-end registered for language %q", e.Language)
}
