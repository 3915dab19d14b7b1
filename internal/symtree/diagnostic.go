package symtree

import (
	"fmt"

	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// Severity of a diagnostic. Only errors make a result partial.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Code is a stable identifier for a class of diagnostic.
type Code string

const (
	CodeLex                Code = "lex"
	CodeUnbalancedScope    Code = "unbalanced_scope"
	CodeDepthExceeded      Code = "depth_exceeded"
	CodeUnknownDeclaration Code = "unknown_declaration"
	CodeDocDiscarded       Code = "doc_discarded"
	CodeUnparsedSignature  Code = "unparsed_signature"
	CodeNestingViolation   Code = "nesting_violation"
	CodeInvariant          Code = "invariant"
	CodeInternal           Code = "internal_error"
)

// Diagnostic is a problem found while parsing one unit.
type Diagnostic struct {
	Severity Severity   `json:"severity"`
	Code     Code       `json:"code"`
	Message  string     `json:"message"`
	Span     token.Span `json:"span"`
	// Err is the typed error behind the diagnostic, when there is one.
	Err error `json:"-"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s [%s] %s", d.Span.Start, d.Severity, d.Code, d.Message)
}

// Unwrap exposes Err so errors.As works on a Diagnostic value.
func (d Diagnostic) Unwrap() error { return d.Err }

// Error makes Diagnostic usable where an error is expected.
func (d Diagnostic) Error() string { return d.String() }

func warning(code Code, span token.Span, err error, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...), Span: span, Err: err}
}

func errorDiag(code Code, span token.Span, err error, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...), Span: span, Err: err}
}
