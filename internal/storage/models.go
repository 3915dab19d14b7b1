package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/symtree/internal/symtree"
	"github.com/mvp-joe/symtree/internal/symtree/token"
)

// Unit is one stored source unit.
type Unit struct {
	ID          uuid.UUID `json:"id"`
	Path        string    `json:"path"`
	Language    string    `json:"language"`
	ContentHash string    `json:"content_hash"` // SHA-256 of language and text
	Partial     bool      `json:"partial"`
	SymbolCount int       `json:"symbol_count"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// Symbol is one stored declaration with its location.
type Symbol struct {
	ID            int64               `json:"id"`
	UnitID        uuid.UUID           `json:"unit_id"`
	Path          string              `json:"path"`
	Language      string              `json:"language"`
	ParentID      int64               `json:"parent_id,omitempty"` // 0 for roots
	Depth         int                 `json:"depth"`
	Kind          symtree.Kind        `json:"kind"`
	Name          string              `json:"name"`
	QualifiedName string              `json:"qualified_name"`
	DocComment    string              `json:"doc_comment,omitempty"`
	Signature     string              `json:"signature,omitempty"`
	ReturnType    string              `json:"return_type,omitempty"`
	Modifiers     []string            `json:"modifiers,omitempty"`
	Parameters    []symtree.Parameter `json:"parameters,omitempty"`
	Relations     []symtree.Relation  `json:"relations,omitempty"`
	Span          token.Span          `json:"span"`
	Unparsed      bool                `json:"unparsed,omitempty"`
	Partial       bool                `json:"partial,omitempty"`
}

// Relation is a stored type relation with its source symbol.
type Relation struct {
	SymbolID      int64                `json:"symbol_id"`
	QualifiedName string               `json:"qualified_name"`
	SourceKind    symtree.Kind         `json:"source_kind"`
	Path          string               `json:"path"`
	Kind          symtree.RelationKind `json:"kind"`
	Target        string               `json:"target"`
}

// Diagnostic is a stored parse diagnostic.
type Diagnostic struct {
	Path     string           `json:"path"`
	Severity symtree.Severity `json:"severity"`
	Code     symtree.Code     `json:"code"`
	Message  string           `json:"message"`
	Start    token.Position   `json:"start"`
	End      token.Position   `json:"end"`
}

// SymbolQuery filters FindSymbols. Empty fields match everything.
type SymbolQuery struct {
	Name          string
	QualifiedName string
	// Prefix matches qualified names starting with it.
	Prefix   string
	Kind     symtree.Kind
	Language string
	Path     string
	Limit    uint64
}
