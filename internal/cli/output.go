package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/symtree/internal/symtree"
)

const (
	formatTree = "tree"
	formatJSON = "json"
)

func validFormat(f string) error {
	switch f {
	case formatTree, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q: must be %s or %s", f, formatTree, formatJSON)
}

// unitOutput is the JSON shape of one parsed file.
type unitOutput struct {
	Path   string               `json:"path"`
	Result *symtree.ParseResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTree writes one unit as an indented outline followed by its
// diagnostics.
func printTree(w io.Writer, path string, res *symtree.ParseResult) {
	header := fmt.Sprintf("%s (%s)", path, res.Unit.Language)
	if res.Partial {
		header += " partial"
	}
	fmt.Fprintln(w, header)

	symtree.Walk(res.Tree, func(s *symtree.Symbol, depth int) bool {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth+1), describe(s))
		return true
	})
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "  ! %s\n", d)
	}
}

// describe renders one symbol line: kind, qualified name, parameters, return
// type, modifiers, relations and start line.
func describe(s *symtree.Symbol) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", s.Kind, s.QualifiedName)

	if s.Kind.IsCallable() && !s.Unparsed {
		params := make([]string, 0, len(s.Parameters))
		for _, p := range s.Parameters {
			param := p.Name
			if p.Type != "" {
				param += ": " + p.Type
			}
			if p.Default != "" {
				param += " = " + p.Default
			}
			params = append(params, param)
		}
		fmt.Fprintf(&b, "(%s)", strings.Join(params, ", "))
		if s.ReturnType != "" {
			fmt.Fprintf(&b, ": %s", s.ReturnType)
		}
	}
	if len(s.Modifiers) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(s.Modifiers, " "))
	}
	for _, r := range s.Relations {
		fmt.Fprintf(&b, " %s %s", r.Kind, r.Target)
	}
	if s.Unparsed {
		b.WriteString(" (unparsed)")
	}
	if s.Partial {
		b.WriteString(" (partial)")
	}
	fmt.Fprintf(&b, " :%d", s.Span.Start.Line)
	return b.String()
}
