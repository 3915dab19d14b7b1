package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/hierarchy"
	"github.com/mvp-joe/symtree/internal/symtree"
)

type hierarchyOptions struct {
	Type   string
	DB     string
	Cycles bool
	Format string
}

var hierarchyOpts hierarchyOptions

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy [files or dirs...]",
	Short: "Show type ancestors and descendants",
	Long: `Hierarchy builds the graph of extends, implements, includes and uses
relations between types. With file arguments the files are parsed; without,
the index database is read.

Examples:
  # Ancestors and descendants of one type
  symtree hierarchy --type App\\Models\\User app/

  # Every type with its parents, from the index
  symtree hierarchy

  # Report relation cycles
  symtree hierarchy --cycles lib/
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return runHierarchy(cmd.Context(), cmd.OutOrStdout(), cfg, logger, args, hierarchyOpts)
	},
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
	hierarchyCmd.Flags().StringVarP(&hierarchyOpts.Type, "type", "t", "", "qualified or unique simple type name")
	hierarchyCmd.Flags().StringVar(&hierarchyOpts.DB, "db", "", "database path when no files are given (overrides storage.path)")
	hierarchyCmd.Flags().BoolVar(&hierarchyOpts.Cycles, "cycles", false, "list relation cycles")
	hierarchyCmd.Flags().StringVarP(&hierarchyOpts.Format, "format", "f", formatTree, "output format: tree or json")
}

// typeReport is the JSON shape of one type query.
type typeReport struct {
	Type        *hierarchy.Type  `json:"type"`
	Parents     []hierarchy.Link `json:"parents"`
	Children    []hierarchy.Link `json:"children"`
	Ancestors   []string         `json:"ancestors"`
	Descendants []string         `json:"descendants"`
}

func runHierarchy(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, args []string, opts hierarchyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validFormat(opts.Format); err != nil {
		return err
	}

	h, err := loadHierarchy(ctx, cfg, logger, args, opts.DB)
	if err != nil {
		return err
	}

	switch {
	case opts.Cycles:
		cycles, err := h.Cycles()
		if err != nil {
			return err
		}
		if opts.Format == formatJSON {
			return writeJSON(out, cycles)
		}
		if len(cycles) == 0 {
			fmt.Fprintln(out, "no cycles")
		}
		for _, c := range cycles {
			fmt.Fprintf(out, "cycle: %s\n", strings.Join(c, " -> "))
		}
		return nil

	case opts.Type != "":
		rep, err := queryType(h, opts.Type)
		if err != nil {
			return err
		}
		if opts.Format == formatJSON {
			return writeJSON(out, rep)
		}
		printTypeReport(out, rep)
		return nil

	default:
		types, err := h.Types()
		if err != nil {
			return err
		}
		if opts.Format == formatJSON {
			return writeJSON(out, h.Links())
		}
		for _, t := range types {
			if t.External {
				continue
			}
			parents, err := h.Parents(t.QualifiedName)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s %s", t.Kind, t.QualifiedName)
			for _, l := range parents {
				line += fmt.Sprintf(" %s %s", l.Kind, l.To)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	}
}

func loadHierarchy(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, db string) (*hierarchy.Hierarchy, error) {
	if len(args) == 0 {
		if db == "" {
			db = cfg.Storage.Path
		}
		if db != ":memory:" {
			if _, err := os.Stat(db); errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("no index at %s: run symtree index first or pass files", db)
			}
		}
		store, err := openStore(db, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return hierarchy.FromStore(ctx, store)
	}

	runner, p, err := newRunner(cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	filter, err := newFileFilter(p.Registry(), cfg.Paths.Ignore)
	if err != nil {
		return nil, err
	}
	files, err := filter.collect(args)
	if err != nil {
		return nil, err
	}
	outputs, _, err := runner.ParseFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	trees := make(map[string]*symtree.SymbolTree, len(outputs))
	for _, o := range outputs {
		if o.Err != nil {
			logger.Warn("failed to parse", "path", o.Input.Path, "error", o.Err)
			continue
		}
		trees[o.Input.Path] = o.Result.Tree
	}
	return hierarchy.FromTrees(trees)
}

func queryType(h *hierarchy.Hierarchy, name string) (*typeReport, error) {
	t, err := h.Lookup(name)
	if err != nil {
		return nil, err
	}
	rep := &typeReport{Type: t}
	if rep.Parents, err = h.Parents(t.QualifiedName); err != nil {
		return nil, err
	}
	if rep.Children, err = h.Children(t.QualifiedName); err != nil {
		return nil, err
	}
	if rep.Ancestors, err = h.Ancestors(t.QualifiedName); err != nil {
		return nil, err
	}
	if rep.Descendants, err = h.Descendants(t.QualifiedName); err != nil {
		return nil, err
	}
	return rep, nil
}

func printTypeReport(w io.Writer, rep *typeReport) {
	t := rep.Type
	if t.External {
		fmt.Fprintf(w, "%s (external)\n", t.QualifiedName)
	} else {
		fmt.Fprintf(w, "%s %s\n", t.Kind, t.QualifiedName)
		for _, p := range t.Paths {
			fmt.Fprintf(w, "  defined in %s\n", p)
		}
	}

	fmt.Fprintln(w, "parents:")
	for _, l := range rep.Parents {
		fmt.Fprintf(w, "  %s %s\n", l.Kind, l.To)
	}
	fmt.Fprintln(w, "children:")
	for _, l := range rep.Children {
		fmt.Fprintf(w, "  %s %s\n", l.From, l.Kind)
	}
	fmt.Fprintln(w, "ancestors:")
	for _, a := range rep.Ancestors {
		fmt.Fprintf(w, "  %s\n", a)
	}
	fmt.Fprintln(w, "descendants:")
	for _, d := range rep.Descendants {
		fmt.Fprintf(w, "  %s\n", d)
	}
}
