package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/crosscheck"
	"github.com/mvp-joe/symtree/internal/symtree"
)

// ErrCheckFailed is returned when any file fails validation or disagrees
// with the tree-sitter reference.
var ErrCheckFailed = errors.New("check failed")

type checkOptions struct {
	Format string
}

var checkOpts checkOptions

// checkResult is the JSON shape of one checked file.
type checkResult struct {
	Path       string               `json:"path"`
	Error      string               `json:"error,omitempty"`
	Invalid    []symtree.Diagnostic `json:"invalid,omitempty"`
	CrossCheck *crosscheck.Report   `json:"crosscheck,omitempty"`
}

func (r *checkResult) ok() bool {
	if r.Error != "" {
		return false
	}
	for _, d := range r.Invalid {
		if d.Severity == symtree.SeverityError {
			return false
		}
	}
	return r.CrossCheck == nil || r.CrossCheck.OK()
}

var checkCmd = &cobra.Command{
	Use:   "check [files or dirs...]",
	Short: "Validate trees and compare them against a tree-sitter parse",
	Long: `Check parses each file, validates the tree's structural invariants and, for
languages with a tree-sitter grammar, compares the declarations (kind, name and
nesting depth) with the ones tree-sitter finds.

Examples:
  symtree check lib/ app/
  symtree check --format json src/Main.java
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, logger, args, checkOpts)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkOpts.Format, "format", "f", formatTree, "output format: tree or json")
}

func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, args []string, opts checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validFormat(opts.Format); err != nil {
		return err
	}
	if len(args) == 0 {
		return errors.New("no files given")
	}

	runner, p, err := newRunner(cfg, logger, nil)
	if err != nil {
		return err
	}
	filter, err := newFileFilter(p.Registry(), cfg.Paths.Ignore)
	if err != nil {
		return err
	}
	files, err := filter.collect(args)
	if err != nil {
		return err
	}

	outputs, _, err := runner.ParseFiles(ctx, files)
	if err != nil {
		return err
	}

	checker := crosscheck.New()
	results := make([]checkResult, 0, len(outputs))
	failed := 0
	for _, o := range outputs {
		r := checkResult{Path: o.Input.Path}
		if o.Err != nil {
			r.Error = o.Err.Error()
		} else {
			r.Invalid = symtree.Validate(o.Result.Tree)
			if checker.Supports(o.Result.Unit.Language) {
				report, err := checker.Check(ctx, o.Result)
				if err != nil {
					r.Error = err.Error()
				} else {
					r.CrossCheck = report
				}
			}
		}
		if !r.ok() {
			failed++
		}
		logger.Debug("checked file", "path", r.Path, "ok", r.ok())
		results = append(results, r)
	}

	if opts.Format == formatJSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printCheck(out, &r)
		}
		fmt.Fprintf(out, "\n%d files checked, %d failed\n", len(results), failed)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrCheckFailed, failed, len(results))
	}
	return nil
}

func printCheck(w io.Writer, r *checkResult) {
	status := "ok"
	if !r.ok() {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%-4s %s\n", status, r.Path)
	if r.Error != "" {
		fmt.Fprintf(w, "     error: %s\n", r.Error)
	}
	for _, d := range r.Invalid {
		fmt.Fprintf(w, "     invalid: %s\n", d)
	}
	if r.CrossCheck == nil {
		return
	}
	if r.CrossCheck.SyntaxErrors {
		fmt.Fprintln(w, "     note: tree-sitter reported syntax errors")
	}
	for _, d := range r.CrossCheck.Missing {
		fmt.Fprintf(w, "     missing: %s\n", d)
	}
	for _, d := range r.CrossCheck.Extra {
		fmt.Fprintf(w, "     extra: %s\n", d)
	}
}
