package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/batch"
	"github.com/mvp-joe/symtree/internal/config"
)

// ErrPartial is returned in strict mode when any unit parsed partially.
var ErrPartial = errors.New("partial parse")

type parseOptions struct {
	Lang   string
	Format string
	Stdin  bool
	Strict bool
}

var parseOpts parseOptions

var parseCmd = &cobra.Command{
	Use:   "parse [files or dirs...]",
	Short: "Parse source files and print their declaration trees",
	Long: `Parse prints the declaration tree and diagnostics of each file. Directories
are walked for files with a known language; paths.ignore globs are skipped.

Examples:
  # Print the outline of a file
  symtree parse app/models/user.rb

  # Parse a whole tree as JSON
  symtree parse --format json src/

  # Read from stdin
  cat Foo.java | symtree parse --stdin --lang java

  # Fail when any file has unbalanced scopes or unterminated literals
  symtree parse --strict lib/
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return runParse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, logger, args, parseOpts)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVarP(&parseOpts.Lang, "lang", "l", "", "language tag; overrides detection from the file name")
	parseCmd.Flags().StringVarP(&parseOpts.Format, "format", "f", formatTree, "output format: tree or json")
	parseCmd.Flags().BoolVar(&parseOpts.Stdin, "stdin", false, "read source from stdin (requires --lang)")
	parseCmd.Flags().BoolVar(&parseOpts.Strict, "strict", false, "exit with an error when any file parses partially")
}

func runParse(ctx context.Context, in io.Reader, out io.Writer, cfg *config.Config, logger *slog.Logger, args []string, opts parseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validFormat(opts.Format); err != nil {
		return err
	}

	runner, p, err := newRunner(cfg, logger, nil)
	if err != nil {
		return err
	}

	var inputs []batch.Input
	if opts.Stdin {
		if opts.Lang == "" {
			return errors.New("--lang is required with --stdin")
		}
		text, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		inputs = append(inputs, batch.Input{Path: "<stdin>", Language: opts.Lang, Text: string(text), HasText: true})
	} else {
		if len(args) == 0 {
			return errors.New("no files given (use --stdin to read from standard input)")
		}
		filter, err := newFileFilter(p.Registry(), cfg.Paths.Ignore)
		if err != nil {
			return err
		}
		files, err := filter.collect(args)
		if err != nil {
			return err
		}
		for _, f := range files {
			inputs = append(inputs, batch.Input{Path: f, Language: opts.Lang})
		}
	}

	outputs, _, err := runner.Run(ctx, inputs)
	if err != nil {
		return err
	}

	var failed, partial int
	results := make([]unitOutput, 0, len(outputs))
	for _, o := range outputs {
		u := unitOutput{Path: o.Input.Path, Result: o.Result}
		if o.Err != nil {
			failed++
			u.Error = o.Err.Error()
			logger.Error("failed to parse", "path", o.Input.Path, "error", o.Err)
		} else if o.Result.Partial {
			partial++
		}
		results = append(results, u)
	}

	if opts.Format == formatJSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for i, u := range results {
			if u.Result == nil {
				continue
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			printTree(out, u.Path, u.Result)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(outputs))
	}
	if opts.Strict && partial > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrPartial, partial, len(outputs))
	}
	return nil
}
