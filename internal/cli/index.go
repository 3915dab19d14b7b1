package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/storage"
)

type indexOptions struct {
	DB    string
	Quiet bool
	Prune bool
}

var indexOpts indexOptions

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [files or dirs...]",
	Short: "Parse files and store their symbols in SQLite",
	Long: `Index parses files in parallel and stores units, symbols, relations and
diagnostics in a SQLite database (storage.path, default .symtree/symbols.db).
Re-indexing a file replaces what was stored for it.

Examples:
  # Index the current directory
  symtree index

  # Index into a specific database without progress bars
  symtree index --db /tmp/app.db --quiet app/ lib/

  # Also drop stored units whose files are gone
  symtree index --prune
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		return runIndex(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, logger, args, indexOpts)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexOpts.DB, "db", "", "database path (overrides storage.path)")
	indexCmd.Flags().BoolVarP(&indexOpts.Quiet, "quiet", "q", false, "disable progress bars and summary output")
	indexCmd.Flags().BoolVar(&indexOpts.Prune, "prune", false, "delete stored units whose files no longer exist")
}

// openStore opens the database at path, creating its directory.
func openStore(path string, logger *slog.Logger) (*storage.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return storage.Open(path, logger)
}

func runIndex(ctx context.Context, out, errOut io.Writer, cfg *config.Config, logger *slog.Logger, args []string, opts indexOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(args) == 0 {
		args = []string{"."}
	}
	dbPath := opts.DB
	if dbPath == "" {
		dbPath = cfg.Storage.Path
	}

	progress := newProgressReporter(errOut, opts.Quiet)
	runner, p, err := newRunner(cfg, logger, progress.OnProgress())
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

	store, err := openStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	progress.Start(len(files), "Parsing files")
	outputs, stats, err := runner.ParseFiles(ctx, files)
	progress.Finish()
	if err != nil {
		return err
	}

	var failed int
	for _, o := range outputs {
		if o.Err != nil {
			failed++
			logger.Warn("failed to parse", "path", o.Input.Path, "error", o.Err)
			continue
		}
		if err := store.WriteUnit(ctx, o.Input.Path, o.Result); err != nil {
			return err
		}
	}

	pruned := 0
	if opts.Prune {
		if pruned, err = prune(ctx, store); err != nil {
			return err
		}
	}

	units, symbols, err := store.Counts(ctx)
	if err != nil {
		return err
	}

	if !opts.Quiet {
		fmt.Fprintf(out, "✓ Indexed %s files in %.1fs\n", formatNumber(len(files)-failed), stats.Duration.Seconds())
		fmt.Fprintf(out, "  Symbols: %s\n", formatNumber(stats.Symbols))
		fmt.Fprintf(out, "  Partial: %s\n", formatNumber(stats.Partial))
		if failed > 0 {
			fmt.Fprintf(out, "  Failed:  %s\n", formatNumber(failed))
		}
		if pruned > 0 {
			fmt.Fprintf(out, "  Pruned:  %s\n", formatNumber(pruned))
		}
		fmt.Fprintf(out, "  Database: %s (%s units, %s symbols)\n", dbPath, formatNumber(units), formatNumber(symbols))
	}
	logger.Debug("index complete", "run_id", stats.RunID, "units", units, "symbols", symbols)
	return nil
}

// prune deletes stored units whose files are gone.
func prune(ctx context.Context, store *storage.Store) (int, error) {
	stored, err := store.Units(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, u := range stored {
		if _, err := os.Stat(u.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if _, err := store.DeleteUnit(ctx, u.Path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
