package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/watcher"
)

type watchOptions struct {
	DB       string
	Debounce time.Duration
}

var watchOpts watchOptions

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-parse files as they change",
	Long: `Watch monitors directories recursively and re-parses changed files after a
quiet period, logging their diagnostics. With --db the index is kept up to
date: changed files are re-stored and deleted files are removed.

Examples:
  symtree watch lib/ app/
  symtree watch --db .symtree/symbols.db .
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cmd.OutOrStdout(), cfg, logger, args, watchOpts)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchOpts.DB, "db", "", "keep this index database up to date")
	watchCmd.Flags().DurationVar(&watchOpts.Debounce, "debounce", watcher.DefaultDebounce, "quiet period before re-parsing")
}

func runWatch(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, dirs []string, opts watchOptions) error {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	abs := make([]string, 0, len(dirs))
	for _, d := range dirs {
		a, err := filepath.Abs(d)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", d, err)
		}
		abs = append(abs, a)
	}

	runner, p, err := newRunner(cfg, logger, nil)
	if err != nil {
		return err
	}
	filter, err := newFileFilter(p.Registry(), cfg.Paths.Ignore)
	if err != nil {
		return err
	}

	var writer watcher.UnitWriter
	if opts.DB != "" {
		store, err := openStore(opts.DB, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		writer = store
	}

	fw, err := watcher.NewFileWatcher(abs, watcher.Options{
		Accept:   filter.accept,
		Ignore:   cfg.Paths.Ignore,
		Debounce: opts.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	coord := watcher.NewCoordinator(fw, runner, writer, func(u watcher.Update) {
		printUpdate(out, u)
	}, logger)

	fmt.Fprintf(out, "Watching %d directories (Ctrl+C to stop)\n", len(abs))
	if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printUpdate(w io.Writer, u watcher.Update) {
	switch {
	case u.Err != nil:
		fmt.Fprintf(w, "✗ %s: %v\n", u.Path, u.Err)
	case u.Removed:
		fmt.Fprintf(w, "- %s\n", u.Path)
	default:
		status := ""
		if u.Result.Partial {
			status = ", partial"
		}
		fmt.Fprintf(w, "✓ %s (%d symbols, %d diagnostics%s)\n",
			u.Path, u.Result.Tree.Count(), len(u.Result.Diagnostics), status)
	}
}
