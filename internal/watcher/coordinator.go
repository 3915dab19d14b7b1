package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mvp-joe/symtree/internal/batch"
	"github.com/mvp-joe/symtree/internal/symtree"
)

// Update reports what happened to one changed file.
type Update struct {
	Path    string
	Result  *symtree.ParseResult // nil when removed or failed
	Removed bool
	Err     error
}

// Coordinator routes debounced file changes to the batch runner and, when a
// writer is set, keeps the store in step with the files on disk.
type Coordinator struct {
	files    FileWatcher
	runner   *batch.Runner
	writer   UnitWriter
	onUpdate func(Update)
	logger   *slog.Logger

	ctx context.Context
}

// NewCoordinator creates a coordinator. writer and onUpdate may be nil.
func NewCoordinator(files FileWatcher, runner *batch.Runner, writer UnitWriter, onUpdate func(Update), logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		files:    files,
		runner:   runner,
		writer:   writer,
		onUpdate: onUpdate,
		logger:   logger.With("component", "coordinator"),
	}
}

// Start begins routing file changes. Blocks until ctx is cancelled or the
// file watcher fails to start.
func (c *Coordinator) Start(ctx context.Context) error {
	c.ctx = ctx

	filesErr := make(chan error, 1)
	go func() {
		if err := c.files.Start(ctx, c.handleFileChange); err != nil {
			filesErr <- err
		}
	}()

	select {
	case err := <-filesErr:
		c.cleanup()
		return err
	case <-ctx.Done():
		c.cleanup()
		return ctx.Err()
	}
}

func (c *Coordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.logger.Warn("file watcher stop failed", "error", err)
	}
}

// handleFileChange re-parses existing files and drops removed ones.
func (c *Coordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.Info("processing file changes", "files", len(files))

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			c.remove(ctx, f)
			continue
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return
	}

	outputs, stats, err := c.runner.ParseFiles(ctx, present)
	if err != nil {
		c.logger.Warn("re-parse interrupted", "error", err)
	}
	for _, out := range outputs {
		u := Update{Path: out.Input.Path, Result: out.Result, Err: out.Err}
		switch {
		case out.Err != nil:
			c.logger.Warn("re-parse failed", "path", out.Input.Path, "error", out.Err)
		default:
			c.logDiagnostics(out.Input.Path, out.Result)
			if c.writer != nil {
				if werr := c.writer.WriteUnit(ctx, out.Input.Path, out.Result); werr != nil {
					c.logger.Error("failed to store unit", "path", out.Input.Path, "error", werr)
					u.Err = werr
				}
			}
		}
		c.emit(u)
	}

	c.logger.Info("re-parsed files",
		"units", stats.Units, "failed", stats.Failed, "partial", stats.Partial,
		"symbols", stats.Symbols, "duration", stats.Duration)
}

func (c *Coordinator) remove(ctx context.Context, path string) {
	u := Update{Path: path, Removed: true}
	if c.writer != nil {
		if _, err := c.writer.DeleteUnit(ctx, path); err != nil {
			c.logger.Error("failed to delete unit", "path", path, "error", err)
			u.Err = err
		}
	}
	c.logger.Info("file removed", "path", path)
	c.emit(u)
}

func (c *Coordinator) logDiagnostics(path string, res *symtree.ParseResult) {
	for _, d := range res.Diagnostics {
		level := slog.LevelWarn
		if d.Severity == symtree.SeverityError {
			level = slog.LevelError
		}
		c.logger.Log(context.Background(), level, d.Message,
			"path", path, "code", d.Code, "line", d.Span.Start.Line, "column", d.Span.Start.Column)
	}
}

func (c *Coordinator) emit(u Update) {
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}
