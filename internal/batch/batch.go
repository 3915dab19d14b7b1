// Package batch parses many source units concurrently. Workers share only the
// frozen registry, the parser and the cache; every unit gets its own result.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/symtree/internal/cache"
	"github.com/mvp-joe/symtree/internal/symtree"
)

// Input is one unit to parse. Language may be empty when Path names the
// file. Text is read from Path when it is empty and HasText is not set.
type Input struct {
	Path     string
	Language string
	Text     string
	// HasText marks Text as the unit's content even when it is empty.
	HasText bool
}

// Output is the outcome for one Input. Err is set when the unit could not be
// read or its language is unknown; parse problems are diagnostics in Result.
type Output struct {
	Input  Input
	Result *symtree.ParseResult
	Err    error
}

// ProgressFunc is called after each unit completes. Calls are serialized.
type ProgressFunc func(done, total int, path string)

// Options configures a Runner.
type Options struct {
	// Workers bounds concurrent parses; zero means GOMAXPROCS.
	Workers    int
	Cache      *cache.Cache
	Logger     *slog.Logger
	OnProgress ProgressFunc
}

// Stats summarizes one Run.
type Stats struct {
	RunID    uuid.UUID
	Units    int
	Failed   int
	Partial  int
	Symbols  int
	Duration time.Duration
}

// Runner parses batches of units with a fixed parser.
type Runner struct {
	parser *symtree.Parser
	opts   Options
	logger *slog.Logger
}

// New returns a Runner using p for every parse.
func New(p *symtree.Parser, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{parser: p, opts: opts, logger: logger.With("component", "batch")}
}

// Run parses inputs and returns one Output per input, in input order. The
// only error returned is the context's: cancellation stops scheduling new
// units, and units not started have a nil Result and the context error.
func (r *Runner) Run(ctx context.Context, inputs []Input) ([]Output, Stats, error) {
	stats := Stats{RunID: uuid.New(), Units: len(inputs)}
	start := time.Now()
	log := r.logger.With("run", stats.RunID.String())
	log.Debug("batch started", "units", len(inputs), "workers", r.opts.Workers)

	out := make([]Output, len(inputs))
	for i, in := range inputs {
		out[i].Input = in
	}

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.parseOne(inputs[i])
			out[i].Result = res
			out[i].Err = err

			mu.Lock()
			done++
			if r.opts.OnProgress != nil {
				r.opts.OnProgress(done, len(inputs), inputs[i].Path)
			}
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for i := range out {
		switch {
		case out[i].Err != nil:
			stats.Failed++
		case out[i].Result == nil:
			out[i].Err = err
			stats.Failed++
		default:
			if out[i].Result.Partial {
				stats.Partial++
			}
			stats.Symbols += out[i].Result.Tree.Count()
		}
	}
	stats.Duration = time.Since(start)

	if err != nil {
		log.Warn("batch cancelled", "completed", done, "units", len(inputs), "error", err)
		return out, stats, err
	}
	log.Info("batch complete",
		"units", stats.Units,
		"failed", stats.Failed,
		"partial", stats.Partial,
		"symbols", stats.Symbols,
		"duration", stats.Duration)
	return out, stats, nil
}

// ParseFiles runs over paths, choosing each language from the file name.
func (r *Runner) ParseFiles(ctx context.Context, paths []string) ([]Output, Stats, error) {
	inputs := make([]Input, len(paths))
	for i, p := range paths {
		inputs[i] = Input{Path: p}
	}
	return r.Run(ctx, inputs)
}

func (r *Runner) parseOne(in Input) (*symtree.ParseResult, error) {
	text := in.Text
	if text == "" && !in.HasText && in.Path != "" {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", in.Path, err)
		}
		text = string(data)
	}

	var (
		res *symtree.ParseResult
		err error
	)
	if in.Language != "" {
		res, err = r.opts.Cache.Parse(r.parser, text, in.Language)
	} else {
		res, err = r.opts.Cache.ParseFile(r.parser, in.Path, text)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Path, err)
	}
	if res.Partial {
		r.logger.Debug("partial parse", "path", in.Path, "errors", len(res.Errors()))
	}
	return res, nil
}
