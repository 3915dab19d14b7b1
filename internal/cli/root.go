package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symtree/internal/batch"
	"github.com/mvp-joe/symtree/internal/cache"
	"github.com/mvp-joe/symtree/internal/config"
	"github.com/mvp-joe/symtree/internal/symtree"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "symtree",
	Short: "Extract declaration trees from Ruby, PHP, Java and Python source",
	Long: `symtree scans source files without a full grammar and reports the modules,
classes, interfaces, traits, functions and methods they declare, with nesting,
qualified names, doc comments and diagnostics.

Configuration is read from .symtree/config.yml in the working directory and
SYMTREE_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .symtree/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (overrides log.format)")
}

// loadConfig reads the configuration for the working directory and applies
// the persistent flags on top.
func loadConfig() (*config.Config, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(root, cfgFile)
	} else {
		loader = config.NewLoader(root)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// setup loads configuration and installs the logger for a command.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newLogger builds a text or JSON handler at the configured level.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// newCache returns nil when caching is disabled.
func newCache(cfg *config.Config, logger *slog.Logger) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.New(cache.Options{
		Capacity: cfg.Cache.Capacity,
		TTL:      cfg.Cache.TTL,
		Logger:   logger,
	})
}

// newRunner wires the configured parser, cache and worker count into a batch
// runner.
func newRunner(cfg *config.Config, logger *slog.Logger, onProgress batch.ProgressFunc) (*batch.Runner, *symtree.Parser, error) {
	p, err := cfg.NewParser()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create parser: %w", err)
	}
	c, err := newCache(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}
	r := batch.New(p, batch.Options{
		Workers:    cfg.Batch.Workers,
		Cache:      c,
		Logger:     logger,
		OnProgress: onProgress,
	})
	return r, p, nil
}
