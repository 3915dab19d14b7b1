package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/symtree/internal/parsers"
)

var (
	// ErrInvalidMaxDepth indicates a non-positive nesting limit
	ErrInvalidMaxDepth = errors.New("invalid max depth")

	// ErrInvalidPattern indicates a language pattern that cannot be used
	ErrInvalidPattern = errors.New("invalid language pattern")

	// ErrEmptyDSLMethod indicates a blank Ruby DSL method name
	ErrEmptyDSLMethod = errors.New("empty dsl method")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyStoragePath indicates a missing database path
	ErrEmptyStoragePath = errors.New("empty storage path")

	// ErrInvalidIgnorePattern indicates an ignore glob that does not compile
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unknown log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks that the configuration is valid and complete. All problems
// are reported together.
func Validate(cfg *Config) error {
	return errors.Join(
		validateParser(&cfg.Parser),
		validateRuby(&cfg.Ruby),
		validateCache(&cfg.Cache),
		validateBatch(&cfg.Batch),
		validateStorage(&cfg.Storage),
		validatePaths(&cfg.Paths),
		validateLog(&cfg.Log),
	)
}

func validateParser(cfg *ParserConfig) error {
	var errs []error

	if cfg.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_depth must be positive, got %d", ErrInvalidMaxDepth, cfg.MaxDepth))
	}

	builtin := parsers.Default()
	for _, lp := range cfg.Languages {
		if strings.TrimSpace(lp.Pattern) == "" {
			errs = append(errs, fmt.Errorf("%w: pattern is required", ErrInvalidPattern))
			continue
		}
		if _, err := glob.Compile(lp.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, lp.Pattern, err))
		}
		if _, err := builtin.Resolve(lp.Language); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q maps to %v", ErrInvalidPattern, lp.Pattern, err))
		}
	}

	return errors.Join(errs...)
}

func validateRuby(cfg *RubyConfig) error {
	for _, m := range cfg.DSLMethods {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("%w: dsl_methods entries must be non-empty", ErrEmptyDSLMethod)
		}
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	var errs []error

	// Capacity only matters when the cache is used
	if cfg.Enabled && cfg.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidCacheSettings, cfg.Capacity))
	}
	if cfg.TTL < 0 {
		errs = append(errs, fmt.Errorf("%w: ttl cannot be negative, got %s", ErrInvalidCacheSettings, cfg.TTL))
	}

	return errors.Join(errs...)
}

func validateBatch(cfg *BatchConfig) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	if strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrEmptyStoragePath)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error
	for _, p := range cfg.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidIgnorePattern, p, err))
		}
	}
	return errors.Join(errs...)
}

func validateLog(cfg *LogConfig) error {
	var errs []error

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, cfg.Level))
	}

	switch strings.ToLower(cfg.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'text' or 'json', got '%s'", ErrInvalidLogFormat, cfg.Format))
	}

	return errors.Join(errs...)
}
