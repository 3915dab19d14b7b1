package config

import (
	"time"

	"github.com/mvp-joe/symtree/internal/parsers"
	"github.com/mvp-joe/symtree/internal/symtree"
)

// Config represents the complete symtree configuration.
// It can be loaded from .symtree/config.yml with environment variable overrides.
type Config struct {
	Parser  ParserConfig  `yaml:"parser" mapstructure:"parser"`
	Ruby    RubyConfig    `yaml:"ruby" mapstructure:"ruby"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ParserConfig configures the parse engine and language detection.
type ParserConfig struct {
	MaxDepth  int               `yaml:"max_depth" mapstructure:"max_depth"` // scope nesting limit
	Languages []LanguagePattern `yaml:"languages" mapstructure:"languages"` // extra file patterns
}

// LanguagePattern maps a file glob to a registered language.
type LanguagePattern struct {
	Pattern  string `yaml:"pattern" mapstructure:"pattern"`   // e.g. "*.thor"
	Language string `yaml:"language" mapstructure:"language"` // e.g. "ruby"
}

// RubyConfig configures the Ruby front-end.
type RubyConfig struct {
	DSLMethods []string `yaml:"dsl_methods" mapstructure:"dsl_methods"` // macro calls whose do-blocks become symbols
}

// CacheConfig configures the in-memory parse cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Capacity int           `yaml:"capacity" mapstructure:"capacity"` // total cost: one per unit plus one per symbol
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`           // zero disables expiry
}

// BatchConfig configures multi-file parsing.
type BatchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // zero means GOMAXPROCS
}

// StorageConfig configures the SQLite symbol store.
type StorageConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // relative paths resolve against the project root
}

// PathsConfig defines which files directory walks skip.
type PathsConfig struct {
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Parser: ParserConfig{
			MaxDepth:  symtree.DefaultMaxDepth,
			Languages: []LanguagePattern{},
		},
		Ruby: RubyConfig{
			DSLMethods: append([]string(nil), parsers.DefaultRubyDSLMethods...),
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 100_000,
			TTL:      0,
		},
		Batch: BatchConfig{
			Workers: 0,
		},
		Storage: StorageConfig{
			Path: ".symtree/symbols.db",
		},
		Paths: PathsConfig{
			Ignore: []string{
				"**/.git/**",
				"**/node_modules/**",
				"**/vendor/**",
				"**/.symtree/**",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ParserOptions returns the front-end options described by the config.
func (c *Config) ParserOptions() parsers.Options {
	opts := parsers.Options{
		Ruby: parsers.RubyOptions{DSLMethods: c.Ruby.DSLMethods},
	}
	if len(c.Parser.Languages) > 0 {
		opts.Patterns = make(map[string]string, len(c.Parser.Languages))
		for _, lp := range c.Parser.Languages {
			opts.Patterns[lp.Pattern] = lp.Language
		}
	}
	return opts
}

// NewParser builds a parser with its own registry from the config.
func (c *Config) NewParser() (*symtree.Parser, error) {
	reg, err := parsers.NewRegistry(c.ParserOptions())
	if err != nil {
		return nil, err
	}
	return symtree.NewParser(reg, symtree.WithMaxDepth(c.Parser.MaxDepth)), nil
}
