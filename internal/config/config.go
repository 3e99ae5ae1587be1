package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codeindex/internal/chunker"
	"github.com/dshills/codeindex/internal/embedder"
	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/searcher"
)

// Environment variables that override file values
const (
	EnvDataDir  = "CODEINDEX_DATA_DIR"
	EnvLogLevel = "CODEINDEX_LOG_LEVEL"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the in-memory form of ~/.codeindex/config.yaml.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	Endpoint  string        `yaml:"endpoint,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batch_size"`
	CacheSize int           `yaml:"cache_size"`
	DiskCache bool          `yaml:"disk_cache"`
}

type ChunkingConfig struct {
	MinLines int `yaml:"min_lines"`
	MaxLines int `yaml:"max_lines"`
}

type SearchConfig struct {
	TextWeight   float64 `yaml:"text_weight"`
	VectorWeight float64 `yaml:"vector_weight"`
	DefaultLimit int     `yaml:"default_limit"`
	MaxLimit     int     `yaml:"max_limit"`
}

type IndexingConfig struct {
	InitialDelay        time.Duration `yaml:"initial_delay"`
	Interval            time.Duration `yaml:"interval"`
	QuietPeriod         time.Duration `yaml:"quiet_period"`
	ProgressGrace       time.Duration `yaml:"progress_grace"`
	MaxIncrementalFiles int           `yaml:"max_incremental_files"`
	AutoIndex           bool          `yaml:"auto_index"`
	Watch               bool          `yaml:"watch"`
}

// Dir returns ~/.codeindex
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".codeindex"), nil
}

// DefaultPath returns ~/.codeindex/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	dataDir, err := Dir()
	if err != nil {
		dataDir = ".codeindex"
	}
	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		Embedding: EmbeddingConfig{
			Provider:  embedder.ProviderLocal,
			Timeout:   embedder.DefaultTimeout,
			BatchSize: embedder.DefaultBatchSize,
			CacheSize: embedder.DefaultCacheSize,
			DiskCache: true,
		},
		Chunking: ChunkingConfig{
			MinLines: chunker.DefaultMinLines,
			MaxLines: chunker.DefaultMaxLines,
		},
		Search: SearchConfig{
			TextWeight:   searcher.DefaultTextWeight,
			VectorWeight: searcher.DefaultVectorWeight,
			DefaultLimit: searcher.DefaultLimit,
			MaxLimit:     searcher.MaxLimit,
		},
		Indexing: IndexingConfig{
			InitialDelay:        indexer.DefaultInitialDelay,
			Interval:            indexer.DefaultInterval,
			QuietPeriod:         indexer.DefaultQuietPeriod,
			ProgressGrace:       indexer.DefaultProgressGrace,
			MaxIncrementalFiles: indexer.DefaultMaxIncrementalFiles,
			AutoIndex:           true,
			Watch:               true,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, a .env
// file in the working directory and the environment, in increasing order of
// precedence. An empty path reads the default location, where a missing file
// is not an error.
func Load(path string) (*Config, error) {
	// Variables already set in the environment win over .env.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	cfg.applyEnv()

	cfg.DataDir, err = ExpandPath(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(embedder.EnvProvider); v != "" {
		c.Embedding.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(embedder.EnvEndpoint); v != "" {
		c.Embedding.Endpoint = v
		if os.Getenv(embedder.EnvProvider) == "" {
			c.Embedding.Provider = embedder.ProviderRemote
		}
	}
	if v := os.Getenv(embedder.EnvAPIKey); v != "" {
		c.Embedding.APIKey = v
	}

	// A provider key alone selects that provider when nothing else did.
	if c.Embedding.Provider == embedder.ProviderLocal && os.Getenv(embedder.EnvProvider) == "" {
		switch {
		case os.Getenv(embedder.EnvJinaAPIKey) != "":
			c.Embedding.Provider = embedder.ProviderJina
		case os.Getenv(embedder.EnvOpenAIAPIKey) != "":
			c.Embedding.Provider = embedder.ProviderOpenAI
		}
	}
}

// Validate checks that every value is in range.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.DataDir != "", "data_dir is required")
	_, levelErr := ParseLevel(c.LogLevel)
	check(levelErr == nil, "log_level %q", c.LogLevel)

	switch c.Embedding.Provider {
	case embedder.ProviderLocal, embedder.ProviderRemote, embedder.ProviderJina, embedder.ProviderOpenAI:
	default:
		check(false, "embedding.provider %q", c.Embedding.Provider)
	}
	check(c.Embedding.Provider != embedder.ProviderRemote || c.Embedding.Endpoint != "",
		"embedding.endpoint is required for the remote provider")
	check(c.Embedding.Timeout > 0, "embedding.timeout must be positive")
	check(c.Embedding.BatchSize > 0, "embedding.batch_size must be positive")
	check(c.Embedding.CacheSize > 0, "embedding.cache_size must be positive")

	check(c.Chunking.MinLines >= 1, "chunking.min_lines must be at least 1")
	check(c.Chunking.MaxLines >= c.Chunking.MinLines, "chunking.max_lines must not be below min_lines")

	check(c.Search.TextWeight >= 0 && c.Search.VectorWeight >= 0, "search weights must not be negative")
	check(c.Search.MaxLimit > 0, "search.max_limit must be positive")
	check(c.Search.DefaultLimit > 0 && c.Search.DefaultLimit <= c.Search.MaxLimit,
		"search.default_limit must be in [1, max_limit]")

	check(c.Indexing.InitialDelay >= 0, "indexing.initial_delay must not be negative")
	check(c.Indexing.Interval > 0, "indexing.interval must be positive")
	check(c.Indexing.QuietPeriod > 0, "indexing.quiet_period must be positive")
	check(c.Indexing.ProgressGrace >= 0, "indexing.progress_grace must not be negative")
	check(c.Indexing.MaxIncrementalFiles > 0, "indexing.max_incremental_files must be positive")

	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// EmbedderConfig returns the provider selection for embedder.New
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider: c.Embedding.Provider,
		Endpoint: c.Embedding.Endpoint,
		APIKey:   c.Embedding.APIKey,
		Model:    c.Embedding.Model,
	}
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}
