package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/internal/embedder"
)

// clearEnv isolates a test from the caller's environment
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDataDir, EnvLogLevel,
		embedder.EnvProvider, embedder.EnvEndpoint, embedder.EnvAPIKey,
		embedder.EnvJinaAPIKey, embedder.EnvOpenAIAPIKey,
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, embedder.ProviderLocal, cfg.Embedding.Provider)
	assert.Equal(t, 35, cfg.Chunking.MinLines)
	assert.Equal(t, 65, cfg.Chunking.MaxLines)
	assert.Equal(t, 0.3, cfg.Search.TextWeight)
	assert.Equal(t, 0.7, cfg.Search.VectorWeight)
	assert.Equal(t, 10*time.Second, cfg.Indexing.InitialDelay)
	assert.Equal(t, 15*time.Second, cfg.Indexing.Interval)
	assert.Equal(t, 100, cfg.Indexing.MaxIncrementalFiles)
	assert.True(t, cfg.Indexing.AutoIndex)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	path := writeConfig(t, `
data_dir: `+dataDir+`
log_level: debug
embedding:
  provider: remote
  endpoint: http://localhost:9000/embed
  timeout: 5s
chunking:
  min_lines: 20
  max_lines: 40
search:
  text_weight: 0.5
  vector_weight: 0.5
indexing:
  interval: 1m
  auto_index: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, embedder.ProviderRemote, cfg.Embedding.Provider)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, embedder.DefaultBatchSize, cfg.Embedding.BatchSize, "unset keys keep defaults")
	assert.Equal(t, 20, cfg.Chunking.MinLines)
	assert.Equal(t, time.Minute, cfg.Indexing.Interval)
	assert.Equal(t, 10*time.Second, cfg.Indexing.QuietPeriod)
	assert.False(t, cfg.Indexing.AutoIndex)

	ec := cfg.EmbedderConfig()
	assert.Equal(t, "http://localhost:9000/embed", ec.Endpoint)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dataDir := t.TempDir()
	path := writeConfig(t, "log_level: info\n")

	t.Setenv(EnvDataDir, dataDir)
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(embedder.EnvOpenAIAPIKey, "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, embedder.ProviderOpenAI, cfg.Embedding.Provider, "a provider key selects the provider")

	t.Setenv(embedder.EnvProvider, "local")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, embedder.ProviderLocal, cfg.Embedding.Provider, "explicit provider wins over keys")
}

func TestLoad_EndpointSelectsRemote(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(embedder.EnvEndpoint, "http://embed.internal")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, embedder.ProviderRemote, cfg.Embedding.Provider)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeConfig(t, "chunking: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "chunking:\n  min_lines: 50\n  max_lines: 10\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".codeindex"), cfg.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "carrier-pigeon" }},
		{"remote without endpoint", func(c *Config) { c.Embedding.Provider = embedder.ProviderRemote }},
		{"zero timeout", func(c *Config) { c.Embedding.Timeout = 0 }},
		{"zero batch", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"min lines", func(c *Config) { c.Chunking.MinLines = 0 }},
		{"max below min", func(c *Config) { c.Chunking.MaxLines = 1 }},
		{"negative weight", func(c *Config) { c.Search.TextWeight = -1 }},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 100 }},
		{"zero interval", func(c *Config) { c.Indexing.Interval = 0 }},
		{"zero batch cap", func(c *Config) { c.Indexing.MaxIncrementalFiles = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.Search.DefaultLimit = 7

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/idx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "idx"), got)

	got, err = ExpandPath("/abs/idx")
	require.NoError(t, err)
	assert.Equal(t, "/abs/idx", got)
}
