package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEmbeddingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvProvider, EnvEndpoint, EnvAPIKey, EnvJinaAPIKey, EnvOpenAIAPIKey} {
		t.Setenv(key, "")
	}
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"explicit provider", map[string]string{EnvProvider: "OpenAI"}, ProviderOpenAI},
		{"endpoint selects remote", map[string]string{EnvEndpoint: "http://localhost:9000/embed"}, ProviderRemote},
		{"jina key present", map[string]string{EnvJinaAPIKey: "k"}, ProviderJina},
		{"openai key present", map[string]string{EnvOpenAIAPIKey: "k"}, ProviderOpenAI},
		{"jina takes precedence over openai", map[string]string{EnvJinaAPIKey: "a", EnvOpenAIAPIKey: "b"}, ProviderJina},
		{"fallback to local", nil, ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEmbeddingEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, DetectProvider())
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("local by default", func(t *testing.T) {
		clearEmbeddingEnv(t)

		emb, err := NewFromEnv()
		require.NoError(t, err)
		defer emb.Close()

		assert.Equal(t, ProviderLocal, emb.Provider())
		assert.Equal(t, LocalDimension, emb.Dimension())
	})

	t.Run("remote from endpoint", func(t *testing.T) {
		clearEmbeddingEnv(t)
		t.Setenv(EnvEndpoint, "http://localhost:9000/embed")

		emb, err := NewFromEnv()
		require.NoError(t, err)
		defer emb.Close()

		assert.Equal(t, ProviderRemote, emb.Provider())
	})

	t.Run("jina without key fails", func(t *testing.T) {
		clearEmbeddingEnv(t)
		t.Setenv(EnvProvider, ProviderJina)

		_, err := NewFromEnv()
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})
}

func TestNew(t *testing.T) {
	clearEmbeddingEnv(t)

	_, err := New(Config{Provider: "bogus"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = New(Config{Provider: ProviderRemote})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	emb, err := New(Config{Provider: ProviderOpenAI, APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", emb.Model())

	emb, err = New(Config{Provider: ProviderJina, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultJinaModel, emb.Model())
	assert.Equal(t, JinaDimension, emb.Dimension())
}
