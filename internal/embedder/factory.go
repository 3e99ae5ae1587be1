package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables read by NewFromEnv
const (
	EnvProvider     = "CODEINDEX_EMBEDDING_PROVIDER"
	EnvEndpoint     = "CODEINDEX_EMBEDDING_ENDPOINT"
	EnvAPIKey       = "CODEINDEX_EMBEDDING_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Config holds embedder configuration
type Config struct {
	Provider string
	Endpoint string
	APIKey   string
	Model    string
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. CODEINDEX_EMBEDDING_PROVIDER (remote, jina, openai, local)
// 2. CODEINDEX_EMBEDDING_ENDPOINT selects the remote provider
// 3. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 4. Default to local if nothing is configured
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider: DetectProvider(),
		Endpoint: os.Getenv(EnvEndpoint),
		APIKey:   os.Getenv(EnvAPIKey),
	})
}

// New creates an embedder with explicit configuration. Provider API keys
// fall back to their environment variables when cfg.APIKey is empty.
func New(cfg Config) (Embedder, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderRemote:
		return NewRemoteProvider(cfg.Endpoint, cfg.APIKey, cfg.Model)
	case ProviderJina:
		return NewJinaProvider(firstNonEmpty(cfg.APIKey, os.Getenv(EnvJinaAPIKey)), cfg.Endpoint, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIProvider(firstNonEmpty(cfg.APIKey, os.Getenv(EnvOpenAIAPIKey)), cfg.Endpoint, cfg.Model)
	case ProviderLocal, "":
		return NewLocalProvider()
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvEndpoint) != "" {
		return ProviderRemote
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
