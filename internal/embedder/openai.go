package embedder

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Embedder using the OpenAI embeddings API
type OpenAIProvider struct {
	client *openai.Client
	model  string
	retry  RetryConfig
}

// NewOpenAIProvider creates a new OpenAI embedder. baseURL is optional and
// points the client at an OpenAI-compatible server.
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		retry:  DefaultRetryConfig(),
	}, nil
}

func (o *OpenAIProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateSingle(ctx, o, req)
}

func (o *OpenAIProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}

	apiReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: req.Texts,
	}
	// Only the v3 models accept a reduced output dimension.
	if strings.HasPrefix(model, "text-embedding-3") {
		apiReq.Dimensions = OpenAIDimension
	}

	resp, err := retryWithBackoff(ctx, o.retry, func() (openai.EmbeddingResponse, error) {
		return o.client.CreateEmbeddings(ctx, apiReq)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(resp.Data) != len(req.Texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(resp.Data), len(req.Texts))
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, data := range resp.Data {
		idx := data.Index
		if idx < 0 || idx >= len(embeddings) || embeddings[idx] != nil {
			idx = i
		}
		vector := make([]float32, len(data.Embedding))
		for k, x := range data.Embedding {
			vector[k] = float32(x)
		}
		embeddings[idx] = &Embedding{
			Vector:    vector,
			Dimension: len(vector),
			Provider:  ProviderOpenAI,
			Model:     model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrSizeMismatch, i)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOpenAI,
		Model:      model,
	}, nil
}

func (o *OpenAIProvider) Dimension() int {
	return OpenAIDimension
}

func (o *OpenAIProvider) Provider() string {
	return ProviderOpenAI
}

func (o *OpenAIProvider) Model() string {
	return o.model
}

func (o *OpenAIProvider) Close() error {
	return nil
}
