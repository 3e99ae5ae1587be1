package embedder

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// remoteRequest is the wire format of the embedding service. Chunk text is
// base64 encoded so arbitrary source bytes survive JSON transport.
type remoteRequest struct {
	Chunks []string `json:"chunks"`
	Model  string   `json:"model,omitempty"`
}

type remoteResponse struct {
	Data [][]float32 `json:"data"`
}

// RemoteProvider implements Embedder against a self-hosted embedding
// service that accepts {"chunks": [base64...]} and answers {"data": [[...]]}.
type RemoteProvider struct {
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	retry      RetryConfig
}

// NewRemoteProvider creates an embedder for the service at endpoint.
// apiKey is optional.
func NewRemoteProvider(endpoint, apiKey, model string) (*RemoteProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: remote endpoint not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultRemoteModel
	}

	return &RemoteProvider{
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: JinaDimension,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retry: DefaultRetryConfig(),
	}, nil
}

func (r *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateSingle(ctx, r, req)
}

func (r *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	encoded := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		encoded[i] = base64.StdEncoding.EncodeToString([]byte(text))
	}

	body := remoteRequest{Chunks: encoded}
	if req.Model != "" {
		body.Model = req.Model
	}

	vectors, err := retryWithBackoff(ctx, r.retry, func() ([][]float32, error) {
		var resp remoteResponse
		if err := postJSON(ctx, r.httpClient, r.endpoint, r.apiKey, body, &resp); err != nil {
			return nil, err
		}
		return resp.Data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(vectors) != len(req.Texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(vectors), len(req.Texts))
	}

	embeddings := make([]*Embedding, len(vectors))
	for i, v := range vectors {
		embeddings[i] = &Embedding{
			Vector:    v,
			Dimension: len(v),
			Provider:  ProviderRemote,
			Model:     r.model,
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderRemote,
		Model:      r.model,
	}, nil
}

func (r *RemoteProvider) Dimension() int {
	return r.dimension
}

func (r *RemoteProvider) Provider() string {
	return ProviderRemote
}

func (r *RemoteProvider) Model() string {
	return r.model
}

func (r *RemoteProvider) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}
