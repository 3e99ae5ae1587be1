package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codeindex/pkg/types"
)

// maxParallelBatches bounds concurrent provider calls for one EmbedTexts call
const maxParallelBatches = 4

// ClientConfig configures a Client
type ClientConfig struct {
	Timeout   time.Duration // hard deadline for one EmbedBatch call
	BatchSize int           // texts per provider request
	CacheSize int           // in-memory cache entries
	Disk      *DiskCache    // optional persistent cache, owned by the Client
	Logger    *slog.Logger
}

// Client turns chunk text into normalized vectors. It never fails the
// caller: on timeout or provider error it logs and returns nil, and callers
// treat a nil or short result as "skip this input".
type Client struct {
	emb       Embedder
	cache     *Cache
	disk      *DiskCache
	timeout   time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewClient wraps emb with caching, batching and the call deadline
func NewClient(emb Embedder, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		emb:       emb,
		cache:     NewCache(cfg.CacheSize),
		disk:      cfg.Disk,
		timeout:   cfg.Timeout,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger.With("provider", emb.Provider(), "model", emb.Model()),
	}
}

// EmbedBatch returns one vector per chunk, in order, or nil on failure
func (c *Client) EmbedBatch(ctx context.Context, chunks []types.Chunk) [][]float32 {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	return c.EmbedTexts(ctx, texts)
}

// Embed returns the vector for a single text, or nil on failure
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	vectors := c.EmbedTexts(ctx, []string{text})
	if len(vectors) != 1 {
		return nil
	}
	return vectors[0]
}

// EmbedTexts returns one normalized vector per text, in order, or nil when
// any part of the request failed or timed out.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vectors, err := c.embed(ctx, texts)
	if err != nil {
		c.logger.Warn("embedding failed", "count", len(texts), "err", err)
		return nil
	}
	return vectors
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var misses []int

	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
		keys[i] = CacheKey(c.emb.Provider(), c.emb.Model(), text)
		if v, ok := c.lookup(keys[i]); ok {
			vectors[i] = v
			continue
		}
		misses = append(misses, i)
	}

	if len(misses) == 0 {
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)

	for start := 0; start < len(misses); start += c.batchSize {
		end := start + c.batchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		g.Go(func() error {
			batchTexts := make([]string, len(batch))
			for k, idx := range batch {
				batchTexts[k] = texts[idx]
			}

			resp, err := c.emb.GenerateBatch(gctx, BatchEmbeddingRequest{Texts: batchTexts})
			if err != nil {
				return err
			}
			if len(resp.Embeddings) != len(batch) {
				return fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(resp.Embeddings), len(batch))
			}

			// Each goroutine owns distinct indexes of vectors.
			for k, idx := range batch {
				vectors[idx] = NormalizeVector(resp.Embeddings[k].Vector)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fresh := make(map[string][]float32, len(misses))
	for _, idx := range misses {
		c.cache.Set(keys[idx], vectors[idx])
		fresh[keys[idx]] = vectors[idx]
	}
	if c.disk != nil {
		if err := c.disk.PutAll(fresh); err != nil {
			c.logger.Warn("persist embedding cache", "err", err)
		}
	}

	return vectors, nil
}

func (c *Client) lookup(key string) ([]float32, bool) {
	if v, ok := c.cache.Get(key); ok {
		return v, true
	}
	if c.disk == nil {
		return nil, false
	}
	v, ok := c.disk.Get(key)
	if ok {
		c.cache.Set(key, v)
	}
	return v, ok
}

// Provider returns the name of the wrapped provider
func (c *Client) Provider() string {
	return c.emb.Provider()
}

// Model returns the model of the wrapped provider
func (c *Client) Model() string {
	return c.emb.Model()
}

// CacheSize returns the number of vectors held in memory
func (c *Client) CacheSize() int {
	return c.cache.Size()
}

// Close releases the provider and the disk cache
func (c *Client) Close() error {
	err := c.emb.Close()
	if c.disk != nil {
		if derr := c.disk.Close(); err == nil {
			err = derr
		}
	}
	return err
}
