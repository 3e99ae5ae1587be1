// Package embedder turns chunk text into dense vectors through an external
// embedding provider.
//
// # Providers
//
// Four providers implement the Embedder interface:
//
//   - remote: a self-hosted service speaking {"chunks": [base64...]} in and
//     {"data": [[...]]} out
//   - jina: the Jina AI embeddings API (1024 dimensions)
//   - openai: the OpenAI embeddings API via go-openai, asking for 1024 dimensions
//   - local: offline token hashing, for development and tests
//
// Provider selection follows the environment when no config file names one:
//
//  1. CODEINDEX_EMBEDDING_PROVIDER, if set
//  2. CODEINDEX_EMBEDDING_ENDPOINT selects remote
//  3. JINA_API_KEY selects jina, then OPENAI_API_KEY selects openai
//  4. otherwise local
//
// Transient HTTP failures are retried with exponential backoff; client
// errors are not.
//
// # Client
//
// Indexing and search never call a provider directly. They go through
// Client, which adds a hard deadline, batching, L2 normalization and two
// cache layers (an LRU in memory, optionally a bbolt file on disk):
//
//	client := embedder.NewClient(emb, embedder.ClientConfig{Timeout: 30 * time.Second})
//	vectors := client.EmbedBatch(ctx, chunks)
//	if len(vectors) != len(chunks) {
//	    // provider failed or timed out; skip this file
//	}
//
// Client never returns an error. A failed or timed out call is logged and
// yields nil, so one bad file cannot stop an indexing job.
//
// Cache keys combine provider, model and the SHA-256 of the text, so vectors
// from different embedding spaces never mix.
package embedder
