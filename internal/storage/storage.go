package storage

import (
	"context"

	"github.com/dshills/codeindex/pkg/types"
)

// Store is the persistent document index of one project
type Store interface {
	// Write operations
	AddOrUpdate(ctx context.Context, doc types.Document) error
	BulkReplace(ctx context.Context, words []types.Word) error
	IncrementalUpdate(ctx context.Context, addWords []types.Word, removePaths []string) error

	// Search operations
	LexicalSearch(ctx context.Context, query string, k int) ([]ScoredDocument, error)
	VectorSearch(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error)
	HybridSearch(ctx context.Context, textQuery string, vector []float32, textWeight, vectorWeight float64, k int) ([]types.SearchResult, error)

	// Reconciliation
	Exists(ctx context.Context, path string) bool
	NonExistentPaths(ctx context.Context) ([]string, error)
	HasAnyIndex(ctx context.Context) bool
	FileRecord(ctx context.Context, path string) (*types.FileState, error)

	// Symbol index source
	SymbolCandidates(ctx context.Context, name string, limit int) ([]types.Symbol, error)
	FileNameCandidates(ctx context.Context, name string, limit int) ([]FileName, error)
	PathsContaining(ctx context.Context, word string, limit int) ([]string, error)

	// Status operations
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// ScoredDocument is a document with the score of one retrieval mode.
// Higher is better.
type ScoredDocument struct {
	types.Document
	Score float64
}

// FileName pairs an indexed path with its base name
type FileName struct {
	Path string
	Name string
}

// Stats summarizes the contents of a store
type Stats struct {
	Documents int
	Files     int
	Symbols   int
	SizeBytes int64
}
