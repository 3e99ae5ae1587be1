// Package types provides the shared data model of codeindex.
//
// # Core Types
//
// Chunk is a contiguous, 1-based inclusive line range of one file:
//
//	chunk := types.Chunk{Content: "func main() {}\n", StartLine: 1, EndLine: 1}
//
// Word carries an embedded chunk from the embedding pipeline to the store,
// and Document is what the store persists. Both are keyed by a deterministic
// ID derived from path and line range, so re-indexing a range overwrites it:
//
//	id := types.DocumentID("src/app/main.go", 1, 40)
//	// "src/app/main.go--1--40"
//
// Paths are always stored with forward slashes (NormalizePath).
//
// # Vectors
//
// Every vector is fitted to VectorDimension (1024) by zero padding or
// truncation before it is stored or compared:
//
//	v := types.FitDimension(raw)
//
// # Search Results
//
// SearchResult reports a distance in [0,1] where lower is better. The
// symbol re-ranker only ever lowers it.
//
// # Symbols
//
// Symbol values come from source parsing. Category folds declaration kinds
// into the three buckets the re-ranker weighs: class, method and field.
package types
