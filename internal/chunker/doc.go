// Package chunker divides file content into line-range chunks for embedding.
//
// Chunks are plain line windows, not syntax-aware: every file is cut into
// consecutive ranges of linesPerChunk lines, with the last range possibly
// shorter.
//
// # Basic Usage
//
//	c := chunker.New(chunker.DefaultMinLines, chunker.DefaultMaxLines)
//	for _, ch := range c.ChunkFile(content) {
//	    fmt.Printf("lines %d-%d\n", ch.StartLine, ch.EndLine)
//	}
//
// # Jitter
//
// The chunk size is drawn uniformly from [minLines, maxLines] once per file.
// Two near-identical files therefore rarely split at the same lines, which
// keeps their chunk embeddings from colliding in the embedding cache.
//
// # Line Numbers
//
// Lines are split on \n and \r\n and numbered from 1. For a file of N lines
// the chunk ranges cover [1, N] exactly once:
//
//	Split(text, 40) // [1-40] [41-80] [81-100] for a 100-line file
package chunker
