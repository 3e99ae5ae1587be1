package types

import (
	"path"
	"strconv"
	"strings"
)

// VectorDimension is the fixed length of every stored and query vector.
const VectorDimension = 1024

// idSeparator joins path and line range in a document ID.
const idSeparator = "--"

// ChunkMeta locates a chunk inside a file.
type ChunkMeta struct {
	Path      string `json:"path"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// ID returns the deterministic document ID for the range.
func (m ChunkMeta) ID() string {
	return DocumentID(m.Path, m.StartLine, m.EndLine)
}

// FileState captures what was on disk when a file was indexed, together
// with the symbols declared in it.
type FileState struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
	Hash    string
	Chunks  int

	Symbols []Symbol
}

// Word is the transient carrier produced by the embedding pipeline and
// consumed by the store. Content holds the chunk snapshot taken when the
// file was chunked; an empty Content makes the store read the range from
// disk at write time.
type Word struct {
	ID      string
	Meta    ChunkMeta
	Vector  []float32
	Content string

	// File is set on one word per file so the store records the file
	// state and symbols in the same transaction as the documents.
	File *FileState
}

// NewWord builds a Word for the given path and chunk.
func NewWord(filePath string, chunk Chunk, vector []float32) Word {
	meta := ChunkMeta{
		Path:      NormalizePath(filePath),
		StartLine: chunk.StartLine,
		EndLine:   chunk.EndLine,
	}
	return Word{
		ID:      meta.ID(),
		Meta:    meta,
		Vector:  vector,
		Content: chunk.Content,
	}
}

// FileWord builds a Word that records only the file state. It is used for
// files that produced no chunk so the store still knows they were seen.
func FileWord(state *FileState) Word {
	return Word{Meta: ChunkMeta{Path: NormalizePath(state.Path)}, File: state}
}

// HasRange reports whether w carries a chunk range to store as a document.
func (w Word) HasRange() bool {
	return w.Meta.StartLine > 0
}

// Document is the persisted unit of the index.
type Document struct {
	ID        string
	Path      string
	FileName  string
	Content   string
	StartLine int
	EndLine   int
	Vector    []float32
}

// DocumentID derives the document ID from path and line range. Re-indexing
// the same range always produces the same ID.
func DocumentID(filePath string, startLine, endLine int) string {
	var b strings.Builder
	b.WriteString(NormalizePath(filePath))
	b.WriteString(idSeparator)
	b.WriteString(strconv.Itoa(startLine))
	b.WriteString(idSeparator)
	b.WriteString(strconv.Itoa(endLine))
	return b.String()
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// FileName returns the last element of a normalized path.
func FileName(p string) string {
	return path.Base(NormalizePath(p))
}

// FitDimension returns a copy of v zero-padded or truncated to VectorDimension.
func FitDimension(v []float32) []float32 {
	out := make([]float32, VectorDimension)
	copy(out, v)
	return out
}
