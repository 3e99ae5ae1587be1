package chunker

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/dshills/codeindex/pkg/types"
)

const (
	// DefaultMinLines is the lower bound of the per-file chunk size
	DefaultMinLines = 35

	// DefaultMaxLines is the upper bound of the per-file chunk size
	DefaultMaxLines = 65
)

// Chunker splits file content into line-range chunks. The chunk size is
// drawn once per file from [MinLines, MaxLines] so that near-duplicate files
// do not produce identically aligned chunks.
type Chunker struct {
	minLines int
	maxLines int

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Chunker with jitter bounded by [minLines, maxLines].
// Bounds below 1 are raised to 1 and a max below min is raised to min.
func New(minLines, maxLines int) *Chunker {
	return NewWithSource(minLines, maxLines, rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewWithSource is New with an explicit random source, for reproducible sizes.
func NewWithSource(minLines, maxLines int, src rand.Source) *Chunker {
	if minLines < 1 {
		minLines = 1
	}
	if maxLines < minLines {
		maxLines = minLines
	}
	return &Chunker{
		minLines: minLines,
		maxLines: maxLines,
		rng:      rand.New(src),
	}
}

// Bounds returns the configured jitter range.
func (c *Chunker) Bounds() (int, int) {
	return c.minLines, c.maxLines
}

// LinesPerChunk draws a chunk size for the next file.
func (c *Chunker) LinesPerChunk() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minLines + c.rng.IntN(c.maxLines-c.minLines+1)
}

// ChunkFile splits text using a freshly drawn chunk size.
func (c *Chunker) ChunkFile(text string) []types.Chunk {
	return Split(text, c.LinesPerChunk())
}

// Split divides text into chunks of at most linesPerChunk lines. Line numbers
// are 1-based and inclusive, chunks are contiguous and the final partial
// chunk is kept. Blank text yields no chunks.
func Split(text string, linesPerChunk int) []types.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if linesPerChunk < 1 {
		linesPerChunk = 1
	}

	lines := SplitLines(text)
	chunks := make([]types.Chunk, 0, len(lines)/linesPerChunk+1)

	for start := 0; start < len(lines); start += linesPerChunk {
		end := start + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, types.Chunk{
			Content:   joinLines(lines[start:end]),
			StartLine: start + 1,
			EndLine:   end,
		})
	}

	return chunks
}

// ExtractLines returns lines [startLine, endLine] of text, 1-based and
// inclusive, each terminated by a newline. Ranges past the end of the text
// are clipped; an empty string means nothing of the range remains.
func ExtractLines(text string, startLine, endLine int) string {
	lines := SplitLines(text)
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return joinLines(lines[startLine-1 : endLine])
}

// SplitLines splits on \n and \r\n. Empty lines after the last line
// terminator are dropped, so "a\nb\n" has two lines.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
