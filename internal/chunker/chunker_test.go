package chunker

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestSplit_Basic(t *testing.T) {
	chunks := Split(makeLines(100), 40)

	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 40, chunks[0].EndLine)
	assert.Equal(t, 41, chunks[1].StartLine)
	assert.Equal(t, 80, chunks[1].EndLine)
	assert.Equal(t, 81, chunks[2].StartLine)
	assert.Equal(t, 100, chunks[2].EndLine)

	assert.True(t, strings.HasPrefix(chunks[1].Content, "line 41\n"))
	assert.True(t, strings.HasSuffix(chunks[2].Content, "line 100\n"))
}

func TestSplit_Coverage(t *testing.T) {
	for _, n := range []int{1, 34, 35, 36, 64, 65, 66, 100, 131, 1000} {
		text := makeLines(n)
		for l := DefaultMinLines; l <= DefaultMaxLines; l++ {
			chunks := Split(text, l)
			require.NotEmpty(t, chunks)

			next := 1
			for _, ch := range chunks {
				require.NoError(t, ch.Validate())
				assert.Equal(t, next, ch.StartLine, "n=%d l=%d", n, l)
				assert.LessOrEqual(t, ch.LineCount(), l)
				next = ch.EndLine + 1
			}
			assert.Equal(t, n, chunks[len(chunks)-1].EndLine, "n=%d l=%d", n, l)
		}
	}
}

func TestSplit_CRLF(t *testing.T) {
	chunks := Split("a\r\nb\r\nc\r\n", 2)

	require.Len(t, chunks, 2)
	assert.Equal(t, "a\nb\n", chunks[0].Content)
	assert.Equal(t, "c\n", chunks[1].Content)
	assert.Equal(t, 3, chunks[1].StartLine)
}

func TestSplit_NoTrailingNewline(t *testing.T) {
	chunks := Split("a\nb", 10)

	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, "a\nb\n", chunks[0].Content)
}

func TestSplit_Blank(t *testing.T) {
	assert.Empty(t, Split("", 40))
	assert.Empty(t, Split("  \n\n\t\n", 40))
}

func TestSplit_NonPositiveSize(t *testing.T) {
	chunks := Split("a\nb\n", 0)
	assert.Len(t, chunks, 2)
}

func TestExtractLines(t *testing.T) {
	text := makeLines(10)

	assert.Equal(t, "line 3\nline 4\n", ExtractLines(text, 3, 4))
	assert.Equal(t, "line 10\n", ExtractLines(text, 10, 20))
	assert.Equal(t, "", ExtractLines(text, 11, 20))
	assert.Equal(t, "", ExtractLines("", 1, 5))
}

func TestChunker_Jitter(t *testing.T) {
	c := NewWithSource(DefaultMinLines, DefaultMaxLines, rand.NewPCG(1, 2))

	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		n := c.LinesPerChunk()
		assert.GreaterOrEqual(t, n, DefaultMinLines)
		assert.LessOrEqual(t, n, DefaultMaxLines)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 1, "chunk size should vary between files")
}

func TestChunker_ClampsBounds(t *testing.T) {
	c := New(0, -5)
	minLines, maxLines := c.Bounds()
	assert.Equal(t, 1, minLines)
	assert.Equal(t, 1, maxLines)
	assert.Equal(t, 1, c.LinesPerChunk())

	c = New(50, 10)
	minLines, maxLines = c.Bounds()
	assert.Equal(t, 50, minLines)
	assert.Equal(t, 50, maxLines)
}

func TestChunker_ChunkFile(t *testing.T) {
	c := New(10, 10)
	chunks := c.ChunkFile(makeLines(25))

	require.Len(t, chunks, 3)
	assert.Equal(t, 21, chunks[2].StartLine)
	assert.Equal(t, 25, chunks[2].EndLine)
}
