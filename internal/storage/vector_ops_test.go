package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeindex/pkg/types"
)

func TestEncodeVector(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, float32(math.Inf(1))}
	blob := encodeVector(vector)
	require.Len(t, blob, 16)

	// little-endian 1.5 = 0x3FC00000
	assert.Equal(t, []byte{0x00, 0x00, 0xC0, 0x3F}, blob[4:8])
	assert.Equal(t, vector, decodeVector(blob))
}

func TestDecodeVector_IgnoresTrailingBytes(t *testing.T) {
	blob := append(encodeVector([]float32{1}), 0xFF, 0xFF)
	assert.Equal(t, []float32{1}, decodeVector(blob))
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, []float32{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosine_PaddingInvariant(t *testing.T) {
	short := []float32{0.3, -0.2, 0.9}
	padded := types.FitDimension(short)
	other := []float32{0.1, 0.4, 0.5, 0.7}

	assert.InDelta(t, cosine(short, other), cosine(padded, other), 1e-12)
	assert.InDelta(t, 1.0, cosine(short, padded), 1e-9)
}

func TestCosine_TruncatesLongVectors(t *testing.T) {
	a := make([]float32, types.VectorDimension+1)
	b := make([]float32, types.VectorDimension+1)
	a[0], b[0] = 1, 1
	a[types.VectorDimension] = 100 // dropped
	assert.InDelta(t, 1.0, cosine(a, b), 1e-9)
}

func TestSortCandidates(t *testing.T) {
	cands := []candidate{{"b", 0.5}, {"c", 0.9}, {"a", 0.5}}
	sortCandidates(cands)
	assert.Equal(t, []candidate{{"c", 0.9}, {"a", 0.5}, {"b", 0.5}}, cands)
}
