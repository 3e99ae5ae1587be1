package storage

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/dshills/codeindex/pkg/types"
)

// Vectors are stored as little-endian float32 blobs.

func encodeVector(v []float32) []byte {
	blob := make([]byte, 0, 4*len(v))
	for _, f := range v {
		blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(f))
	}
	return blob
}

// decodeVector ignores a trailing partial float.
func decodeVector(blob []byte) []float32 {
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v
}

// cosine compares a and b at the index dimension. Zero vectors score 0.
func cosine(a, b []float32) float64 {
	a, b = fit(a), fit(b)

	var dot, aa, bb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		aa += x * x
		bb += y * y
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return dot / math.Sqrt(aa*bb)
}

func fit(v []float32) []float32 {
	if len(v) == types.VectorDimension {
		return v
	}
	return types.FitDimension(v)
}

// candidate is a document id with the score of one retrieval mode
type candidate struct {
	id    string
	score float64
}

// sortCandidates orders by score descending, then id
func sortCandidates(cs []candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].score != cs[j].score {
			return cs[i].score > cs[j].score
		}
		return cs[i].id < cs[j].id
	})
}
