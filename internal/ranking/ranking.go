// Package ranking fuses lexical and vector candidate sets into one ranked
// list. It works on plain doc-id to score maps and knows nothing about
// storage.
package ranking

import "sort"

// Candidate is one document returned by a single retrieval mode. Higher
// scores are better; scores are only comparable within one mode.
type Candidate struct {
	ID    string
	Score float64
}

// Scored is a fused result. Text and Vector are the normalized component
// scores in [0,1], Score is their weighted sum.
type Scored struct {
	ID     string
	Score  float64
	Text   float64
	Vector float64
}

// Distance converts the fused score into a distance where lower is better.
func (s Scored) Distance() float64 {
	return 1 - s.Score
}

// Normalize divides every score by the set's maximum. A non-positive
// maximum counts as 1, so a degenerate set normalizes to zeros. Results are
// clamped to [0,1]; a repeated ID keeps its best score.
func Normalize(cands []Candidate) map[string]float64 {
	maxScore := 0.0
	for _, c := range cands {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	out := make(map[string]float64, len(cands))
	for _, c := range cands {
		n := clamp01(c.Score / maxScore)
		if prev, ok := out[c.ID]; !ok || n > prev {
			out[c.ID] = n
		}
	}
	return out
}

// NormalizeWeights scales the weights so they sum to 1. Negative weights
// count as 0; if both are 0 the modes are weighted equally.
func NormalizeWeights(textWeight, vectorWeight float64) (float64, float64) {
	if textWeight < 0 {
		textWeight = 0
	}
	if vectorWeight < 0 {
		vectorWeight = 0
	}
	total := textWeight + vectorWeight
	if total == 0 {
		return 0.5, 0.5
	}
	return textWeight / total, vectorWeight / total
}

// Fuse merges the two candidate sets. Each set is normalized by its own
// maximum, and a document missing from one set scores 0 there. The top k
// results by fused score are returned, ties broken by ID.
func Fuse(text, vector []Candidate, textWeight, vectorWeight float64, k int) []Scored {
	if k <= 0 {
		return nil
	}

	wText, wVector := NormalizeWeights(textWeight, vectorWeight)
	normText := Normalize(text)
	normVector := Normalize(vector)

	merged := make(map[string]*Scored, len(normText)+len(normVector))
	for id, s := range normText {
		merged[id] = &Scored{ID: id, Text: s}
	}
	for id, s := range normVector {
		if m, ok := merged[id]; ok {
			m.Vector = s
			continue
		}
		merged[id] = &Scored{ID: id, Vector: s}
	}

	results := make([]Scored, 0, len(merged))
	for _, m := range merged {
		m.Score = clamp01(wText*m.Text + wVector*m.Vector)
		results = append(results, *m)
	}

	return topK(results, k)
}

// Rank is the single-mode path: the candidates are normalized by their
// maximum and the top k returned.
func Rank(cands []Candidate, k int) []Scored {
	if k <= 0 {
		return nil
	}

	norm := Normalize(cands)
	results := make([]Scored, 0, len(norm))
	for id, s := range norm {
		results = append(results, Scored{ID: id, Score: s})
	}
	return topK(results, k)
}

func topK(results []Scored, k int) []Scored {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
