package types

// SearchResult is a ranked chunk returned to the caller. Distance is
// 1 - score, so lower is better.
type SearchResult struct {
	ID        string
	Name      string
	Path      string
	StartLine int
	EndLine   int
	Content   string
	Distance  float64
}

// Score returns the similarity the distance was derived from.
func (sr *SearchResult) Score() float64 {
	return 1 - sr.Distance
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Path == "" {
		return ErrMissingFileInfo
	}

	if sr.StartLine < 1 || sr.EndLine < sr.StartLine {
		return ErrInvalidRange
	}

	if sr.Distance < 0 || sr.Distance > 1 {
		return ErrInvalidDistance
	}

	return nil
}
