package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codeindex/internal/ranking"
	"github.com/dshills/codeindex/pkg/types"
)

// CandidateMultiplier is how many candidates per requested result each
// retrieval mode contributes to hybrid fusion.
const CandidateMultiplier = 3

// LexicalSearch runs a full-text query over document content. Plain terms
// are OR-ed together. When the query does not parse as an FTS5 expression it
// is retried with every term quoted as a literal.
func (s *SQLiteStore) LexicalSearch(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	structured := structuredQuery(query)
	if structured != "" {
		results, err := s.matchText(ctx, structured, k)
		if err == nil {
			return results, nil
		}
		s.logger.Debug("structured query failed, falling back to raw terms", "query", query, "err", err)
	}

	raw := rawTermQuery(query)
	if raw == "" {
		return nil, nil
	}
	return s.matchText(ctx, raw, k)
}

func (s *SQLiteStore) matchText(ctx context.Context, match string, k int) ([]ScoredDocument, error) {
	query := `
		SELECT d.id, d.path, d.file_name, d.content, d.start_line, d.end_line, -bm25(documents_fts) AS score
		FROM documents_fts
		JOIN documents d ON d.seq = documents_fts.rowid
		WHERE documents_fts MATCH ?
		ORDER BY bm25(documents_fts), d.id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, match, k)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ScoredDocument
	for rows.Next() {
		var r ScoredDocument
		if err := rows.Scan(&r.ID, &r.Path, &r.FileName, &r.Content, &r.StartLine, &r.EndLine, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// VectorSearch ranks every stored vector by cosine similarity to vector.
// Only positive similarities are returned.
func (s *SQLiteStore) VectorSearch(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}
	query := types.FitDimension(vector)

	rows, err := s.db.QueryContext(ctx, "SELECT id, vector FROM documents")
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]candidate, 0, 1024)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if sim := cosine(query, decodeVector(blob)); sim > 0 {
			candidates = append(candidates, candidate{id: id, score: sim})
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// The single connection must be free before the next query
	_ = rows.Close()

	sortCandidates(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	docs, err := s.documentsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]ScoredDocument, 0, len(candidates))
	for _, c := range candidates {
		if doc, ok := docs[c.id]; ok {
			results = append(results, ScoredDocument{Document: doc, Score: c.score})
		}
	}
	return results, nil
}

// HybridSearch fuses lexical and vector retrieval. Each mode fetches
// CandidateMultiplier*k candidates, scores are normalized per mode and
// combined with the normalized weights. With only one input present the
// single mode is ranked on its own; with neither the result is empty.
func (s *SQLiteStore) HybridSearch(ctx context.Context, textQuery string, vector []float32, textWeight, vectorWeight float64, k int) ([]types.SearchResult, error) {
	hasText := strings.TrimSpace(textQuery) != ""
	hasVector := len(vector) > 0
	if k <= 0 || (!hasText && !hasVector) {
		return nil, nil
	}

	docs := make(map[string]types.Document)
	collect := func(results []ScoredDocument) []ranking.Candidate {
		cands := make([]ranking.Candidate, len(results))
		for i, r := range results {
			cands[i] = ranking.Candidate{ID: r.ID, Score: r.Score}
		}
		return cands
	}

	var ranked []ranking.Scored
	switch {
	case hasText && !hasVector:
		text, err := s.LexicalSearch(ctx, textQuery, k)
		if err != nil {
			return nil, err
		}
		addDocuments(docs, text)
		ranked = ranking.Rank(collect(text), k)

	case hasVector && !hasText:
		vec, err := s.VectorSearch(ctx, vector, k)
		if err != nil {
			return nil, err
		}
		addDocuments(docs, vec)
		ranked = ranking.Rank(collect(vec), k)

	default:
		var text, vec []ScoredDocument
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			text, err = s.LexicalSearch(gctx, textQuery, CandidateMultiplier*k)
			return err
		})
		g.Go(func() error {
			var err error
			vec, err = s.VectorSearch(gctx, vector, CandidateMultiplier*k)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		addDocuments(docs, text)
		addDocuments(docs, vec)
		ranked = ranking.Fuse(collect(text), collect(vec), textWeight, vectorWeight, k)
	}

	results := make([]types.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		doc, ok := docs[r.ID]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			ID:        doc.ID,
			Name:      doc.FileName,
			Path:      doc.Path,
			StartLine: doc.StartLine,
			EndLine:   doc.EndLine,
			Content:   doc.Content,
			Distance:  r.Distance(),
		})
	}
	return results, nil
}

func addDocuments(dst map[string]types.Document, results []ScoredDocument) {
	for _, r := range results {
		dst[r.ID] = r.Document
	}
}

// documentsByID loads documents without their vectors
func (s *SQLiteStore) documentsByID(ctx context.Context, ids []string) (map[string]types.Document, error) {
	docs := make(map[string]types.Document, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, path, file_name, content, start_line, end_line FROM documents WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d types.Document
		if err := rows.Scan(&d.ID, &d.Path, &d.FileName, &d.Content, &d.StartLine, &d.EndLine); err != nil {
			return nil, err
		}
		docs[d.ID] = d
	}
	return docs, rows.Err()
}

// structuredQuery passes queries that already use FTS5 syntax through
// unchanged and joins plain terms with OR.
func structuredQuery(query string) string {
	if hasFTSSyntax(query) {
		return query
	}
	return strings.Join(queryTerms(query), " OR ")
}

// rawTermQuery quotes every term so no character is read as an operator
func rawTermQuery(query string) string {
	terms := queryTerms(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " OR ")
}

// queryTerms splits on everything the index tokenizer treats as a separator
func queryTerms(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !isTokenRune(r)
	})
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func hasFTSSyntax(query string) bool {
	if strings.ContainsAny(query, `"*():^+`) {
		return true
	}
	for _, f := range strings.Fields(query) {
		switch f {
		case "AND", "OR", "NOT", "NEAR":
			return true
		}
	}
	return false
}
