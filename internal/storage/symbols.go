package storage

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/codeindex/pkg/types"
)

// Symbol index source. Matching here is a coarse SQL prefilter; callers
// apply the exact camel-hump or substring test.

const defaultCandidateLimit = 500

// SymbolCandidates returns symbols whose name starts with the first
// character of name or contains name, case-insensitively
func (s *SQLiteStore) SymbolCandidates(ctx context.Context, name string, limit int) ([]types.Symbol, error) {
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := `
		SELECT path, name, kind, COALESCE(receiver, ''), COALESCE(start_line, 0), COALESCE(end_line, 0)
		FROM symbols
		WHERE name LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\'
		ORDER BY name, path
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, firstCharPattern(name), containsPattern(name), limit)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var symbols []types.Symbol
	for rows.Next() {
		var sym types.Symbol
		var kind string
		if err := rows.Scan(&sym.Path, &sym.Name, &kind, &sym.Receiver, &sym.Start.Line, &sym.End.Line); err != nil {
			return nil, err
		}
		sym.Kind = types.SymbolKind(kind)
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// FileNameCandidates returns indexed files whose base name starts with the
// first character of name or contains name
func (s *SQLiteStore) FileNameCandidates(ctx context.Context, name string, limit int) ([]FileName, error) {
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := `
		SELECT DISTINCT path, file_name
		FROM documents
		WHERE file_name LIKE ? ESCAPE '\' OR file_name LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, firstCharPattern(name), containsPattern(name), limit)
	if err != nil {
		return nil, fmt.Errorf("search file names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []FileName
	for rows.Next() {
		var f FileName
		if err := rows.Scan(&f.Path, &f.Name); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// PathsContaining returns paths whose content contains word as a token
func (s *SQLiteStore) PathsContaining(ctx context.Context, word string, limit int) ([]string, error) {
	match := rawTermQuery(word)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultCandidateLimit
	}

	query := `
		SELECT DISTINCT d.path
		FROM documents_fts
		JOIN documents d ON d.seq = documents_fts.rowid
		WHERE documents_fts MATCH ?
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search text paths: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func replaceSymbols(ctx context.Context, q querier, path string, symbols []types.Symbol) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM symbols WHERE path = ?", path); err != nil {
		return fmt.Errorf("clear symbols for %s: %w", path, err)
	}

	for _, sym := range symbols {
		_, err := q.ExecContext(ctx,
			"INSERT INTO symbols (path, name, kind, receiver, start_line, end_line) VALUES (?, ?, ?, ?, ?, ?)",
			path, sym.Name, string(sym.Kind), sym.Receiver, sym.Start.Line, sym.End.Line)
		if err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.Name, err)
		}
	}
	return nil
}

func firstCharPattern(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	return escapeLike(string(r)) + "%"
}

func containsPattern(name string) string {
	return "%" + escapeLike(name) + "%"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
