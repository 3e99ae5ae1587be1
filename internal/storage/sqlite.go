package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/dshills/codeindex/internal/chunker"
	"github.com/dshills/codeindex/pkg/types"
)

// ErrNotFound is returned when a requested entity doesn't exist
var ErrNotFound = errors.New("not found")

// SQLiteStore implements Store using SQLite with FTS5
type SQLiteStore struct {
	db     *sql.DB
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL lets readers keep the last committed state while a job writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection serializes writers; :memory: also needs it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens the database at dbPath and applies migrations.
// Use ":memory:" for a throwaway store.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Dir returns the store directory, empty for stores not opened with Open
func (s *SQLiteStore) Dir() string {
	return s.dir
}

// Close closes the database and releases the store lock
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if uerr := s.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// inTx runs fn in one transaction; nothing is visible until it commits
func (s *SQLiteStore) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Write operations

// AddOrUpdate upserts a document by id
func (s *SQLiteStore) AddOrUpdate(ctx context.Context, doc types.Document) error {
	return upsertDocument(ctx, s.db, doc)
}

// BulkReplace clears the store and writes words in a single transaction.
// Readers see either the previous full set or the new one.
func (s *SQLiteStore) BulkReplace(ctx context.Context, words []types.Word) error {
	return s.inTx(ctx, func(q querier) error {
		for _, stmt := range []string{"DELETE FROM documents", "DELETE FROM files", "DELETE FROM symbols"} {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("clear index: %w", err)
			}
		}
		return s.writeWords(ctx, q, words)
	})
}

// IncrementalUpdate removes every document of removePaths and every
// document sharing an id with an incoming word, then writes addWords. All of
// it commits once.
func (s *SQLiteStore) IncrementalUpdate(ctx context.Context, addWords []types.Word, removePaths []string) error {
	return s.inTx(ctx, func(q querier) error {
		for _, p := range removePaths {
			if err := deletePath(ctx, q, types.NormalizePath(p)); err != nil {
				return err
			}
		}
		for _, w := range addWords {
			if _, err := q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", w.ID); err != nil {
				return fmt.Errorf("delete document %s: %w", w.ID, err)
			}
		}
		return s.writeWords(ctx, q, addWords)
	})
}

func (s *SQLiteStore) writeWords(ctx context.Context, q querier, words []types.Word) error {
	files := newFileCache()
	for _, w := range words {
		path := types.NormalizePath(w.Meta.Path)

		if w.File != nil {
			if err := writeFileState(ctx, q, w.File); err != nil {
				return err
			}
		}
		if !w.HasRange() {
			continue
		}

		content := w.Content
		if content == "" {
			content = files.extract(path, w.Meta.StartLine, w.Meta.EndLine)
		}
		if strings.TrimSpace(content) == "" {
			s.logger.Debug("skipping blank document", "id", w.ID)
			continue
		}

		doc := types.Document{
			ID:        types.DocumentID(path, w.Meta.StartLine, w.Meta.EndLine),
			Path:      path,
			FileName:  types.FileName(path),
			Content:   content,
			StartLine: w.Meta.StartLine,
			EndLine:   w.Meta.EndLine,
			Vector:    w.Vector,
		}
		if err := upsertDocument(ctx, q, doc); err != nil {
			return err
		}
	}
	return nil
}

func upsertDocument(ctx context.Context, q querier, doc types.Document) error {
	path := types.NormalizePath(doc.Path)
	if doc.ID == "" {
		doc.ID = types.DocumentID(path, doc.StartLine, doc.EndLine)
	}
	if doc.FileName == "" {
		doc.FileName = types.FileName(path)
	}

	query := `
		INSERT INTO documents (id, path, file_name, content, start_line, end_line, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			file_name = excluded.file_name,
			content = excluded.content,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		doc.ID, path, doc.FileName, doc.Content, doc.StartLine, doc.EndLine,
		encodeVector(types.FitDimension(doc.Vector)), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// deletePath removes path and, when path is a directory, every path below it.
func deletePath(ctx context.Context, q querier, path string) error {
	// Paths under dir sort in [dir+"/", dir+"0") since '0' follows '/'.
	dir := strings.TrimSuffix(path, "/")
	lo, hi := dir+"/", dir+"0"
	for _, stmt := range []string{
		"DELETE FROM documents WHERE path = ? OR (path >= ? AND path < ?)",
		"DELETE FROM files WHERE path = ? OR (path >= ? AND path < ?)",
		"DELETE FROM symbols WHERE path = ? OR (path >= ? AND path < ?)",
	} {
		if _, err := q.ExecContext(ctx, stmt, path, lo, hi); err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	return nil
}

func writeFileState(ctx context.Context, q querier, f *types.FileState) error {
	path := types.NormalizePath(f.Path)

	query := `
		INSERT INTO files (path, size_bytes, mod_time, content_hash, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			content_hash = excluded.content_hash,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at
	`
	if _, err := q.ExecContext(ctx, query, path, f.Size, f.ModTime, f.Hash, f.Chunks, time.Now()); err != nil {
		return fmt.Errorf("failed to record file %s: %w", path, err)
	}

	return replaceSymbols(ctx, q, path, f.Symbols)
}

// fileCache re-reads chunk ranges from disk for words without a content
// snapshot, reading each file at most once per write.
type fileCache struct {
	texts map[string]string
}

func newFileCache() *fileCache {
	return &fileCache{texts: make(map[string]string)}
}

func (c *fileCache) extract(path string, start, end int) string {
	text, ok := c.texts[path]
	if !ok {
		data, err := os.ReadFile(path)
		if err == nil {
			text = string(data)
		}
		c.texts[path] = text
	}
	return chunker.ExtractLines(text, start, end)
}

// Reconciliation

// Exists reports whether any document is stored for path. I/O errors
// report false.
func (s *SQLiteStore) Exists(ctx context.Context, path string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE path = ? LIMIT 1", types.NormalizePath(path)).Scan(&one)
	return err == nil
}

// HasAnyIndex reports whether the store holds at least one document. I/O
// errors report false.
func (s *SQLiteStore) HasAnyIndex(ctx context.Context) bool {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM documents LIMIT 1").Scan(&one)
	return err == nil
}

// NonExistentPaths returns the stored paths whose file is gone from disk
func (s *SQLiteStore) NonExistentPaths(ctx context.Context) ([]string, error) {
	paths, err := s.Paths(ctx)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// Paths returns every distinct stored path, including files recorded
// without documents.
func (s *SQLiteStore) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM documents UNION SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
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

// FileRecord returns the recorded state of an indexed file
func (s *SQLiteStore) FileRecord(ctx context.Context, path string) (*types.FileState, error) {
	f := &types.FileState{}
	err := s.db.QueryRowContext(ctx,
		"SELECT path, size_bytes, mod_time, content_hash, chunk_count FROM files WHERE path = ?",
		types.NormalizePath(path),
	).Scan(&f.Path, &f.Size, &f.ModTime, &f.Hash, &f.Chunks)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file record: %w", err)
	}
	return f, nil
}

// Count returns the number of stored documents
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Stats summarizes the store
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(DISTINCT path) FROM documents),
			(SELECT COUNT(*) FROM symbols)
	`
	if err := s.db.QueryRowContext(ctx, query).Scan(&stats.Documents, &stats.Files, &stats.Symbols); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.SizeBytes = pageCount * pageSize
		}
	}

	return stats, nil
}
