// Package storage is the persistent document index of a project.
//
// Every chunk is stored as one row of the documents table keyed by
// "path--start--end". The same row feeds two indexes:
//   - documents_fts: an FTS5 external-content table over the chunk text,
//     kept in sync by triggers and ranked with bm25
//   - the vector column: a little-endian float32 blob of exactly
//     types.VectorDimension values, scanned with cosine similarity
//
// The files table records size, modification time and hash of each indexed
// file so reconciliation can find modified files, and the symbols table
// holds declarations extracted by the parser.
//
// # Layout
//
// Open places the database at <root>/<project>/<name>_<version>/index.db and
// holds an exclusive file lock next to it for as long as the store is open.
// Directories of other versions are removed when a store is opened.
//
// # Writes
//
// BulkReplace and IncrementalUpdate each run in a single transaction, so a
// concurrent search sees the index either before or after the update.
//
// # Build Tags
//
// The default build uses modernc.org/sqlite. Building with
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite,sqlite_fts5" ./...
//
// switches to github.com/mattn/go-sqlite3.
package storage
