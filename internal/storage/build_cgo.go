//go:build cgo_sqlite

package storage

// Built with -tags "cgo_sqlite,sqlite_fts5" to use the C SQLite library.
// The sqlite_fts5 tag is required; the schema depends on FTS5.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
