//go:build !cgo_sqlite

package storage

// Default build: pure Go SQLite, FTS5 included, no C compiler needed.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
