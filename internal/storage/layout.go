package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	// DefaultIndexName prefixes the versioned index directory
	DefaultIndexName = "index"

	// StoreVersion is bumped whenever the on-disk layout changes in a way
	// migrations cannot handle; older directories are deleted on open.
	StoreVersion = "2"

	dbFileName   = "index.db"
	lockFileName = "index.lock"
)

// ErrStoreLocked is returned when another process holds the store
var ErrStoreLocked = errors.New("index store is locked by another process")

// Options locate a project's store on disk
type Options struct {
	Root    string // data root shared by all projects
	Project string // project directory name, see ProjectKey
	Name    string // index name, DefaultIndexName when empty
	Version string // layout version, StoreVersion when empty
	Logger  *slog.Logger
}

// ProjectKey derives a stable directory name for a project root: the base
// name for readability plus a short hash of the absolute path.
func ProjectKey(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	sum := sha256.Sum256([]byte(filepath.ToSlash(abs)))
	base := filepath.Base(abs)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "root"
	}
	return base + "-" + hex.EncodeToString(sum[:4])
}

// StartCacheIndex creates <root>/<project>/<name>_<version> and deletes any
// sibling <name>_<other> directories left behind by older versions.
func StartCacheIndex(root, project, name, version string) (string, error) {
	projectDir := filepath.Join(root, project)
	dir := filepath.Join(projectDir, name+"_"+version)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create index directory: %w", err)
	}

	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return "", fmt.Errorf("read project directory: %w", err)
	}

	current := filepath.Base(dir)
	for _, e := range entries {
		if !e.IsDir() || e.Name() == current || !strings.HasPrefix(e.Name(), name+"_") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(projectDir, e.Name())); err != nil {
			return "", fmt.Errorf("remove stale index %s: %w", e.Name(), err)
		}
	}

	return dir, nil
}

// Open prepares the versioned directory, takes the store lock and opens the
// database. Any failure here is fatal for the project's index.
func Open(opts Options) (*SQLiteStore, error) {
	if opts.Root == "" || opts.Project == "" {
		return nil, fmt.Errorf("open store: root and project are required")
	}
	if opts.Name == "" {
		opts.Name = DefaultIndexName
	}
	if opts.Version == "" {
		opts.Version = StoreVersion
	}

	dir, err := StartCacheIndex(opts.Root, opts.Project, opts.Name, opts.Version)
	if err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrStoreLocked, dir)
	}

	store, err := NewSQLiteStore(filepath.Join(dir, dbFileName), opts.Logger)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	store.dir = dir
	store.lock = lock

	return store, nil
}
