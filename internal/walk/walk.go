package walk

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
)

// Lister enumerates the eligible files of one project
type Lister struct {
	filter *Filter
	logger *slog.Logger
}

// NewLister creates a lister for root
func NewLister(root string, logger *slog.Logger) (*Lister, error) {
	filter, err := NewFilter(root)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{filter: filter, logger: logger}, nil
}

// Filter returns the filter the lister applies
func (l *Lister) Filter() *Filter {
	return l.filter
}

// Root returns the absolute project root
func (l *Lister) Root() string {
	return l.filter.Root()
}

// Check applies the lister's filter to a single absolute path.
func (l *Lister) Check(abs string) (FileInfo, error) {
	return l.filter.Check(abs)
}

// List walks the project once and returns its eligible files sorted by
// path. Unreadable entries are logged and skipped.
func (l *Lister) List(ctx context.Context) ([]FileInfo, error) {
	root := l.filter.Root()
	var files []FileInfo

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root {
				return err
			}
			l.logger.Warn("skipping unreadable path", "path", p, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel, ok := l.filter.Rel(p)
		if !ok {
			return nil
		}

		if d.IsDir() {
			if l.filter.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || l.filter.Ignored(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			l.logger.Warn("skipping unreadable file", "path", p, "err", err)
			return nil
		}
		fi, err := l.filter.checkContent(p, info)
		if err != nil {
			if !errors.Is(err, ErrNotEligible) {
				l.logger.Warn("skipping unreadable file", "path", p, "err", err)
			}
			return nil
		}
		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
