package symbols

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/dshills/codeindex/internal/storage"
	"github.com/dshills/codeindex/pkg/types"
)

// Re-rank weights per kind of match. A file-name or plain-text match
// weighs the same as a class match.
const (
	ClassWeight  = 0.5
	MethodWeight = 0.3
	FieldWeight  = 0.15
	FileWeight   = 0.5

	// RescaleFactor bounds the distance reduction to 30% at weight 1
	RescaleFactor = 0.3

	defaultCandidateLimit = 200
)

// SymbolIndex is the source of symbol, file name and word lookups
type SymbolIndex interface {
	SymbolCandidates(ctx context.Context, name string, limit int) ([]types.Symbol, error)
	FileNameCandidates(ctx context.Context, name string, limit int) ([]storage.FileName, error)
	PathsContaining(ctx context.Context, word string, limit int) ([]string, error)
}

// Paths holds the normalized file paths matched per category
type Paths struct {
	Classes map[string]struct{}
	Methods map[string]struct{}
	Fields  map[string]struct{}
	Files   map[string]struct{}
	Texts   map[string]struct{}
}

// NewPaths returns an empty set of paths
func NewPaths() *Paths {
	return &Paths{
		Classes: make(map[string]struct{}),
		Methods: make(map[string]struct{}),
		Fields:  make(map[string]struct{}),
		Files:   make(map[string]struct{}),
		Texts:   make(map[string]struct{}),
	}
}

// Empty reports whether nothing matched
func (p *Paths) Empty() bool {
	return p == nil || len(p.Classes)+len(p.Methods)+len(p.Fields)+len(p.Files)+len(p.Texts) == 0
}

// Weight returns the re-rank weight for path, 0 if it matched nothing.
// Classes take precedence over methods, methods over fields, and fields
// over file-name and text matches.
func (p *Paths) Weight(filePath string) float64 {
	if p == nil {
		return 0
	}
	norm := types.NormalizePath(filePath)
	switch {
	case has(p.Classes, norm):
		return ClassWeight
	case has(p.Methods, norm):
		return MethodWeight
	case has(p.Fields, norm):
		return FieldWeight
	case has(p.Files, norm), has(p.Texts, norm):
		return FileWeight
	}
	return 0
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func add(set map[string]struct{}, p string) {
	set[types.NormalizePath(p)] = struct{}{}
}

// Rescale lowers the distance of every result whose file matched a symbol:
// d' = d - d*RescaleFactor*weight. Unmatched results keep their distance.
func Rescale(results []types.SearchResult, paths *Paths) {
	if paths.Empty() {
		return
	}
	for i := range results {
		w := paths.Weight(results[i].Path)
		if w <= 0 || results[i].Distance <= 0 {
			continue
		}
		results[i].Distance -= results[i].Distance * RescaleFactor * w
	}
}

// Resolver looks up candidate symbol names in a SymbolIndex
type Resolver struct {
	index  SymbolIndex
	limit  int
	logger *slog.Logger
}

// NewResolver creates a resolver over index
func NewResolver(index SymbolIndex, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{index: index, limit: defaultCandidateLimit, logger: logger}
}

// Resolve maps candidate names to the files declaring or mentioning them.
// Names that are not printable ASCII are skipped.
func (r *Resolver) Resolve(ctx context.Context, names []string) (*Paths, error) {
	paths := NewPaths()

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" || !IsIdentifierQuery(name) {
			continue
		}

		syms, err := r.index.SymbolCandidates(ctx, name, r.limit)
		if err != nil {
			return nil, fmt.Errorf("resolve symbol %s: %w", name, err)
		}
		for i := range syms {
			sym := &syms[i]
			if !Match(name, sym.Name) {
				continue
			}
			switch sym.Category() {
			case types.CategoryClass:
				add(paths.Classes, sym.Path)
			case types.CategoryMethod:
				add(paths.Methods, sym.Path)
			default:
				add(paths.Fields, sym.Path)
			}
		}

		files, err := r.index.FileNameCandidates(ctx, name, r.limit)
		if err != nil {
			return nil, fmt.Errorf("resolve file %s: %w", name, err)
		}
		for _, f := range files {
			base := strings.TrimSuffix(f.Name, path.Ext(f.Name))
			if Match(name, base) || strings.EqualFold(name, f.Name) {
				add(paths.Files, f.Path)
			}
		}

		texts, err := r.index.PathsContaining(ctx, name, r.limit)
		if err != nil {
			return nil, fmt.Errorf("resolve text %s: %w", name, err)
		}
		for _, p := range texts {
			add(paths.Texts, p)
		}
	}

	r.logger.Debug("resolved symbols",
		"names", len(names),
		"classes", len(paths.Classes),
		"methods", len(paths.Methods),
		"fields", len(paths.Fields),
		"files", len(paths.Files),
		"texts", len(paths.Texts))

	return paths, nil
}

// IsIdentifierQuery reports whether every byte is printable ASCII
func IsIdentifierQuery(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}
	return true
}
