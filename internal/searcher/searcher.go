package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codeindex/internal/chunker"
	"github.com/dshills/codeindex/internal/symbols"
	"github.com/dshills/codeindex/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid  SearchMode = "hybrid"  // weighted lexical + vector fusion
	SearchModeVector  SearchMode = "vector"  // vector similarity only
	SearchModeKeyword SearchMode = "keyword" // full-text only
)

const (
	DefaultTextWeight   = 0.3
	DefaultVectorWeight = 0.7
	DefaultLimit        = 10
	MaxLimit            = 50
	DefaultCacheSize    = 1000
	DefaultCacheTTL     = 10 * time.Minute
)

// Candidates asked of the index: overFetch times the limit at first, growing
// by the same factor up to maxFetch times MaxLimit.
const (
	overFetch = 2
	maxFetch  = 8
)

// ErrEmptyQuery is returned for a blank query
var ErrEmptyQuery = errors.New("query cannot be empty")

// Index is the hybrid retrieval the searcher runs against
type Index interface {
	HybridSearch(ctx context.Context, textQuery string, vector []float32, textWeight, vectorWeight float64, k int) ([]types.SearchResult, error)
}

// QueryEmbedder turns a query into a vector; nil means unavailable
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) []float32
}

// SymbolResolver maps symbol names to the files they occur in
type SymbolResolver interface {
	Resolve(ctx context.Context, names []string) (*symbols.Paths, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string

	// Symbols are candidate identifiers for re-ranking. When empty they are
	// taken from the query.
	Symbols []string

	Limit int
	Mode  SearchMode

	// Both zero selects the configured defaults
	TextWeight   float64
	VectorWeight float64

	UseCache bool
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	SearchMode   SearchMode
	Duration     time.Duration
	CacheHit     bool
	Reranked     bool
}

// Options tune a Searcher. Zero values select the defaults.
type Options struct {
	TextWeight   float64
	VectorWeight float64
	DefaultLimit int
	MaxLimit     int
	CacheSize    int
	CacheTTL     time.Duration
	Logger       *slog.Logger
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs hybrid queries and re-ranks them by symbol matches
type Searcher struct {
	index    Index
	embedder QueryEmbedder
	resolver SymbolResolver
	opts     Options
	logger   *slog.Logger

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a new Searcher. embedder and resolver may be nil, in
// which case searches are text-only and not re-ranked.
func NewSearcher(index Index, embedder QueryEmbedder, resolver SymbolResolver, opts Options) *Searcher {
	if opts.TextWeight == 0 && opts.VectorWeight == 0 {
		opts.TextWeight, opts.VectorWeight = DefaultTextWeight, DefaultVectorWeight
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		// Only fails for a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		index:    index,
		embedder: embedder,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		cache:    cache,
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	text, vector := s.queryInputs(ctx, req)

	results, err := s.fetch(ctx, text, vector, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	response := &SearchResponse{SearchMode: req.Mode}
	if s.resolver != nil && len(results) > 0 {
		response.Reranked = s.rerank(ctx, req, results)
	}
	sortByDistance(results)
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	response.Results = results
	response.TotalResults = len(results)
	response.Duration = time.Since(startTime)

	if req.UseCache && len(results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// fetch asks the index for more candidates than req.Limit and widens the
// request while refreshed results come back short and the index has more.
func (s *Searcher) fetch(ctx context.Context, text string, vector []float32, req SearchRequest) ([]types.SearchResult, error) {
	k := req.Limit * overFetch
	maxK := s.opts.MaxLimit * maxFetch
	for {
		results, err := s.index.HybridSearch(ctx, text, vector, req.TextWeight, req.VectorWeight, k)
		if err != nil {
			return nil, err
		}
		exhausted := len(results) < k
		results = refreshContent(results)
		if len(results) >= req.Limit || exhausted || k >= maxK {
			return results, nil
		}
		k *= overFetch
	}
}

// queryInputs decides which retrieval modes run. A failed query embedding
// degrades hybrid and vector searches to text only.
func (s *Searcher) queryInputs(ctx context.Context, req SearchRequest) (string, []float32) {
	text := req.Query
	if req.Mode == SearchModeKeyword {
		return text, nil
	}

	var vector []float32
	if s.embedder != nil {
		vector = s.embedder.Embed(ctx, req.Query)
	}
	if len(vector) == 0 {
		s.logger.Warn("query embedding unavailable, using text search", "mode", req.Mode)
		return text, nil
	}
	if req.Mode == SearchModeVector {
		return "", vector
	}
	return text, vector
}

func (s *Searcher) rerank(ctx context.Context, req SearchRequest, results []types.SearchResult) bool {
	names := req.Symbols
	if len(names) == 0 {
		names = QueryIdentifiers(req.Query)
	}
	if len(names) == 0 {
		return false
	}

	paths, err := s.resolver.Resolve(ctx, names)
	if err != nil {
		s.logger.Warn("symbol resolution failed", "err", err)
		return false
	}
	symbols.Rescale(results, paths)
	return !paths.Empty()
}

// refreshContent replaces stored content with the current file text. A
// result whose range is now blank is dropped; an unreadable file keeps the
// stored content until reconciliation removes it.
func refreshContent(results []types.SearchResult) []types.SearchResult {
	texts := make(map[string]*string)
	kept := results[:0]

	for _, r := range results {
		text, ok := texts[r.Path]
		if !ok {
			if data, err := os.ReadFile(r.Path); err == nil {
				t := string(data)
				text = &t
			}
			texts[r.Path] = text
		}

		if text != nil {
			content := chunker.ExtractLines(*text, r.StartLine, r.EndLine)
			if strings.TrimSpace(content) == "" {
				continue
			}
			r.Content = content
		}
		kept = append(kept, r)
	}
	return kept
}

func sortByDistance(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return ErrEmptyQuery
	}

	if req.Limit <= 0 {
		req.Limit = s.opts.DefaultLimit
	}
	if req.Limit > s.opts.MaxLimit {
		req.Limit = s.opts.MaxLimit
	}

	switch req.Mode {
	case "":
		req.Mode = SearchModeHybrid
	case SearchModeHybrid, SearchModeVector, SearchModeKeyword:
	default:
		return fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	if req.TextWeight == 0 && req.VectorWeight == 0 {
		req.TextWeight, req.VectorWeight = s.opts.TextWeight, s.opts.VectorWeight
	}
	if req.TextWeight < 0 || req.VectorWeight < 0 {
		return fmt.Errorf("weights must not be negative")
	}

	return nil
}

// QueryIdentifiers extracts identifier-like words from a query: words of at
// least three characters, in order of first appearance.
func QueryIdentifiers(query string) []string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	seen := make(map[string]bool, len(words))
	var names []string
	for _, w := range words {
		if len(w) < 3 || seen[w] || stopWords[strings.ToLower(w)] {
			continue
		}
		seen[w] = true
		names = append(names, w)
	}
	return names
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "how": true, "what": true,
	"where": true, "with": true, "from": true, "that": true, "this": true,
	"does": true, "code": true, "find": true, "which": true, "when": true,
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(s.opts.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))
	data.WriteString("|")
	data.WriteString(strconv.FormatFloat(req.TextWeight, 'g', -1, 64))
	data.WriteString("|")
	data.WriteString(strconv.FormatFloat(req.VectorWeight, 'g', -1, 64))
	data.WriteString("|")
	data.WriteString(strings.Join(req.Symbols, ","))

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached response. Called whenever an
// indexing job completes.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}
