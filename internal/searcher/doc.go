// Package searcher answers code search queries against a project index.
//
// A search embeds the query, runs the store's hybrid retrieval (weighted
// fusion of full-text and vector scores), refreshes every result's text
// from disk, lowers the distance of results in files that declare a symbol
// named in the query and finally sorts by distance, lowest first.
//
// # Modes
//
//	SearchModeHybrid   text and vector, the default
//	SearchModeVector   vector only
//	SearchModeKeyword  text only, no embedding call
//
// When the query cannot be embedded, hybrid and vector searches fall back
// to text only.
//
// # Caching
//
// Responses can be cached in an LRU keyed by the normalized request and
// expire after Options.CacheTTL. InvalidateCache must be called after every
// change to the index.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, client, symbols.NewResolver(store, nil), searcher.Options{})
//	resp, err := s.Search(ctx, searcher.SearchRequest{Query: "parse config file"})
//	for _, r := range resp.Results {
//	    fmt.Printf("%s:%d-%d %.3f\n", r.Path, r.StartLine, r.EndLine, r.Distance)
//	}
package searcher
