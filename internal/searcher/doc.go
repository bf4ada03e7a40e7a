// Package searcher implements semantic code search over an indexed repository.
//
// A search embeds the query in query mode, runs a nearest-neighbor lookup in
// the repository's collection and shapes the scored points into ranked
// types.SearchHit values.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(embedClient, manager, logger)
//
//	hits, err := s.SearchCode(ctx, "acme", "api", "token refresh logic", 5)
//	if errors.Is(err, searcher.ErrNotIndexed) {
//	    // run the indexer first
//	}
//
//	for _, hit := range hits {
//	    fmt.Printf("[%d] %s:%d-%d %s (score: %.2f)\n",
//	        hit.Rank, hit.FilePath, hit.StartLine, hit.EndLine, hit.Name, hit.Score)
//	}
//
// # Limits
//
// A non-positive limit means DefaultLimit (5); limits above MaxLimit (50)
// are clamped.
//
// # Caching
//
// Requests with UseCache set are served from an LRU cache of recent
// responses until CacheTTL elapses (DefaultCacheTTL when zero). Cached
// responses are deep-copied in and out. Query vectors are cached separately
// by the embedder client.
package searcher
