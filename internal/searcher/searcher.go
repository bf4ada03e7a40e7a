package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/vectorindex"
	"github.com/Natural-Heroes/review-agent/pkg/types"
)

const (
	DefaultLimit    = 5
	MaxLimit        = 50
	DefaultCacheTTL = 5 * time.Minute
	cacheEntries    = 1000
)

// ErrNotIndexed is returned when the repository has no collection yet
var ErrNotIndexed = errors.New("repository is not indexed")

// QueryEmbedder embeds search queries
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PointSearcher runs nearest-neighbor queries against a collection
type PointSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]types.ScoredPoint, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Owner    string
	Repo     string
	Query    string
	Limit    int
	UseCache bool // Whether to use the response cache
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchHit
	TotalResults int
	Collection   string
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher embeds queries and ranks a repository's chunks against them
type Searcher struct {
	embedder QueryEmbedder
	points   PointSearcher
	logger   *zap.Logger
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(embedder QueryEmbedder, points PointSearcher, logger *zap.Logger) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheEntries)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Searcher{
		embedder: embedder,
		points:   points,
		logger:   logger,
		cache:    cache,
	}
}

// SearchCode returns up to limit hits for query in owner/repo, best first.
// It bypasses the response cache.
func (s *Searcher) SearchCode(ctx context.Context, owner, repo, query string, limit int) ([]types.SearchHit, error) {
	resp, err := s.Search(ctx, SearchRequest{Owner: owner, Repo: repo, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	collection := vectorindex.CollectionName(req.Owner, req.Repo)

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	points, err := s.points.Search(ctx, collection, vector, req.Limit)
	if errors.Is(err, vectorindex.ErrCollectionNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotIndexed, req.Owner, req.Repo)
	}
	if err != nil {
		return nil, err
	}

	// Malformed points are skipped; ranks stay contiguous
	hits := make([]types.SearchHit, 0, len(points))
	for _, p := range points {
		hit := types.HitFromPoint(p, len(hits)+1)
		if err := hit.Validate(); err != nil {
			s.logger.Warn("skipping malformed point",
				zap.String("collection", collection),
				zap.Uint64("id", p.ID),
				zap.Error(err))
			continue
		}
		hits = append(hits, hit)
	}

	response := &SearchResponse{
		Results:      hits,
		TotalResults: len(hits),
		Collection:   collection,
		Duration:     time.Since(startTime),
	}

	s.logger.Debug("searched collection",
		zap.String("collection", collection),
		zap.Int("hits", len(hits)),
		zap.Duration("duration", response.Duration))

	if req.UseCache && len(hits) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// validateRequest ensures search request is valid and applies defaults
func validateRequest(req *SearchRequest) error {
	if req.Owner == "" || req.Repo == "" {
		return fmt.Errorf("owner and repo are required")
	}

	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	// Check expiry while holding the read lock
	if now.After(entry.expiresAt) {
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
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse.
// SearchHit holds only value fields, so copying the slice is enough.
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]types.SearchHit, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	key := vectorindex.CollectionName(req.Owner, req.Repo) + "|" +
		strconv.Itoa(req.Limit) + "|" + req.Query
	return sha256.Sum256([]byte(key))
}

// InvalidateCache drops every cached response. Called after re-indexing.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}
