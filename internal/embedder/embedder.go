package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// InputType selects document (indexing) or query (search) embedding. The two
// may produce different vectors for the same text and are not interchangeable.
type InputType string

const (
	InputDocument InputType = "document"
	InputQuery    InputType = "query"
)

// Provider is an external embedding service. Embed receives at most
// MaxBatchSize texts and returns one vector per text, in order.
type Provider interface {
	Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Name returns the provider name
	Name() string

	// Model returns the model name
	Model() string

	// MaxBatchSize is the largest number of texts accepted per request
	MaxBatchSize() int

	// Close releases any resources held by the provider
	Close() error
}

// Client batches texts for a Provider and caches query embeddings
type Client struct {
	provider Provider
	cache    *Cache
	logger   *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithCache sets the query embedding cache. A nil cache disables caching.
func WithCache(cache *Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient wraps a provider
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		cache:    NewCache(DefaultCacheSize),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbedDocuments embeds texts for indexing. The result has one vector per
// text in the same order; empty input returns an empty result without
// contacting the provider. A failed request fails the whole call.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	batchSize := c.provider.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		batch, err := c.embedBatch(ctx, texts[start:end], InputDocument)
		if err != nil {
			return nil, fmt.Errorf("embed documents %d-%d of %d: %w", start, end, len(texts), err)
		}
		vectors = append(vectors, batch...)
	}

	c.logger.Debug("embedded documents",
		zap.String("provider", c.provider.Name()),
		zap.Int("texts", len(texts)))

	return vectors, nil
}

// EmbedQuery embeds a single search query
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	key := ComputeHash(c.provider.Model() + "\x00" + text)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
	}

	vectors, err := c.embedBatch(ctx, []string{text}, InputQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if c.cache != nil {
		c.cache.Set(key, vectors[0])
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	vectors, err := c.provider.Embed(ctx, texts, input)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(vectors), len(texts))
	}

	dim := c.provider.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	return vectors, nil
}

// Dimension returns the provider's vector dimension
func (c *Client) Dimension() int {
	return c.provider.Dimension()
}

// Provider returns the provider name
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Model returns the provider model
func (c *Client) Model() string {
	return c.provider.Model()
}

// Close drops cached query vectors and releases provider resources
func (c *Client) Close() error {
	if c.cache != nil {
		c.logger.Debug("dropping query cache", zap.Int("entries", c.cache.Size()))
		c.cache.Clear()
	}
	return c.provider.Close()
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &Cache{
		cache: cache,
	}
}

// Get retrieves a copy of a cached vector
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}

	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a copy of a vector in the cache
func (c *Cache) Set(hash string, v []float32) {
	stored := make([]float32, len(v))
	copy(stored, v)
	c.cache.Add(hash, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateTexts rejects empty texts in a batch
func ValidateTexts(texts []string) error {
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
