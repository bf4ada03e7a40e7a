package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/twmb/murmur3"
)

// Provider configuration
const (
	ProviderVoyage = "voyage"
	ProviderJina   = "jina"
	ProviderLocal  = "local"

	// Default models
	DefaultVoyageModel = "voyage-code-3"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultLocalModel  = "local-hashing"

	// Endpoints
	DefaultVoyageURL = "https://api.voyageai.com/v1/embeddings"
	DefaultJinaURL   = "https://api.jina.ai/v1/embeddings"

	// Dimensions
	VoyageDimension = 1024
	JinaDimension   = 1024
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 128
	VoyageBatchSize  = 128
	JinaBatchSize    = 128

	DefaultCacheSize = 10000

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// ProviderOption configures an HTTP-backed provider
type ProviderOption func(*httpEmbedder)

// WithBaseURL overrides the embeddings endpoint
func WithBaseURL(url string) ProviderOption {
	return func(h *httpEmbedder) {
		if url != "" {
			h.endpoint = url
		}
	}
}

// WithModel overrides the default model
func WithModel(model string) ProviderOption {
	return func(h *httpEmbedder) {
		if model != "" {
			h.model = model
		}
	}
}

// WithDimension overrides the expected vector dimension
func WithDimension(dim int) ProviderOption {
	return func(h *httpEmbedder) {
		if dim > 0 {
			h.dimension = dim
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(h *httpEmbedder) {
		if client != nil {
			h.httpClient = client
		}
	}
}

// WithRetry sets the retry policy for individual requests
func WithRetry(cfg RetryConfig) ProviderOption {
	return func(h *httpEmbedder) {
		h.retry = cfg
	}
}

// httpEmbedder holds what the HTTP providers share: endpoint, credentials
// and the request/response cycle of an OpenAI-style embeddings API.
type httpEmbedder struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	batchSize  int
	httpClient *http.Client
	retry      RetryConfig
}

func newHTTPEmbedder(name, endpoint, apiKey, model string, dim, batch int, opts []ProviderOption) *httpEmbedder {
	h := &httpEmbedder{
		name:      name,
		endpoint:  endpoint,
		apiKey:    apiKey,
		model:     model,
		dimension: dim,
		batchSize: batch,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *httpEmbedder) embed(ctx context.Context, texts []string, body map[string]any) ([][]float32, error) {
	if len(texts) > h.batchSize {
		return nil, fmt.Errorf("%w: %d texts, max %d", ErrBatchTooLarge, len(texts), h.batchSize)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	vectors, err := retryWithBackoff(ctx, h.retry, func() ([][]float32, error) {
		return h.callAPI(ctx, payload, len(texts))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, h.name, err)
	}
	return vectors, nil
}

func (h *httpEmbedder) callAPI(ctx context.Context, payload []byte, expected int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, permanent(errors.Wrap(err, "create request"))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "api call")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := errors.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, apiErr
		}
		return nil, permanent(apiErr)
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, permanent(errors.Wrap(err, "decode response"))
	}

	if len(apiResp.Data) != expected {
		return nil, permanent(errors.Errorf("expected %d embeddings, got %d", expected, len(apiResp.Data)))
	}

	sort.SliceStable(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	vectors := make([][]float32, len(apiResp.Data))
	for i, data := range apiResp.Data {
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

func (h *httpEmbedder) Dimension() int    { return h.dimension }
func (h *httpEmbedder) Model() string     { return h.model }
func (h *httpEmbedder) MaxBatchSize() int { return h.batchSize }
func (h *httpEmbedder) Name() string      { return h.name }

func (h *httpEmbedder) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

// VoyageProvider embeds text with the Voyage AI API. Documents and queries
// are sent with input_type "document" and "query" respectively.
type VoyageProvider struct {
	*httpEmbedder
}

// NewVoyageProvider creates a Voyage AI provider
func NewVoyageProvider(apiKey string, opts ...ProviderOption) (*VoyageProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: VOYAGE_API_KEY not set", ErrNoProviderEnabled)
	}
	return &VoyageProvider{
		httpEmbedder: newHTTPEmbedder(ProviderVoyage, DefaultVoyageURL, apiKey, DefaultVoyageModel, VoyageDimension, VoyageBatchSize, opts),
	}, nil
}

// Embed implements Provider
func (v *VoyageProvider) Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	return v.embed(ctx, texts, map[string]any{
		"input":      texts,
		"model":      v.model,
		"input_type": string(input),
		"truncation": true,
	})
}

// JinaProvider embeds text with the Jina AI API using its retrieval tasks
type JinaProvider struct {
	*httpEmbedder
}

// NewJinaProvider creates a new Jina AI provider
func NewJinaProvider(apiKey string, opts ...ProviderOption) (*JinaProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: JINA_API_KEY not set", ErrNoProviderEnabled)
	}
	return &JinaProvider{
		httpEmbedder: newHTTPEmbedder(ProviderJina, DefaultJinaURL, apiKey, DefaultJinaModel, JinaDimension, JinaBatchSize, opts),
	}, nil
}

// Embed implements Provider
func (j *JinaProvider) Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	task := "retrieval.passage"
	if input == InputQuery {
		task = "retrieval.query"
	}
	return j.embed(ctx, texts, map[string]any{
		"input": texts,
		"model": j.model,
		"task":  task,
	})
}

// LocalProvider produces deterministic feature-hashing vectors without any
// network access. Texts sharing identifiers land close together, which is
// enough for offline use and tests.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local provider with the given dimension
// (LocalDimension when dim <= 0)
func NewLocalProvider(dim int) *LocalProvider {
	if dim <= 0 {
		dim = LocalDimension
	}
	return &LocalProvider{dimension: dim}
}

// Embed implements Provider
func (l *LocalProvider) Embed(ctx context.Context, texts []string, _ InputType) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = l.vector(text)
	}
	return vectors, nil
}

func (l *LocalProvider) vector(text string) []float32 {
	v := make([]float32, l.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, tok := range tokens {
		h := murmur3.Sum32([]byte(tok))
		idx := int(h % uint32(l.dimension))
		if h&(1<<31) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	if len(tokens) == 0 {
		v[0] = 1
	}
	return NormalizeVector(v)
}

func (l *LocalProvider) Dimension() int    { return l.dimension }
func (l *LocalProvider) Name() string      { return ProviderLocal }
func (l *LocalProvider) Model() string     { return DefaultLocalModel }
func (l *LocalProvider) MaxBatchSize() int { return DefaultBatchSize }
func (l *LocalProvider) Close() error      { return nil }

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
