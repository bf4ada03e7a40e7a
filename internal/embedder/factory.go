package embedder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	CacheSize int
}

// NewProvider creates the provider named in cfg
func NewProvider(cfg Config) (Provider, error) {
	opts := []ProviderOption{
		WithModel(cfg.Model),
		WithBaseURL(cfg.BaseURL),
		WithDimension(cfg.Dimension),
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderVoyage, "":
		return NewVoyageProvider(cfg.APIKey, opts...)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, opts...)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// New creates a Client for the provider named in cfg
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(provider, WithCache(NewCache(cfg.CacheSize)), WithLogger(logger)), nil
}
