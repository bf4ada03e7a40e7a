package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/Natural-Heroes/review-agent/internal/embedder"
	"github.com/Natural-Heroes/review-agent/internal/storage"
)

// DefaultEnvFile is read by Load when no files are named
const DefaultEnvFile = ".env"

// ErrMissingCredential is returned by the Require checks
var ErrMissingCredential = errors.New("missing credential")

// Config is the process configuration. It is read once at start and
// passed by value.
type Config struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`

	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" default:"voyage" validate:"oneof=voyage jina local"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL"`
	VoyageAPIKey      string `env:"VOYAGE_API_KEY"`
	JinaAPIKey        string `env:"JINA_API_KEY"`

	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubAPIURL string `env:"GITHUB_API_URL" validate:"omitempty,url"`

	VectorBackend string `env:"VECTOR_BACKEND" default:"sqlite" validate:"oneof=sqlite qdrant"`
	SQLitePath    string `env:"SQLITE_PATH" default:"~/.review-agent/index.db" validate:"required"`
	QdrantHost    string `env:"QDRANT_HOST" default:"localhost" validate:"required_if=VectorBackend qdrant"`
	QdrantPort    int    `env:"QDRANT_PORT" default:"6334" validate:"min=1,max=65535"`
	QdrantAPIKey  string `env:"QDRANT_API_KEY"`
	QdrantUseTLS  bool   `env:"QDRANT_USE_TLS"`

	IndexWorkers int `env:"INDEX_WORKERS" default:"4" validate:"min=1,max=64"`

	LogLevel  string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" default:"console" validate:"oneof=console json"`
}

// Load reads the given .env files (DefaultEnvFile when none are named; a
// missing file is not an error), then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return FromEnv(environ())
}

// FromEnv builds a Config from a variable map. Empty values count as unset.
func FromEnv(env map[string]string) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to set defaults")
	}

	input := make(map[string]interface{}, len(env))
	for k, v := range env {
		if v != "" {
			input[k] = v
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "env",
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode environment")
	}

	cfg.EmbeddingProvider = strings.ToLower(cfg.EmbeddingProvider)
	cfg.VectorBackend = strings.ToLower(cfg.VectorBackend)
	cfg.SQLitePath = expandHome(cfg.SQLitePath)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "validation failed")
	}
	return cfg, nil
}

// RequireModel checks the language model credential
func (c Config) RequireModel() error {
	if c.AnthropicAPIKey == "" {
		return errors.Wrap(ErrMissingCredential, "ANTHROPIC_API_KEY is not set")
	}
	return nil
}

// RequireGitHub checks the GitHub credential
func (c Config) RequireGitHub() error {
	if c.GitHubToken == "" {
		return errors.Wrap(ErrMissingCredential, "GITHUB_TOKEN is not set")
	}
	return nil
}

// RequireEmbedding checks the credential of the selected embedding provider
func (c Config) RequireEmbedding() error {
	switch c.EmbeddingProvider {
	case embedder.ProviderVoyage:
		if c.VoyageAPIKey == "" {
			return errors.Wrap(ErrMissingCredential, "VOYAGE_API_KEY is not set")
		}
	case embedder.ProviderJina:
		if c.JinaAPIKey == "" {
			return errors.Wrap(ErrMissingCredential, "JINA_API_KEY is not set")
		}
	}
	return nil
}

// Embedder returns the embedding client settings
func (c Config) Embedder() embedder.Config {
	cfg := embedder.Config{
		Provider:  c.EmbeddingProvider,
		Model:     c.EmbeddingModel,
		CacheSize: embedder.DefaultCacheSize,
	}
	switch c.EmbeddingProvider {
	case embedder.ProviderVoyage:
		cfg.APIKey = c.VoyageAPIKey
	case embedder.ProviderJina:
		cfg.APIKey = c.JinaAPIKey
	case embedder.ProviderLocal:
		cfg.Dimension = embedder.LocalDimension
	}
	return cfg
}

// Storage returns the vector store settings
func (c Config) Storage() storage.Config {
	return storage.Config{
		Backend:    c.VectorBackend,
		SQLitePath: c.SQLitePath,
		Qdrant: storage.QdrantConfig{
			Host:   c.QdrantHost,
			Port:   c.QdrantPort,
			APIKey: c.QdrantAPIKey,
			UseTLS: c.QdrantUseTLS,
		},
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
