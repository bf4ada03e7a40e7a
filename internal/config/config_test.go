package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natural-Heroes/review-agent/internal/embedder"
	"github.com/Natural-Heroes/review-agent/internal/storage"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(map[string]string{"SQLITE_PATH": "/tmp/index.db"})
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-20250514", cfg.AnthropicModel)
	assert.Equal(t, "voyage", cfg.EmbeddingProvider)
	assert.Equal(t, "sqlite", cfg.VectorBackend)
	assert.Equal(t, "localhost", cfg.QdrantHost)
	assert.Equal(t, 6334, cfg.QdrantPort)
	assert.Equal(t, 4, cfg.IndexWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.QdrantUseTLS)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(map[string]string{
		"EMBEDDING_PROVIDER": "Jina",
		"JINA_API_KEY":       "jina-key",
		"VECTOR_BACKEND":     "qdrant",
		"QDRANT_HOST":        "qdrant.internal",
		"QDRANT_PORT":        "6400",
		"QDRANT_USE_TLS":     "true",
		"INDEX_WORKERS":      "8",
		"LOG_LEVEL":          "debug",
		"GITHUB_API_URL":     "https://github.example.com/api/v3/",
		"ANTHROPIC_MODEL":    "",
		"UNRELATED":          "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "jina", cfg.EmbeddingProvider)
	assert.Equal(t, 6400, cfg.QdrantPort)
	assert.True(t, cfg.QdrantUseTLS)
	assert.Equal(t, 8, cfg.IndexWorkers)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Empty values fall back to defaults
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.AnthropicModel)

	emb := cfg.Embedder()
	assert.Equal(t, embedder.ProviderJina, emb.Provider)
	assert.Equal(t, "jina-key", emb.APIKey)

	st := cfg.Storage()
	assert.Equal(t, storage.BackendQdrant, st.Backend)
	assert.Equal(t, "qdrant.internal", st.Qdrant.Host)
	assert.True(t, st.Qdrant.UseTLS)
}

func TestFromEnvValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"EMBEDDING_PROVIDER": "openai"}},
		{"unknown backend", map[string]string{"VECTOR_BACKEND": "chroma"}},
		{"port out of range", map[string]string{"QDRANT_PORT": "70000"}},
		{"port not a number", map[string]string{"QDRANT_PORT": "grpc"}},
		{"zero workers", map[string]string{"INDEX_WORKERS": "0"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "trace"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"bad api url", map[string]string{"GITHUB_API_URL": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(tt.env)
			assert.Error(t, err)
		})
	}
}

func TestRequireChecks(t *testing.T) {
	cfg, err := FromEnv(nil)
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.RequireModel(), ErrMissingCredential)
	assert.ErrorIs(t, cfg.RequireGitHub(), ErrMissingCredential)
	assert.ErrorIs(t, cfg.RequireEmbedding(), ErrMissingCredential)

	cfg.AnthropicAPIKey = "sk-ant"
	cfg.GitHubToken = "ghp"
	cfg.VoyageAPIKey = "pa-key"
	assert.NoError(t, cfg.RequireModel())
	assert.NoError(t, cfg.RequireGitHub())
	assert.NoError(t, cfg.RequireEmbedding())

	cfg.EmbeddingProvider = embedder.ProviderLocal
	cfg.VoyageAPIKey = ""
	assert.NoError(t, cfg.RequireEmbedding())
	assert.Equal(t, embedder.LocalDimension, cfg.Embedder().Dimension)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".review-agent", "index.db"), expandHome("~/.review-agent/index.db"))
	assert.Equal(t, "/var/lib/index.db", expandHome("/var/lib/index.db"))
	assert.Equal(t, ":memory:", expandHome(":memory:"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("REVIEW_AGENT_TEST_WORKERS=1\nINDEX_WORKERS=12\n"), 0o600))

	t.Setenv("INDEX_WORKERS", "")
	require.NoError(t, os.Unsetenv("INDEX_WORKERS"))
	t.Cleanup(func() { _ = os.Unsetenv("REVIEW_AGENT_TEST_WORKERS") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.IndexWorkers)

	// A missing file is not an error
	_, err = Load(filepath.Join(dir, "absent.env"))
	assert.NoError(t, err)
}
