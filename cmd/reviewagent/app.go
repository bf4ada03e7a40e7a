package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/chunker"
	"github.com/Natural-Heroes/review-agent/internal/config"
	"github.com/Natural-Heroes/review-agent/internal/embedder"
	"github.com/Natural-Heroes/review-agent/internal/indexer"
	"github.com/Natural-Heroes/review-agent/internal/llm"
	"github.com/Natural-Heroes/review-agent/internal/logging"
	"github.com/Natural-Heroes/review-agent/internal/repository"
	"github.com/Natural-Heroes/review-agent/internal/searcher"
	"github.com/Natural-Heroes/review-agent/internal/storage"
	"github.com/Natural-Heroes/review-agent/internal/vectorindex"
)

// app holds process-wide settings shared by every command
type app struct {
	envFile   string
	logLevel  string
	logFormat string
	timeout   time.Duration

	cfg    config.Config
	logger *zap.Logger
}

// setup loads configuration and builds the logger. Flags override the
// environment for logging settings.
func (a *app) setup() error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// stack is the set of components a command works with
type stack struct {
	store    storage.Store
	embedder *embedder.Client
	index    *vectorindex.Manager
	github   *repository.GitHubProvider
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
}

func (s *stack) Close() {
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// buildStack wires storage, embeddings, GitHub, indexing and search
func (a *app) buildStack() (*stack, error) {
	if err := a.cfg.RequireGitHub(); err != nil {
		return nil, err
	}
	if err := a.cfg.RequireEmbedding(); err != nil {
		return nil, err
	}

	s := &stack{}
	var err error

	s.store, err = storage.Open(a.cfg.Storage())
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	s.embedder, err = embedder.New(a.cfg.Embedder(), a.logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var ghOpts []repository.GitHubOption
	ghOpts = append(ghOpts, repository.WithLogger(a.logger))
	if a.cfg.GitHubAPIURL != "" {
		ghOpts = append(ghOpts, repository.WithBaseURL(a.cfg.GitHubAPIURL))
	}
	s.github, err = repository.NewGitHubProvider(a.cfg.GitHubToken, ghOpts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	s.index = vectorindex.NewManager(s.store, s.embedder.Dimension(), a.logger)
	s.indexer = indexer.New(chunker.New(), s.embedder, s.index, s.github,
		indexer.WithWorkers(a.cfg.IndexWorkers),
		indexer.WithLogger(a.logger))
	s.searcher = searcher.NewSearcher(s.embedder, s.index, a.logger)

	a.logger.Debug("components ready",
		zap.String("backend", a.cfg.VectorBackend),
		zap.String("embedding_provider", s.embedder.Provider()),
		zap.String("embedding_model", s.embedder.Model()),
		zap.Int("dimension", s.embedder.Dimension()))

	return s, nil
}

func (a *app) model() (llm.Model, error) {
	if err := a.cfg.RequireModel(); err != nil {
		return nil, err
	}
	return llm.NewAnthropicModel(a.cfg.AnthropicAPIKey, a.cfg.AnthropicModel, a.logger), nil
}
