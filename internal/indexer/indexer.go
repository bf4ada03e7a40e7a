package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Natural-Heroes/review-agent/internal/chunker"
	"github.com/Natural-Heroes/review-agent/internal/embedder"
	"github.com/Natural-Heroes/review-agent/internal/repository"
	"github.com/Natural-Heroes/review-agent/internal/vectorindex"
	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// DefaultWorkers bounds concurrent file indexing
const DefaultWorkers = 4

// ErrIndexingInProgress is returned when a full index of the same repository is already running
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Source lists and reads repository files
type Source interface {
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
	ListTree(ctx context.Context, owner, repo, ref string) ([]repository.TreeEntry, error)
}

// Indexer coordinates the indexing pipeline: chunk -> embed -> upsert
type Indexer struct {
	registry *chunker.Registry
	embedder *embedder.Client
	index    *vectorindex.Manager
	source   Source
	logger   *zap.Logger

	// Worker pool configuration
	workers int

	files keyedMutex
	runs  sync.Map // collection -> *IndexLock
}

// Option configures an Indexer
type Option func(*Indexer)

// WithWorkers sets the number of files indexed concurrently
func WithWorkers(n int) Option {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// WithLogger sets the indexer logger
func WithLogger(logger *zap.Logger) Option {
	return func(idx *Indexer) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesIndexed  int           `json:"files_indexed"`
	FilesSkipped  int           `json:"files_skipped"`
	FilesFailed   int           `json:"files_failed"`
	FilesRemoved  int           `json:"files_removed,omitempty"`
	ChunksIndexed int           `json:"chunks_indexed"`
	Duration      time.Duration `json:"duration_ns"`
	ErrorMessages []string      `json:"errors,omitempty"`
}

// New creates a new Indexer instance
func New(registry *chunker.Registry, emb *embedder.Client, index *vectorindex.Manager, source Source, opts ...Option) *Indexer {
	idx := &Indexer{
		registry: registry,
		embedder: emb,
		index:    index,
		source:   source,
		logger:   zap.NewNop(),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexFile chunks, embeds and upserts one file and returns the number of
// points written. Unsupported extensions and files without chunks return 0.
// Points of a previous pass at the same start lines are overwritten.
func (idx *Indexer) IndexFile(ctx context.Context, owner, repo, filePath, content, ref string) (int, error) {
	return idx.indexFile(ctx, owner, repo, filePath, content, ref, false)
}

// indexFile does the per-file work. With purge set, the file's existing
// points are removed before the new ones are written.
func (idx *Indexer) indexFile(ctx context.Context, owner, repo, filePath, content, ref string, purge bool) (int, error) {
	if !idx.registry.Supports(filePath) {
		return 0, nil
	}

	chunks := outermost(idx.registry.Chunk(content, filePath))
	if len(chunks) == 0 && !purge {
		return 0, nil
	}

	collection, err := idx.index.EnsureCollection(ctx, owner, repo)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", filePath, err)
	}

	points, err := vectorindex.NewPoints(chunks, vectors, owner, repo, ref)
	if err != nil {
		return 0, err
	}

	unlock := idx.files.Lock(collection + "\x00" + filePath)
	defer unlock()

	if purge {
		if err := idx.index.DeleteByFile(ctx, collection, filePath); err != nil {
			return 0, err
		}
	}
	if err := idx.index.Upsert(ctx, collection, points); err != nil {
		return 0, err
	}

	strategy, _ := idx.registry.StrategyFor(filePath)
	idx.logger.Debug("indexed file",
		zap.String("collection", collection),
		zap.String("file", filePath),
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", len(points)))
	return len(points), nil
}

// outermost keeps one chunk per start line, the one spanning the most lines
// (the first on a tie). Chunks sharing a start line share a point id.
func outermost(chunks []types.Chunk) []types.Chunk {
	kept := make([]types.Chunk, 0, len(chunks))
	at := make(map[string]int, len(chunks))
	for _, c := range chunks {
		key := c.Key()
		if i, ok := at[key]; ok {
			if c.LineCount() > kept[i].LineCount() {
				kept[i] = c
			}
			continue
		}
		at[key] = len(kept)
		kept = append(kept, c)
	}
	return kept
}

// DeleteFile removes every point of filePath from the repository's collection
func (idx *Indexer) DeleteFile(ctx context.Context, owner, repo, filePath string) error {
	collection := vectorindex.CollectionName(owner, repo)
	unlock := idx.files.Lock(collection + "\x00" + filePath)
	defer unlock()
	return idx.index.DeleteByFile(ctx, collection, filePath)
}

// IndexRepository indexes every supported file of the tree at ref.
// Per-file failures are logged and counted and never abort the run.
func (idx *Indexer) IndexRepository(ctx context.Context, owner, repo, ref string) (*Statistics, error) {
	startTime := time.Now()

	collection := vectorindex.CollectionName(owner, repo)
	lock := idx.runLock(collection)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("%w: %s", ErrIndexingInProgress, collection)
	}
	defer lock.Release()

	if _, err := idx.index.EnsureCollection(ctx, owner, repo); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	entries, err := idx.source.ListTree(ctx, owner, repo, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to list tree: %w", err)
	}

	var files []string
	skipped := 0
	for _, e := range entries {
		if !e.IsBlob() {
			continue
		}
		if !idx.registry.Supports(e.Path) {
			skipped++
			continue
		}
		files = append(files, e.Path)
	}

	idx.logger.Info("indexing repository",
		zap.String("owner", owner),
		zap.String("repo", repo),
		zap.String("ref", ref),
		zap.Int("files", len(files)))

	stats := idx.indexFiles(ctx, owner, repo, ref, files, false)
	stats.FilesSkipped += skipped
	stats.Duration = time.Since(startTime)

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	idx.logger.Info("indexed repository",
		zap.String("collection", collection),
		zap.Int("files_indexed", stats.FilesIndexed),
		zap.Int("files_failed", stats.FilesFailed),
		zap.Int("chunks", stats.ChunksIndexed),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// ApplyPush applies an incremental change set at ref: removed paths are
// deleted, upserted paths are purged and re-indexed. The tree is not listed.
func (idx *Indexer) ApplyPush(ctx context.Context, owner, repo, ref string, changes Changes) (*Statistics, error) {
	startTime := time.Now()
	stats := &Statistics{}

	for _, p := range changes.Removed {
		if err := idx.DeleteFile(ctx, owner, repo, p); err != nil {
			idx.logger.Warn("failed to delete file from index",
				zap.String("file", p), zap.Error(err))
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		stats.FilesRemoved++
	}

	var files []string
	for _, p := range changes.Upserted {
		if !idx.registry.Supports(p) {
			stats.FilesSkipped++
			continue
		}
		files = append(files, p)
	}

	upserted := idx.indexFiles(ctx, owner, repo, ref, files, true)
	stats.FilesIndexed = upserted.FilesIndexed
	stats.FilesFailed += upserted.FilesFailed
	stats.ChunksIndexed = upserted.ChunksIndexed
	stats.ErrorMessages = append(stats.ErrorMessages, upserted.ErrorMessages...)
	stats.Duration = time.Since(startTime)

	return stats, ctx.Err()
}

// indexFiles fetches and indexes files with bounded parallelism
func (idx *Indexer) indexFiles(ctx context.Context, owner, repo, ref string, files []string, purge bool) *Statistics {
	var (
		indexed atomic.Int32
		failed  atomic.Int32
		chunks  atomic.Int32
		mu      sync.Mutex // Protect stats.ErrorMessages
	)
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	recordFailure := func(filePath string, err error) {
		failed.Add(1)
		idx.logger.Warn("failed to index file",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.String("file", filePath),
			zap.Error(err))
		mu.Lock()
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", filePath, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for _, filePath := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			content, err := idx.source.GetFileContent(gctx, owner, repo, filePath, ref)
			if err != nil {
				recordFailure(filePath, err)
				return nil
			}
			n, err := idx.indexFile(gctx, owner, repo, filePath, content, ref, purge)
			if err != nil {
				recordFailure(filePath, err)
				return nil
			}
			indexed.Add(1)
			chunks.Add(int32(n))
			return nil
		})
	}
	_ = g.Wait()

	stats.FilesIndexed = int(indexed.Load())
	stats.FilesFailed = int(failed.Load())
	stats.ChunksIndexed = int(chunks.Load())
	return stats
}

func (idx *Indexer) runLock(collection string) *IndexLock {
	l, _ := idx.runs.LoadOrStore(collection, &IndexLock{})
	return l.(*IndexLock)
}
