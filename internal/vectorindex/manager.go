package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/twmb/murmur3"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/storage"
	"github.com/Natural-Heroes/review-agent/pkg/types"
)

var (
	// ErrCollectionNotFound signals that a repository has not been indexed yet
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDimensionMismatch is returned when an existing collection was created
	// with a different dimension than the configured embedder produces
	ErrDimensionMismatch = errors.New("collection dimension mismatch")
)

// Manager maps repositories onto collections of a Store
type Manager struct {
	store     storage.Store
	dimension int
	logger    *zap.Logger

	// ensured caches collection names already verified in this process
	ensured sync.Map
}

// NewManager creates a Manager whose collections hold vectors of the given dimension
func NewManager(store storage.Store, dimension int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		dimension: dimension,
		logger:    logger,
	}
}

// Dimension returns the vector dimension of managed collections
func (m *Manager) Dimension() int {
	return m.dimension
}

// CollectionName returns the collection holding owner/repo.
// Names are lowercased and hyphens become underscores.
func CollectionName(owner, repo string) string {
	name := strings.ToLower(owner + "_" + repo)
	return strings.ReplaceAll(name, "-", "_")
}

// PointID derives the deterministic id of the chunk starting at startLine of
// filePath on ref. The 64-bit murmur3 hash is masked to 63 bits so it fits
// both unsigned and signed integer id spaces.
func PointID(filePath string, startLine int, ref string) uint64 {
	key := filePath + ":" + strconv.Itoa(startLine) + ":" + ref
	return murmur3.Sum64([]byte(key)) & math.MaxInt64
}

// NewPoints pairs chunks with their vectors. len(chunks) must equal len(vectors).
func NewPoints(chunks []types.Chunk, vectors [][]float32, owner, repo, ref string) ([]types.IndexPoint, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	points := make([]types.IndexPoint, len(chunks))
	for i, c := range chunks {
		points[i] = types.IndexPoint{
			ID:      PointID(c.FilePath, c.StartLine, ref),
			Vector:  vectors[i],
			Payload: types.NewPayload(c, owner, repo, ref),
		}
	}
	return points, nil
}

// EnsureCollection creates the repository's collection if it does not exist
// and returns its name. It is safe to call concurrently.
func (m *Manager) EnsureCollection(ctx context.Context, owner, repo string) (string, error) {
	name := CollectionName(owner, repo)
	if _, ok := m.ensured.Load(name); ok {
		return name, nil
	}

	c, err := m.store.GetCollection(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		err = m.store.CreateCollection(ctx, storage.Collection{
			Name:      name,
			Dimension: m.dimension,
			Distance:  storage.DistanceCosine,
		})
		switch {
		case err == nil:
			m.logger.Info("created collection",
				zap.String("collection", name),
				zap.Int("dimension", m.dimension))
			m.ensured.Store(name, struct{}{})
			return name, nil
		case errors.Is(err, storage.ErrAlreadyExists):
			// Lost a creation race; verify what the winner created
			c, err = m.store.GetCollection(ctx, name)
		default:
			return "", fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	if err != nil {
		return "", fmt.Errorf("get collection %s: %w", name, err)
	}

	if c.Dimension != m.dimension {
		return "", fmt.Errorf("%w: %s has %d, embedder produces %d",
			ErrDimensionMismatch, name, c.Dimension, m.dimension)
	}
	m.ensured.Store(name, struct{}{})
	return name, nil
}

// Upsert stores points, replacing any with the same id. Empty input is a no-op.
func (m *Manager) Upsert(ctx context.Context, collection string, points []types.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := m.store.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

// Search returns at most limit points by descending similarity.
// A missing collection yields ErrCollectionNotFound.
func (m *Manager) Search(ctx context.Context, collection string, vector []float32, limit int) ([]types.ScoredPoint, error) {
	points, err := m.store.Search(ctx, collection, vector, limit)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	return points, nil
}

// DeleteByFile removes every point of filePath from the collection.
// Deleting from a missing collection is a no-op.
func (m *Manager) DeleteByFile(ctx context.Context, collection, filePath string) error {
	err := m.store.DeleteByFile(ctx, collection, filePath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s from %s: %w", filePath, collection, err)
	}
	return nil
}

// Collection returns the stored description of owner/repo's collection,
// or ErrCollectionNotFound
func (m *Manager) Collection(ctx context.Context, owner, repo string) (*storage.Collection, error) {
	name := CollectionName(owner, repo)
	c, err := m.store.GetCollection(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}
	return c, nil
}
