package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

var (
	// ErrNotFound is returned when a requested collection doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate collection
	ErrAlreadyExists = errors.New("already exists")
	// ErrDimensionMismatch is returned when a vector does not match the collection dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// DistanceCosine is the only metric collections are created with.
const DistanceCosine = "cosine"

// Store defines the interface for persisting and querying index points.
// Each collection holds the points of exactly one repository.
type Store interface {
	// Collection operations
	GetCollection(ctx context.Context, name string) (*Collection, error)
	CreateCollection(ctx context.Context, c Collection) error

	// Point operations
	Upsert(ctx context.Context, collection string, points []types.IndexPoint) error
	DeleteByFile(ctx context.Context, collection, filePath string) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]types.ScoredPoint, error)

	Close() error
}

// Collection describes a named vector space with a fixed dimension and metric.
type Collection struct {
	Name      string
	Dimension int
	Distance  string
	CreatedAt time.Time
}
