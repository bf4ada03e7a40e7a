package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// SQLiteStorage implements the Store interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ Store = (*SQLiteStorage)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, driverDSN(dbPath))
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Collection operations

func (s *SQLiteStorage) getCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	query := `SELECT name, dimension, distance, created_at FROM collections WHERE name = ?`
	c := &Collection{}
	err := q.QueryRowContext(ctx, query, name).Scan(&c.Name, &c.Dimension, &c.Distance, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return c, nil
}

// GetCollection returns the named collection or ErrNotFound.
func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.db, name)
}

// CreateCollection creates a collection. Only the cosine metric is supported.
func (s *SQLiteStorage) CreateCollection(ctx context.Context, c Collection) error {
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", c.Dimension)
	}
	if c.Distance == "" {
		c.Distance = DistanceCosine
	}
	if c.Distance != DistanceCosine {
		return fmt.Errorf("unsupported distance %q", c.Distance)
	}

	query := `
		INSERT INTO collections (name, dimension, distance, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, c.Name, c.Dimension, c.Distance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Point operations

// Upsert inserts or replaces points by id inside a single transaction.
func (s *SQLiteStorage) Upsert(ctx context.Context, collection string, points []types.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := s.getCollectionWithQuerier(ctx, tx, collection)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, file_path, vector, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			file_path = excluded.file_path,
			vector = excluded.vector,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, p := range points {
		if len(p.Vector) != c.Dimension {
			return fmt.Errorf("%w: point %d has %d, collection %s expects %d",
				ErrDimensionMismatch, p.ID, len(p.Vector), collection, c.Dimension)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload of point %d: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, int64(p.ID), p.Payload.FilePath,
			serializeVector(p.Vector), string(payload), now); err != nil {
			return fmt.Errorf("failed to upsert point %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteByFile removes every point of the collection whose payload file_path matches.
func (s *SQLiteStorage) DeleteByFile(ctx context.Context, collection, filePath string) error {
	if _, err := s.GetCollection(ctx, collection); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM points WHERE collection = ? AND file_path = ?`, collection, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete points for %s: %w", filePath, err)
	}
	return nil
}

// Search returns up to limit points ordered by descending cosine similarity.
func (s *SQLiteStorage) Search(ctx context.Context, collection string, vector []float32, limit int) ([]types.ScoredPoint, error) {
	c, err := s.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != c.Dimension {
		return nil, fmt.Errorf("%w: query has %d, collection %s expects %d",
			ErrDimensionMismatch, len(vector), collection, c.Dimension)
	}
	return searchPoints(ctx, s.db, collection, vector, limit)
}

// Count returns the number of points stored in the collection.
func (s *SQLiteStorage) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return n, nil
}

// isMemoryPath reports whether path refers to an in-memory database.
func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// withQuery appends a DSN query parameter to path
func withQuery(path, param string) string {
	if strings.Contains(path, "?") {
		return path + "&" + param
	}
	return path + "?" + param
}
