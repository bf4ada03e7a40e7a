package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Supported vector backends.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Config selects and configures a Store backend.
type Config struct {
	Backend    string
	SQLitePath string
	Qdrant     QdrantConfig
}

// Open returns the Store selected by cfg.Backend. An empty backend means sqlite.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		if !isMemoryPath(cfg.SQLitePath) {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return NewSQLiteStorage(cfg.SQLitePath)
	case BackendQdrant:
		return NewQdrantStorage(cfg.Qdrant)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
