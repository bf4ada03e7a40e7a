// Package storage persists index points and answers nearest-neighbor queries.
//
// A Store groups points into collections. Every collection has a dimension
// and the cosine metric fixed at creation time; the review agent creates one
// collection per repository.
//
// # Backends
//
//   - SQLiteStorage: embedded database with collections and points tables.
//     Vectors are little-endian float32 blobs and payloads are JSON. Schema
//     changes are applied in semver order by ApplyMigrations.
//   - QdrantStorage: a Qdrant server reached over gRPC. Payloads are stored
//     as Qdrant values and file_path carries a keyword index for deletes.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and ranks points in Go. Building
// with the sqlite_vec tag switches to github.com/mattn/go-sqlite3 and ranks
// with vec_distance_cosine inside SQLite:
//
//	CGO_ENABLED=1 go build -tags "sqlite_vec" ./...
//
// # Basic Usage
//
//	store, err := storage.Open(storage.Config{Backend: "sqlite", SQLitePath: path})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.CreateCollection(ctx, storage.Collection{Name: "acme_api", Dimension: 1024})
//	err = store.Upsert(ctx, "acme_api", points)
//	hits, err := store.Search(ctx, "acme_api", queryVector, 10)
//
// Upserting a point with an existing id replaces it. Search on a collection
// that does not exist returns ErrNotFound.
package storage
