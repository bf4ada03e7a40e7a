package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// searchPoints performs vector similarity search using cosine similarity
func searchPoints(ctx context.Context, db *sql.DB, collection string, queryVector []float32, limit int) ([]types.ScoredPoint, error) {
	if limit <= 0 {
		return []types.ScoredPoint{}, nil
	}
	// Use SQL-side ranking when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchPointsOptimized(ctx, db, collection, queryVector, limit)
	}
	return searchPointsFallback(ctx, db, collection, queryVector, limit)
}

// searchPointsOptimized uses the sqlite-vec extension to rank inside SQLite.
// vec_distance_cosine returns a distance, converted here to a similarity.
func searchPointsOptimized(ctx context.Context, db *sql.DB, collection string, queryVector []float32, limit int) ([]types.ScoredPoint, error) {
	query := `
		SELECT id, payload, 1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM points
		WHERE collection = ?
		ORDER BY similarity DESC, id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, serializeVector(queryVector), collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.ScoredPoint, 0, limit)
	for rows.Next() {
		var (
			id         int64
			rawPayload string
			similarity float64
		)
		if err := rows.Scan(&id, &rawPayload, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		point, err := decodePoint(id, rawPayload, similarity)
		if err != nil {
			return nil, err
		}
		results = append(results, point)
	}

	return results, rows.Err()
}

// searchPointsFallback scans the collection and ranks in Go.
// This is used when sqlite-vec extension is not available (purego builds)
func searchPointsFallback(ctx context.Context, db *sql.DB, collection string, queryVector []float32, limit int) ([]types.ScoredPoint, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, vector, payload FROM points WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, queryVector)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]types.ScoredPoint, 0, len(candidates))
	for _, c := range candidates {
		point, err := decodePoint(c.id, c.payload, c.score)
		if err != nil {
			return nil, err
		}
		results = append(results, point)
	}
	return results, nil
}

// computeSimilarityScores processes rows and computes cosine similarity
func computeSimilarityScores(rows *sql.Rows, queryVector []float32) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)

	for rows.Next() {
		var (
			id         int64
			vectorBlob []byte
			rawPayload string
		)
		if err := rows.Scan(&id, &vectorBlob, &rawPayload); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		candidates = append(candidates, candidate{
			id:      id,
			payload: rawPayload,
			score:   cosineSimilarity(queryVector, vector),
		})
	}

	return candidates, rows.Err()
}

func decodePoint(id int64, rawPayload string, score float64) (types.ScoredPoint, error) {
	var payload types.Payload
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		return types.ScoredPoint{}, fmt.Errorf("failed to decode payload of point %d: %w", id, err)
	}
	return types.ScoredPoint{
		ID:      uint64(id),
		Score:   float32(score),
		Payload: payload,
	}, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a point with its similarity score
type candidate struct {
	id      int64
	payload string
	score   float64
}

// sortCandidates sorts candidates by score in descending order, ties by id
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
}

// SerializeVector exports serializeVector for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector exports deserializeVector for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity exports cosineSimilarity for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
