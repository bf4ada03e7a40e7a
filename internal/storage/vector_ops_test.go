package storage

import (
	"math"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

func TestSerializeVector(t *testing.T) {
	in := []float32{0, 1.5, -2.25, math.MaxFloat32}
	blob := SerializeVector(in)
	assert.Len(t, blob, 16)
	assert.Equal(t, in, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSortCandidates(t *testing.T) {
	c := []candidate{{id: 3, score: 0.5}, {id: 1, score: 0.9}, {id: 2, score: 0.5}}
	sortCandidates(c)
	assert.Equal(t, int64(1), c[0].id)
	assert.Equal(t, int64(2), c[1].id)
	assert.Equal(t, int64(3), c[2].id)
}

func TestQdrantPayloadConversion(t *testing.T) {
	p := types.Payload{
		FilePath:  "src/app.ts",
		StartLine: 4,
		EndLine:   19,
		ChunkType: types.ChunkClass,
		Name:      "App",
		Language:  "typescript",
		Content:   "class App {}",
		Ref:       "main",
		Owner:     "acme",
		Repo:      "web",
	}

	values := qdrant.NewValueMap(payloadToMap(p))
	require.Contains(t, values, keyFilePath)
	assert.Equal(t, p, payloadFromValues(values))
}

func TestQdrantPayloadMissingKeys(t *testing.T) {
	got := payloadFromValues(map[string]*qdrant.Value{})
	assert.Equal(t, types.Payload{}, got)
}
