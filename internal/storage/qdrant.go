package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// Payload keys shared with the SQLite backend's JSON payload.
const (
	keyFilePath  = "file_path"
	keyStartLine = "start_line"
	keyEndLine   = "end_line"
	keyChunkType = "chunk_type"
	keyName      = "name"
	keyLanguage  = "language"
	keyContent   = "content"
	keyRef       = "ref"
	keyOwner     = "owner"
	keyRepo      = "repo"
)

// QdrantConfig holds connection settings for a Qdrant server's gRPC port.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStorage implements the Store interface on a Qdrant server.
type QdrantStorage struct {
	client *qdrant.Client
}

var _ Store = (*QdrantStorage)(nil)

// NewQdrantStorage connects to Qdrant. The gRPC connection is established lazily.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantStorage{client: client}, nil
}

// Close closes the gRPC connection
func (s *QdrantStorage) Close() error {
	return s.client.Close()
}

// GetCollection returns the named collection or ErrNotFound.
func (s *QdrantStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	return &Collection{
		Name:      name,
		Dimension: int(params.GetSize()),
		Distance:  strings.ToLower(params.GetDistance().String()),
	}, nil
}

// CreateCollection creates a cosine collection plus a keyword index on file_path.
func (s *QdrantStorage) CreateCollection(ctx context.Context, c Collection) error {
	if c.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", c.Dimension)
	}
	if c.Distance != "" && c.Distance != DistanceCosine {
		return fmt.Errorf("unsupported distance %q", c.Distance)
	}

	exists, err := s.client.CollectionExists(ctx, c.Name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", c.Name, err)
	}
	if exists {
		return ErrAlreadyExists
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(c.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.Name, err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: c.Name,
		FieldName:      keyFilePath,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to index file_path on %s: %w", c.Name, err)
	}
	return nil
}

// Upsert writes points and waits for the operation to be applied.
func (s *QdrantStorage) Upsert(ctx context.Context, collection string, points []types.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadToMap(p.Payload)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// DeleteByFile removes every point whose payload file_path equals filePath.
func (s *QdrantStorage) DeleteByFile(ctx context.Context, collection, filePath string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(keyFilePath, filePath)},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for %s: %w", filePath, err)
	}
	return nil
}

// Search returns up to limit nearest points with their payloads.
func (s *QdrantStorage) Search(ctx context.Context, collection string, vector []float32, limit int) ([]types.ScoredPoint, error) {
	if limit <= 0 {
		return []types.ScoredPoint{}, nil
	}
	if _, err := s.GetCollection(ctx, collection); err != nil {
		return nil, err
	}

	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	results := make([]types.ScoredPoint, 0, len(hits))
	for _, h := range hits {
		results = append(results, types.ScoredPoint{
			ID:      h.GetId().GetNum(),
			Score:   h.GetScore(),
			Payload: payloadFromValues(h.GetPayload()),
		})
	}
	return results, nil
}

func payloadToMap(p types.Payload) map[string]any {
	return map[string]any{
		keyFilePath:  p.FilePath,
		keyStartLine: int64(p.StartLine),
		keyEndLine:   int64(p.EndLine),
		keyChunkType: string(p.ChunkType),
		keyName:      p.Name,
		keyLanguage:  p.Language,
		keyContent:   p.Content,
		keyRef:       p.Ref,
		keyOwner:     p.Owner,
		keyRepo:      p.Repo,
	}
}

func payloadFromValues(values map[string]*qdrant.Value) types.Payload {
	str := func(key string) string { return values[key].GetStringValue() }
	num := func(key string) int { return int(values[key].GetIntegerValue()) }
	return types.Payload{
		FilePath:  str(keyFilePath),
		StartLine: num(keyStartLine),
		EndLine:   num(keyEndLine),
		ChunkType: types.ChunkType(str(keyChunkType)),
		Name:      str(keyName),
		Language:  str(keyLanguage),
		Content:   str(keyContent),
		Ref:       str(keyRef),
		Owner:     str(keyOwner),
		Repo:      str(keyRepo),
	}
}
