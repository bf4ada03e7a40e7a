package types

import "unicode/utf8"

// MaxPayloadContent bounds the chunk content stored alongside a vector.
// Search results never carry more than this many characters of content.
const MaxPayloadContent = 5000

// Payload is the metadata persisted with every point
type Payload struct {
	FilePath  string    `json:"file_path"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	ChunkType ChunkType `json:"chunk_type"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	Ref       string    `json:"ref"`
	Owner     string    `json:"owner"`
	Repo      string    `json:"repo"`
}

// IndexPoint is a chunk plus its embedding, as stored in a collection
type IndexPoint struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a point returned by a nearest-neighbor search
type ScoredPoint struct {
	ID      uint64
	Score   float32
	Payload Payload
}

// NewPayload builds the stored payload for a chunk, truncating its content
func NewPayload(c Chunk, owner, repo, ref string) Payload {
	return Payload{
		FilePath:  c.FilePath,
		StartLine: c.StartLine,
		EndLine:   c.EndLine,
		ChunkType: c.ChunkType,
		Name:      c.Name,
		Language:  c.Language,
		Content:   TruncateRunes(c.Content, MaxPayloadContent),
		Ref:       ref,
		Owner:     owner,
		Repo:      repo,
	}
}

// TruncateRunes returns at most n characters of s without splitting a rune
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
