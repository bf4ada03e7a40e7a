package types

// SearchHit is one ranked chunk returned to a caller of code search
type SearchHit struct {
	FilePath  string    `json:"file_path"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	ChunkType ChunkType `json:"chunk_type"`
	Name      string    `json:"name,omitempty"`
	Language  string    `json:"language"`
	Content   string    `json:"content"`
	Score     float32   `json:"score"`
	Rank      int       `json:"rank"` // Position in result set (1-based)
}

// HitFromPoint converts a scored point into a search hit at the given rank
func HitFromPoint(p ScoredPoint, rank int) SearchHit {
	return SearchHit{
		FilePath:  p.Payload.FilePath,
		StartLine: p.Payload.StartLine,
		EndLine:   p.Payload.EndLine,
		ChunkType: p.Payload.ChunkType,
		Name:      p.Payload.Name,
		Language:  p.Payload.Language,
		Content:   p.Payload.Content,
		Score:     p.Score,
		Rank:      rank,
	}
}

// Validate checks if the search hit is valid
func (h *SearchHit) Validate() error {
	if h.Rank < 1 {
		return ErrInvalidRank
	}

	if h.FilePath == "" {
		return ErrMissingFileInfo
	}

	if h.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
