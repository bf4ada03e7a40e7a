package chunker

import (
	"strings"

	"github.com/Natural-Heroes/review-agent/internal/parser"
	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// GoChunker creates chunks from Go source using the go/ast based parser
type GoChunker struct {
	parser *parser.Parser
}

// NewGoChunker creates a new GoChunker instance
func NewGoChunker() *GoChunker {
	return &GoChunker{parser: parser.New()}
}

// Chunk implements Chunker. Files with syntax errors become one module chunk.
func (c *GoChunker) Chunk(content, filePath string) []types.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	fallback := WholeFile{Language: "go", ChunkType: types.ChunkModule}.Chunk(content, filePath)

	result := c.parser.ParseSource(filePath, []byte(content))
	if result.HasErrors() {
		return fallback
	}

	lines := splitLines(content)
	chunks := make([]types.Chunk, 0, len(result.Symbols))

	for i := range result.Symbols {
		chunk, ok := createChunkForSymbol(&result.Symbols[i], lines, filePath)
		if ok {
			chunks = append(chunks, chunk)
		}
	}

	if len(chunks) == 0 {
		return fallback
	}
	return chunks
}

// createChunkForSymbol creates a chunk for a specific symbol
func createChunkForSymbol(sym *types.Symbol, lines sourceLines, filePath string) (types.Chunk, bool) {
	if sym.Validate() != nil || sym.End.Line > lines.count() {
		return types.Chunk{}, false
	}

	content := lines.slice(sym.Start.Line, sym.End.Line)
	if strings.TrimSpace(content) == "" {
		return types.Chunk{}, false
	}

	return types.Chunk{
		Content:   content,
		FilePath:  filePath,
		StartLine: sym.Start.Line,
		EndLine:   sym.End.Line,
		ChunkType: sym.ChunkType(),
		Name:      sym.QualifiedName(),
		Language:  "go",
	}, true
}
