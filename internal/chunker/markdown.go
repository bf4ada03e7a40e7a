package chunker

import (
	"regexp"
	"strings"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// MarkdownChunker splits documents into heading-delimited sections
type MarkdownChunker struct{}

// NewMarkdownChunker creates a new MarkdownChunker instance
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{}
}

// Chunk implements Chunker. Each section runs from its heading to the line
// before the next heading; text before the first heading forms an unnamed
// section. Sections with only blank lines are dropped.
func (m *MarkdownChunker) Chunk(content, filePath string) []types.Chunk {
	lines := splitLines(content)
	chunks := make([]types.Chunk, 0)

	start := 1
	name := ""

	flush := func(end int) {
		if end < start {
			return
		}
		section := lines.slice(start, end)
		if strings.TrimSpace(section) == "" {
			return
		}
		chunks = append(chunks, types.Chunk{
			Content:   section,
			FilePath:  filePath,
			StartLine: start,
			EndLine:   end,
			ChunkType: types.ChunkSection,
			Name:      name,
			Language:  "markdown",
		})
	}

	for i, line := range lines {
		lineNum := i + 1
		match := headingPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		flush(lineNum - 1)
		start = lineNum
		name = strings.TrimSpace(match[2])
	}
	flush(lines.count())

	if len(chunks) == 0 && strings.TrimSpace(content) != "" {
		return WholeFile{Language: "markdown", ChunkType: types.ChunkDocument}.Chunk(content, filePath)
	}
	return chunks
}
