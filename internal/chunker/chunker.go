package chunker

import (
	"path"
	"strings"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// Chunker turns file content into semantic chunks. Implementations are pure:
// no I/O beyond the content they are given, and deterministic output.
// Chunk never fails; malformed input degrades to a whole-file chunk.
type Chunker interface {
	Chunk(content, filePath string) []types.Chunk
}

// Strategy names one of the closed set of chunking strategies
type Strategy string

const (
	StrategySyntaxTree Strategy = "syntax_tree"
	StrategyHeadings   Strategy = "headings"
	StrategyWholeFile  Strategy = "whole_file"
)

// Registry maps file extensions onto chunkers
type Registry struct {
	byExt      map[string]Chunker
	strategies map[string]Strategy
}

// New creates the default registry:
//
//	.py                    tree-sitter (python)
//	.ts .tsx .js .jsx      tree-sitter (typescript, tsx, javascript, jsx)
//	.go                    go/parser
//	.md                    markdown headings
func New() *Registry {
	r := &Registry{
		byExt:      make(map[string]Chunker),
		strategies: make(map[string]Strategy),
	}

	r.register(".py", StrategySyntaxTree, newTreeSitterChunker(pythonGrammar()))
	r.register(".ts", StrategySyntaxTree, newTreeSitterChunker(typescriptGrammar()))
	r.register(".tsx", StrategySyntaxTree, newTreeSitterChunker(tsxGrammar()))
	r.register(".js", StrategySyntaxTree, newTreeSitterChunker(javascriptGrammar("javascript")))
	r.register(".jsx", StrategySyntaxTree, newTreeSitterChunker(javascriptGrammar("jsx")))
	r.register(".go", StrategySyntaxTree, NewGoChunker())
	r.register(".md", StrategyHeadings, NewMarkdownChunker())

	return r
}

func (r *Registry) register(ext string, s Strategy, c Chunker) {
	r.byExt[ext] = c
	r.strategies[ext] = s
}

// ForPath returns the chunker for filePath's extension. The second result is
// false for unsupported extensions.
func (r *Registry) ForPath(filePath string) (Chunker, bool) {
	c, ok := r.byExt[extension(filePath)]
	return c, ok
}

// Supports reports whether filePath has a registered extension
func (r *Registry) Supports(filePath string) bool {
	_, ok := r.byExt[extension(filePath)]
	return ok
}

// StrategyFor returns the strategy used for filePath, if any
func (r *Registry) StrategyFor(filePath string) (Strategy, bool) {
	s, ok := r.strategies[extension(filePath)]
	return s, ok
}

// Chunk selects a chunker by extension and runs it. Unsupported files yield
// no chunks.
func (r *Registry) Chunk(content, filePath string) []types.Chunk {
	c, ok := r.ForPath(filePath)
	if !ok {
		return nil
	}
	return c.Chunk(content, filePath)
}

func extension(filePath string) string {
	return strings.ToLower(path.Ext(filePath))
}

// WholeFile is the fallback chunker: non-blank content becomes one chunk
// spanning every line, named after the file.
type WholeFile struct {
	Language  string
	ChunkType types.ChunkType
}

// Chunk implements Chunker
func (w WholeFile) Chunk(content, filePath string) []types.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return []types.Chunk{wholeFileChunk(content, filePath, w.Language, w.ChunkType)}
}

func wholeFileChunk(content, filePath, language string, chunkType types.ChunkType) types.Chunk {
	return types.Chunk{
		Content:   content,
		FilePath:  filePath,
		StartLine: 1,
		EndLine:   strings.Count(content, "\n") + 1,
		ChunkType: chunkType,
		Name:      path.Base(filePath),
		Language:  language,
	}
}

// sourceLines holds content split on "\n" so that joining any 1-based range
// back together reproduces the original text of those lines.
type sourceLines []string

func splitLines(content string) sourceLines {
	return strings.Split(content, "\n")
}

// slice returns lines [start, end] (1-based, inclusive), clamped to the file
func (l sourceLines) slice(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(l) {
		end = len(l)
	}
	if start > end {
		return ""
	}
	return strings.Join(l[start-1:end], "\n")
}

func (l sourceLines) count() int {
	return len(l)
}
