package types

import (
	"errors"
	"fmt"
	"strings"
)

// ChunkType represents the kind of semantic unit a chunk covers
type ChunkType string

const (
	ChunkFunction  ChunkType = "function"
	ChunkMethod    ChunkType = "method"
	ChunkClass     ChunkType = "class"
	ChunkInterface ChunkType = "interface"
	ChunkTypeDecl  ChunkType = "type"
	ChunkEnum      ChunkType = "enum"
	ChunkVariable  ChunkType = "variable"
	ChunkExport    ChunkType = "export"
	ChunkModule    ChunkType = "module"
	ChunkSection   ChunkType = "section"
	ChunkDocument  ChunkType = "document"
)

// Valid reports whether t is one of the known chunk types
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkFunction, ChunkMethod, ChunkClass, ChunkInterface, ChunkTypeDecl, ChunkEnum,
		ChunkVariable, ChunkExport, ChunkModule, ChunkSection, ChunkDocument:
		return true
	default:
		return false
	}
}

// Chunk is a named, line-bounded semantic unit of a file. The line range is
// authoritative; Content is the rendering of lines [StartLine, EndLine].
type Chunk struct {
	Content   string
	FilePath  string
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive
	ChunkType ChunkType
	Name      string // Qualified where applicable, e.g. "Client.Do"; empty for unnamed sections
	Language  string
}

// Key identifies a chunk within its file. Re-extracting unchanged content
// yields the same keys.
func (c *Chunk) Key() string {
	return fmt.Sprintf("%s:%d", c.FilePath, c.StartLine)
}

// ValidateContent checks the line range and content
func (c *Chunk) ValidateContent() error {
	if strings.TrimSpace(c.Content) == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if !c.ChunkType.Valid() {
		return fmt.Errorf("invalid chunk type %q", c.ChunkType)
	}

	if c.FilePath == "" {
		return errors.New("file path is required")
	}

	if c.Language == "" {
		return errors.New("language is required")
	}

	return nil
}

// LineCount returns the number of source lines the chunk spans
func (c *Chunk) LineCount() int {
	return c.EndLine - c.StartLine + 1
}
