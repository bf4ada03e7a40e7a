package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkValidate(t *testing.T) {
	valid := Chunk{
		Content:   "def foo():\n    return 1",
		FilePath:  "a.py",
		StartLine: 1,
		EndLine:   2,
		ChunkType: ChunkFunction,
		Name:      "foo",
		Language:  "python",
	}

	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr bool
	}{
		{"valid", func(c *Chunk) {}, false},
		{"blank content", func(c *Chunk) { c.Content = "  \n" }, true},
		{"zero start", func(c *Chunk) { c.StartLine = 0 }, true},
		{"inverted range", func(c *Chunk) { c.StartLine = 5 }, true},
		{"unknown type", func(c *Chunk) { c.ChunkType = "package" }, true},
		{"missing path", func(c *Chunk) { c.FilePath = "" }, true},
		{"missing language", func(c *Chunk) { c.Language = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, 2, valid.LineCount())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab", TruncateRunes("abc", 2))
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, "héé", TruncateRunes("hééllo", 3))
}

func TestNewPayloadTruncatesContent(t *testing.T) {
	c := Chunk{
		Content:   strings.Repeat("x", MaxPayloadContent+100),
		FilePath:  "big.ts",
		StartLine: 1,
		EndLine:   1,
		ChunkType: ChunkModule,
		Language:  "typescript",
	}

	p := NewPayload(c, "octo", "repo", "main")
	require.Len(t, p.Content, MaxPayloadContent)
	assert.Equal(t, "octo", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.Equal(t, "main", p.Ref)
	assert.Equal(t, ChunkModule, p.ChunkType)
}

func TestSymbolQualifiedName(t *testing.T) {
	m := Symbol{Name: "Do", Kind: KindMethod, Receiver: "Client"}
	f := Symbol{Name: "New", Kind: KindFunction}
	assert.Equal(t, "Client.Do", m.QualifiedName())
	assert.Equal(t, "New", f.QualifiedName())
	assert.Equal(t, ChunkMethod, m.ChunkType())
	assert.Equal(t, ChunkClass, (&Symbol{Kind: KindStruct}).ChunkType())
}
