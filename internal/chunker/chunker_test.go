package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

var propertyFixtures = map[string]string{
	"pkg/app.py": "import os\n\n\nclass App:\n    def run(self):\n        return os.getcwd()\n",
	"web/index.ts": "export function render(target: HTMLElement): void {\n  target.innerHTML = \"<p>hello</p>\";\n}\n",
	"web/view.tsx": "export const View = () => {\n  return <div className=\"view\">hello world</div>;\n};\n",
	"lib/util.js": "function sum(values) {\n  return values.reduce((a, b) => a + b, 0);\n}\n",
	"lib/comp.jsx": "export default function Button() {\n  return <button>click me please</button>;\n}\n",
	"cmd/main.go": "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n",
	"README.md": "# Title\n\nSome text.\n\n## Usage\n\nRun it.\n",
	"scripts/tiny.js": "x = 1\n",
	"broken.py": "def broken(:\n    pass\n",
}

func TestRegistry_ChunksReconstructFromLines(t *testing.T) {
	r := New()

	for path, content := range propertyFixtures {
		t.Run(path, func(t *testing.T) {
			chunks := r.Chunk(content, path)
			require.NotEmpty(t, chunks, "non-blank supported file must produce chunks")

			lines := splitLines(content)
			for _, c := range chunks {
				assert.LessOrEqual(t, c.StartLine, c.EndLine)
				assert.Equal(t, lines.slice(c.StartLine, c.EndLine), c.Content)
				assert.Equal(t, path, c.FilePath)
				assert.NoError(t, c.Validate())
			}
		})
	}
}

func TestRegistry_Idempotent(t *testing.T) {
	r := New()

	for path, content := range propertyFixtures {
		first := r.Chunk(content, path)
		second := r.Chunk(content, path)

		require.Len(t, second, len(first), path)
		for i := range first {
			assert.Equal(t, first[i].Key(), second[i].Key(), path)
		}
	}
}

func TestRegistry_Unsupported(t *testing.T) {
	r := New()

	for _, path := range []string{"main.rs", "Makefile", "image.png", "notes.txt"} {
		_, ok := r.ForPath(path)
		assert.False(t, ok, path)
		assert.Empty(t, r.Chunk("fn main() {}\n", path))
	}
}

func TestRegistry_Strategies(t *testing.T) {
	r := New()

	tests := []struct {
		path string
		want Strategy
	}{
		{"a.py", StrategySyntaxTree},
		{"a.ts", StrategySyntaxTree},
		{"a.TSX", StrategySyntaxTree},
		{"a.go", StrategySyntaxTree},
		{"docs/a.md", StrategyHeadings},
	}

	for _, tt := range tests {
		got, ok := r.StrategyFor(tt.path)
		require.True(t, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
		assert.True(t, r.Supports(tt.path))
	}
}

func TestRegistry_BlankContent(t *testing.T) {
	r := New()

	for path := range propertyFixtures {
		assert.Empty(t, r.Chunk("  \n\n", path), path)
	}
}

func TestWholeFile(t *testing.T) {
	chunks := WholeFile{Language: "python", ChunkType: types.ChunkModule}.Chunk("a = 1\nb = 2\n", "src/pkg/mod.py")

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, "mod.py", chunks[0].Name)
	assert.Equal(t, types.ChunkModule, chunks[0].ChunkType)
}
