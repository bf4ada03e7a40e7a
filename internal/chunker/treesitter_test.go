package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natural-Heroes/review-agent/pkg/types"
)

func chunkByName(t *testing.T, chunks []types.Chunk, name string) types.Chunk {
	t.Helper()
	for _, c := range chunks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no chunk named %q in %d chunks", name, len(chunks))
	return types.Chunk{}
}

const pythonSource = `import os


@dataclass
@frozen
class Config:
    name: str

    @property
    def upper(self):
        return self.name.upper()

    def lower(self):
        return self.name.lower()


def main():
    def helper():
        return 1
    return helper()


if __name__ == "__main__":
    main()
`

func TestTreeSitter_Python(t *testing.T) {
	chunks := New().Chunk(pythonSource, "pkg/config.py")

	require.Len(t, chunks, 4)

	class := chunkByName(t, chunks, "Config")
	assert.Equal(t, types.ChunkClass, class.ChunkType)
	assert.Equal(t, 4, class.StartLine, "class starts at its first decorator")
	assert.Equal(t, 14, class.EndLine)
	assert.Equal(t, "python", class.Language)

	upper := chunkByName(t, chunks, "Config.upper")
	assert.Equal(t, types.ChunkMethod, upper.ChunkType)
	assert.Equal(t, 9, upper.StartLine)
	assert.Equal(t, 11, upper.EndLine)

	lower := chunkByName(t, chunks, "Config.lower")
	assert.Equal(t, types.ChunkMethod, lower.ChunkType)
	assert.Equal(t, 13, lower.StartLine)

	main := chunkByName(t, chunks, "main")
	assert.Equal(t, types.ChunkFunction, main.ChunkType)
	assert.Equal(t, 17, main.StartLine)
	assert.Equal(t, 20, main.EndLine)

	for _, c := range chunks {
		assert.NotEqual(t, "helper", c.Name, "nested functions stay inside their parent")
	}
}

func TestTreeSitter_PythonSyntaxErrorFallsBack(t *testing.T) {
	content := "def broken(:\n    pass\n"
	chunks := New().Chunk(content, "src/broken.py")

	require.Len(t, chunks, 1)
	assert.Equal(t, types.ChunkModule, chunks[0].ChunkType)
	assert.Equal(t, "broken.py", chunks[0].Name)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, content, chunks[0].Content)
}

func TestTreeSitter_PythonNoDeclarations(t *testing.T) {
	chunks := New().Chunk("VALUE = 42\nprint(VALUE)\n", "settings.py")

	require.Len(t, chunks, 1)
	assert.Equal(t, types.ChunkModule, chunks[0].ChunkType)
	assert.Equal(t, "settings.py", chunks[0].Name)
}

const typescriptSource = "import { x } from \"y\";\n" +
	"\n" +
	"export interface User {\n" +
	"  id: string;\n" +
	"  name: string;\n" +
	"}\n" +
	"\n" +
	"@Component({ selector: \"app\" })\n" +
	"export class UserService {\n" +
	"  constructor(private readonly http: Http) {}\n" +
	"\n" +
	"  @Memo()\n" +
	"  async load(id: string): Promise<User> {\n" +
	"    return this.http.get(`/users/${id}`);\n" +
	"  }\n" +
	"}\n" +
	"\n" +
	"export const formatUser = (user: User): string => {\n" +
	"  return `${user.name} (${user.id})`;\n" +
	"};\n" +
	"\n" +
	"type Id = string;\n" +
	"\n" +
	"enum Color { Red, Green, Blue }\n"

func TestTreeSitter_TypeScript(t *testing.T) {
	chunks := New().Chunk(typescriptSource, "src/user.ts")

	iface := chunkByName(t, chunks, "User")
	assert.Equal(t, types.ChunkInterface, iface.ChunkType)
	assert.Equal(t, 3, iface.StartLine)
	assert.Equal(t, 6, iface.EndLine)
	assert.Equal(t, "typescript", iface.Language)

	class := chunkByName(t, chunks, "UserService")
	assert.Equal(t, types.ChunkClass, class.ChunkType)
	assert.Equal(t, 8, class.StartLine, "class starts at its decorator")
	assert.Equal(t, 16, class.EndLine)

	load := chunkByName(t, chunks, "UserService.load")
	assert.Equal(t, types.ChunkMethod, load.ChunkType)
	assert.Equal(t, 12, load.StartLine, "method starts at its decorator")
	assert.Equal(t, 15, load.EndLine)

	ctor := chunkByName(t, chunks, "UserService.constructor")
	assert.Equal(t, types.ChunkMethod, ctor.ChunkType)

	format := chunkByName(t, chunks, "formatUser")
	assert.Equal(t, types.ChunkFunction, format.ChunkType)
	assert.Equal(t, 18, format.StartLine)
	assert.Equal(t, 20, format.EndLine)

	color := chunkByName(t, chunks, "Color")
	assert.Equal(t, types.ChunkEnum, color.ChunkType)

	for _, c := range chunks {
		assert.NotEqual(t, "Id", c.Name, "declarations of 20 characters or less are noise")
	}
}

func TestTreeSitter_JavaScriptAnonymousFunctionName(t *testing.T) {
	content := "function add(a, b) {\n  return a + b;\n}\n\nconst obj = {\n  handler: function () { return add(1, 2) + 40; },\n};\n"
	chunks := New().Chunk(content, "lib/math.js")

	add := chunkByName(t, chunks, "add")
	assert.Equal(t, types.ChunkFunction, add.ChunkType)
	assert.Equal(t, 1, add.StartLine)
	assert.Equal(t, 3, add.EndLine)
	assert.Equal(t, "javascript", add.Language)

	handler := chunkByName(t, chunks, "handler")
	assert.Equal(t, 6, handler.StartLine)
}

func TestTreeSitter_LanguageTags(t *testing.T) {
	r := New()

	tests := map[string]string{
		"a.ts":  "typescript",
		"a.tsx": "tsx",
		"a.js":  "javascript",
		"a.jsx": "jsx",
	}

	for path, want := range tests {
		chunks := r.Chunk("export function longEnoughName() { return 12345; }\n", path)
		require.NotEmpty(t, chunks, path)
		assert.Equal(t, want, chunks[0].Language, path)
	}
}

func TestTreeSitter_MinimumContentIsNodeText(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		content   string
		wantNames []string
		wantType  types.ChunkType
	}{
		{
			name:      "short callback on a long line",
			path:      "a.js",
			content:   "function process(items) {\n  const ids = items.map(x => x.id);\n  return ids;\n}\n",
			wantNames: []string{"process"},
			wantType:  types.ChunkFunction,
		},
		{
			name:      "short callback inside a one-line arrow",
			path:      "b.ts",
			content:   "const double = (xs) => xs.map(x => x * 2);\n",
			wantNames: []string{"double"},
			wantType:  types.ChunkFunction,
		},
		{
			name:      "only short declarations",
			path:      "c.js",
			content:   "function f() {}\n",
			wantNames: []string{"c.js"},
			wantType:  types.ChunkModule,
		},
		{
			name:      "export wrapper counts toward the minimum",
			path:      "d.ts",
			content:   "export function go() {}\n",
			wantNames: []string{"go"},
			wantType:  types.ChunkFunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := New().Chunk(tt.content, tt.path)

			names := make([]string, 0, len(chunks))
			keys := make(map[string]bool, len(chunks))
			for _, c := range chunks {
				names = append(names, c.Name)
				assert.False(t, keys[c.Key()], "duplicate key %s", c.Key())
				keys[c.Key()] = true
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, tt.wantType, chunks[0].ChunkType)
		})
	}
}

func TestTreeSitter_NestedChunksMayShareStartLine(t *testing.T) {
	content := "const run = (items) => items.forEach(function visit(item) { console.log(item.id); });\n"
	chunks := New().Chunk(content, "run.js")

	require.Len(t, chunks, 2)
	assert.Equal(t, "run", chunks[0].Name)
	assert.Equal(t, "visit", chunks[1].Name)
	assert.Equal(t, chunks[0].Key(), chunks[1].Key())
}
