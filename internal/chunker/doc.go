// Package chunker divides source files into semantic chunks for embedding
// and search.
//
// Chunks are created at natural boundaries (functions, classes, methods,
// type declarations, markdown sections) so that a search hit maps to a unit
// a reviewer can reason about. Every chunk carries a 1-based inclusive line
// range, and its Content is exactly those lines of the input.
//
// # Basic Usage
//
//	registry := chunker.New()
//	for _, chunk := range registry.Chunk(content, "src/server.ts") {
//	    fmt.Printf("%s %s lines %d-%d\n", chunk.ChunkType, chunk.Name, chunk.StartLine, chunk.EndLine)
//	}
//
// # Strategies
//
// The registry maps a closed set of extensions onto three strategies:
//
//   - Syntax tree: tree-sitter grammars for Python, TypeScript, TSX,
//     JavaScript and JSX, and go/ast for Go. Declarations start at their
//     earliest decorator (or doc comment for Go). A class yields a chunk for
//     itself plus one per method, named "Class.method".
//   - Headings: markdown is split at ATX headings (# through ######).
//   - Whole file: the fallback when parsing fails or finds nothing.
//
// Unsupported extensions produce no chunks. Chunking never returns an error.
package chunker
