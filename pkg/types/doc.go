// Package types provides shared type definitions for the review agent.
//
// # Core Types
//
// Chunk is the retrieval granularity: a named, line-bounded unit of a file
// (function, class, markdown section, ...). Its line range is authoritative:
//
//	chunk := types.Chunk{
//	    Content:   body,
//	    FilePath:  "src/app.py",
//	    StartLine: 10,
//	    EndLine:   24,
//	    ChunkType: types.ChunkMethod,
//	    Name:      "Server.handle",
//	    Language:  "python",
//	}
//
// IndexPoint is a chunk's embedding plus its Payload, as persisted in a
// per-repository collection. ScoredPoint is what a nearest-neighbor search
// returns, and SearchHit is the ranked form handed to tools and the CLI.
//
// Symbol and ParseResult describe declarations found by the Go parser before
// they are turned into chunks.
package types
