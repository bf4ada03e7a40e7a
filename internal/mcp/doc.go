// Package mcp implements the Model Context Protocol (MCP) server for review-agent.
//
// The server exposes the code index to MCP clients such as editor assistants:
//   - index_repository: Index a GitHub repository at a ref
//   - search_codebase: Search an indexed repository with natural language
//   - get_file_content: Read one file at a ref
//   - get_status: Check whether a repository is indexed
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; logs go to stderr.
//
// # Basic Usage
//
//	reviewagent mcp
//
// # Tool: search_codebase
//
//	Request:
//	{
//	  "name": "search_codebase",
//	  "arguments": {
//	    "owner": "acme",
//	    "repo": "api",
//	    "query": "token refresh logic",
//	    "limit": 5
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "file_path": "auth/token.py",
//	      "start_line": 12,
//	      "end_line": 30,
//	      "chunk_type": "function",
//	      "name": "refresh_token",
//	      "language": "python",
//	      "content": "def refresh_token(session): ...",
//	      "score": 0.83,
//	      "rank": 1
//	    }
//	  ],
//	  "total_results": 1
//	}
//
// # Error Handling
//
// Handlers return *MCPError values, which the transport encodes as JSON-RPC
// errors:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (GitHub, embedding or vector store failure)
//   - -32001: File not found
//   - -32002: Indexing in progress
//   - -32003: Repository not indexed
//   - -32004: Empty query
package mcp
