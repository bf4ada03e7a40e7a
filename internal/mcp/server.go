package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/indexer"
	"github.com/Natural-Heroes/review-agent/internal/searcher"
	"github.com/Natural-Heroes/review-agent/internal/tools"
	"github.com/Natural-Heroes/review-agent/internal/vectorindex"
)

const (
	// ServerName is the MCP server name
	ServerName = "review-agent"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultRef is indexed and read when a request names no ref
	DefaultRef = "HEAD"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	index    *vectorindex.Manager
	files    tools.FileReader
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance over already built components.
// The caller owns their lifetimes.
func NewServer(idx *indexer.Indexer, srch *searcher.Searcher, index *vectorindex.Manager, files tools.FileReader, logger *zap.Logger) (*Server, error) {
	if idx == nil || srch == nil || index == nil || files == nil {
		return nil, errors.New("mcp server requires an indexer, searcher, index manager and file reader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
		),
		indexer:  idx,
		searcher: srch,
		index:    index,
		files:    files,
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", zap.String("version", ServerVersion))
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexRepositoryTool(), s.handleIndexRepository)
	s.mcp.AddTool(searchCodebaseTool(), s.handleSearchCodebase)
	s.mcp.AddTool(getFileContentTool(), s.handleGetFileContent)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
