package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/indexer"
	"github.com/Natural-Heroes/review-agent/internal/repository"
	"github.com/Natural-Heroes/review-agent/internal/searcher"
	"github.com/Natural-Heroes/review-agent/internal/vectorindex"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeFileNotFound       = -32001 // File does not exist at the requested ref
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Repository not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

const maxSearchLimit = 50

// handleIndexRepository handles the index_repository tool invocation
func (s *Server) handleIndexRepository(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	owner, repo, err := repositoryArgs(args)
	if err != nil {
		return nil, err
	}
	ref := getStringDefault(args, "ref", DefaultRef)

	stats, err := s.indexer.IndexRepository(ctx, owner, repo, ref)
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"repository": owner + "/" + repo,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Cached search responses may predate this run
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"indexed":        true,
		"repository":     owner + "/" + repo,
		"ref":            ref,
		"files_indexed":  stats.FilesIndexed,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"chunks_indexed": stats.ChunksIndexed,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCodebase handles the search_codebase tool invocation
func (s *Server) handleSearchCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	owner, repo, err := repositoryArgs(args)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > maxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 50", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Owner:    owner,
		Repo:     repo,
		Query:    query,
		Limit:    limit,
		UseCache: true,
	})
	if errors.Is(err, searcher.ErrNotIndexed) {
		return nil, newMCPError(ErrorCodeNotIndexed, "repository not indexed", map[string]interface{}{
			"repository": owner + "/" + repo,
			"hint":       "use the index_repository tool first",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"results":       resp.Results,
		"total_results": resp.TotalResults,
		"duration_ms":   resp.Duration.Milliseconds(),
		"cache_hit":     resp.CacheHit,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetFileContent handles the get_file_content tool invocation
func (s *Server) handleGetFileContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	owner, repo, err := repositoryArgs(args)
	if err != nil {
		return nil, err
	}

	path, ok := args["file_path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_path parameter is required", map[string]interface{}{
			"param":  "file_path",
			"reason": "missing or empty",
		})
	}
	ref := getStringDefault(args, "ref", DefaultRef)

	content, err := s.files.GetFileContent(ctx, owner, repo, path, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newMCPError(ErrorCodeFileNotFound, "file not found", map[string]interface{}{
			"file_path": path,
			"ref":       ref,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get file content", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(content), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	owner, repo, err := repositoryArgs(args)
	if err != nil {
		return nil, err
	}

	collection, err := s.index.Collection(ctx, owner, repo)
	if errors.Is(err, vectorindex.ErrCollectionNotFound) {
		response := map[string]interface{}{
			"indexed":    false,
			"repository": owner + "/" + repo,
			"message":    "Repository not indexed. Use index_repository tool to index it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get repository status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":    true,
		"repository": owner + "/" + repo,
		"collection": map[string]interface{}{
			"name":      collection.Name,
			"dimension": collection.Dimension,
			"distance":  collection.Distance,
		},
		"embedder_dimension": s.index.Dimension(),
	}
	if !collection.CreatedAt.IsZero() {
		response["created_at"] = collection.CreatedAt.Format(time.RFC3339)
	}

	s.logger.Debug("reported status", zap.String("collection", collection.Name))

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// repositoryArgs extracts and validates the owner and repo parameters
func repositoryArgs(args map[string]interface{}) (string, string, error) {
	owner, _ := args["owner"].(string)
	repo, _ := args["repo"].(string)

	for _, p := range []struct{ param, value string }{{"owner", owner}, {"repo", repo}} {
		if err := validateName(p.value); err != nil {
			return "", "", newMCPError(ErrorCodeInvalidParams, "invalid "+p.param, map[string]interface{}{
				"param":  p.param,
				"reason": err.Error(),
			})
		}
	}
	return owner, repo, nil
}

// validateName checks a GitHub owner or repository name
func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrNameRequired = errors.New("name is required")
	ErrInvalidName  = errors.New("name may only contain letters, digits, '.', '-' and '_'")
)
