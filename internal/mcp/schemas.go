package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func repositoryProperties() map[string]interface{} {
	return map[string]interface{}{
		"owner": map[string]interface{}{
			"type":        "string",
			"description": "Repository owner (user or organization)",
		},
		"repo": map[string]interface{}{
			"type":        "string",
			"description": "Repository name",
		},
	}
}

// indexRepositoryTool returns the tool definition for index_repository
func indexRepositoryTool() mcp.Tool {
	props := repositoryProperties()
	props["ref"] = map[string]interface{}{
		"type":        "string",
		"description": "Branch, tag or commit SHA to index",
		"default":     DefaultRef,
	}
	return mcp.Tool{
		Name:        "index_repository",
		Description: "Index every supported file of a GitHub repository for semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"owner", "repo"},
		},
	}
}

// searchCodebaseTool returns the tool definition for search_codebase
func searchCodebaseTool() mcp.Tool {
	props := repositoryProperties()
	props["query"] = map[string]interface{}{
		"type":        "string",
		"description": "Natural language query to search for relevant code",
	}
	props["limit"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of results to return (1-50)",
		"default":     5,
		"minimum":     1,
		"maximum":     50,
	}
	return mcp.Tool{
		Name:        "search_codebase",
		Description: "Search an indexed repository for relevant code using semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"owner", "repo", "query"},
		},
	}
}

// getFileContentTool returns the tool definition for get_file_content
func getFileContentTool() mcp.Tool {
	props := repositoryProperties()
	props["file_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Path to the file in the repository",
	}
	props["ref"] = map[string]interface{}{
		"type":        "string",
		"description": "Branch, tag or commit SHA to read from",
		"default":     DefaultRef,
	}
	return mcp.Tool{
		Name:        "get_file_content",
		Description: "Get the full content of a file from a GitHub repository",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   []string{"owner", "repo", "file_path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report whether a repository is indexed and how its collection is configured",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: repositoryProperties(),
			Required:   []string{"owner", "repo"},
		},
	}
}
