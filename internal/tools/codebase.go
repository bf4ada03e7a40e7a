package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/Natural-Heroes/review-agent/internal/searcher"
	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// Tool names exposed to the model.
const (
	SearchCodebase    = "search_codebase"
	GetFileContent    = "get_file_content"
	PostReviewComment = "post_review_comment"
	CommitFix         = "commit_fix"
)

// CodeSearcher ranks indexed chunks of a repository against a query
type CodeSearcher interface {
	SearchCode(ctx context.Context, owner, repo, query string, limit int) ([]types.SearchHit, error)
}

// FileReader fetches file content at a ref
type FileReader interface {
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// Session identifies the pull request a task is working on
type Session struct {
	Owner    string
	Repo     string
	PRNumber int
	HeadSHA  string
	Branch   string
}

type searchArgs struct {
	Query string `json:"query" validate:"required" jsonschema_description:"Natural language query to search for relevant code (e.g. 'functions that handle user authentication', 'tests for the checkout flow')"`
	Limit int    `json:"limit,omitempty" default:"5" validate:"min=1,max=50" jsonschema:"default=5,minimum=1,maximum=50" jsonschema_description:"Maximum number of results to return (default: 5)"`
}

type fileArgs struct {
	FilePath string `json:"file_path" validate:"required" jsonschema_description:"Path to the file in the repository"`
}

// newSearchTool searches the session repository's index
func newSearchTool(s Session, search CodeSearcher) Tool {
	return newTool(SearchCodebase,
		"Search the codebase for relevant code using semantic search. Use this to find related functions, types, tests, or any code that might be relevant to the current review context.",
		func(ctx context.Context, args *searchArgs) (any, error) {
			hits, err := search.SearchCode(ctx, s.Owner, s.Repo, args.Query, args.Limit)
			if errors.Is(err, searcher.ErrNotIndexed) {
				return nil, fmt.Errorf("repository %s/%s is not indexed yet", s.Owner, s.Repo)
			}
			if err != nil {
				return nil, fmt.Errorf("search failed: %w", err)
			}
			if hits == nil {
				hits = []types.SearchHit{}
			}
			return hits, nil
		})
}

// newFileTool reads files at the session's head commit
func newFileTool(s Session, files FileReader) Tool {
	return newTool(GetFileContent,
		"Get the full content of a specific file from the repository. Use this when you need to see more context around a specific code location.",
		func(ctx context.Context, args *fileArgs) (any, error) {
			content, err := files.GetFileContent(ctx, s.Owner, s.Repo, args.FilePath, s.HeadSHA)
			if err != nil {
				return nil, fmt.Errorf("get %s: %w", args.FilePath, err)
			}
			return content, nil
		})
}
