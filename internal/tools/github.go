package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/repository"
)

// ReviewWriter posts inline comments on a pull request
type ReviewWriter interface {
	CreateReviewComment(ctx context.Context, owner, repo string, number int, c repository.NewReviewComment) (*repository.ReviewComment, error)
}

// FileCommitter commits file content to a branch
type FileCommitter interface {
	CreateOrUpdateFile(ctx context.Context, owner, repo, path, content, message, branch string) (*repository.CommitInfo, error)
}

type commentArgs struct {
	FilePath string `json:"file_path" validate:"required" jsonschema_description:"Path to the file to comment on"`
	Line     int    `json:"line" validate:"min=1" jsonschema:"minimum=1" jsonschema_description:"Line number to comment on (in the new file version)"`
	Body     string `json:"body" validate:"required" jsonschema_description:"The comment body in markdown. Include severity level (🔴 Critical, 🟠 Warning, 🟡 Suggestion) at the start."`
	Side     string `json:"side,omitempty" default:"RIGHT" validate:"oneof=LEFT RIGHT" jsonschema:"enum=LEFT,enum=RIGHT,default=RIGHT" jsonschema_description:"Which side of the diff to comment on (LEFT=old, RIGHT=new). Default is RIGHT."`
}

type commitArgs struct {
	FilePath      string `json:"file_path" validate:"required" jsonschema_description:"Path to the file to modify"`
	NewContent    string `json:"new_content" jsonschema_description:"The complete new content of the file"`
	CommitMessage string `json:"commit_message" validate:"required" jsonschema_description:"Commit message describing the fix"`
}

func newCommentTool(s Session, reviews ReviewWriter) Tool {
	return newTool(PostReviewComment,
		"Post an inline review comment on a specific line in the pull request. Use this to report bugs, issues, or suggestions.",
		func(ctx context.Context, args *commentArgs) (any, error) {
			comment, err := reviews.CreateReviewComment(ctx, s.Owner, s.Repo, s.PRNumber, repository.NewReviewComment{
				Body:     args.Body,
				CommitID: s.HeadSHA,
				Path:     args.FilePath,
				Line:     args.Line,
				Side:     args.Side,
			})
			if err != nil {
				return nil, fmt.Errorf("post comment on %s:%d: %w", args.FilePath, args.Line, err)
			}
			return comment, nil
		})
}

// newCommitTool writes files to the pull request head branch.
// An empty new_content is allowed and truncates the file.
func newCommitTool(s Session, commits FileCommitter) Tool {
	return newTool(CommitFix,
		"Commit a fix to the pull request branch. Use this to apply code fixes.",
		func(ctx context.Context, args *commitArgs) (any, error) {
			info, err := commits.CreateOrUpdateFile(ctx, s.Owner, s.Repo, args.FilePath, args.NewContent, args.CommitMessage, s.Branch)
			if err != nil {
				return nil, fmt.Errorf("commit %s: %w", args.FilePath, err)
			}
			return info, nil
		})
}

// ReviewRepository is what the review task needs from the host repository
type ReviewRepository interface {
	FileReader
	ReviewWriter
}

// FixRepository is what the fix task needs from the host repository
type FixRepository interface {
	FileReader
	FileCommitter
}

// ReviewTools assembles search_codebase, get_file_content and post_review_comment
func ReviewTools(s Session, search CodeSearcher, repo ReviewRepository, logger *zap.Logger) *Registry {
	return NewRegistry(logger,
		newSearchTool(s, search),
		newFileTool(s, repo),
		newCommentTool(s, repo),
	)
}

// FixTools assembles search_codebase, get_file_content and commit_fix
func FixTools(s Session, search CodeSearcher, repo FixRepository, logger *zap.Logger) *Registry {
	return NewRegistry(logger,
		newSearchTool(s, search),
		newFileTool(s, repo),
		newCommitTool(s, repo),
	)
}
