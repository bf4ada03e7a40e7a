package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a file, pull request or comment does not exist
var ErrNotFound = errors.New("not found")

// Reactions accepted by AddReaction.
const (
	ReactionEyes   = "eyes"
	ReactionRocket = "rocket"
)

// Comment sides accepted by CreateReviewComment.
const (
	SideLeft  = "LEFT"
	SideRight = "RIGHT"
)

// ContentProvider reads repository content and writes pull request feedback
type ContentProvider interface {
	// GetFileContent returns the raw content of path at ref
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error)

	// ListTree returns every entry of the tree at ref, recursively
	ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error)

	// CreateOrUpdateFile commits content to path on branch, creating the file if absent
	CreateOrUpdateFile(ctx context.Context, owner, repo, path, content, message, branch string) (*CommitInfo, error)

	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)

	// GetPRDiff returns the unified diff of a pull request
	GetPRDiff(ctx context.Context, owner, repo string, number int) (string, error)

	GetReviewComment(ctx context.Context, owner, repo string, commentID int64) (*ReviewComment, error)
	CreateReviewComment(ctx context.Context, owner, repo string, number int, c NewReviewComment) (*ReviewComment, error)
	ReplyToReviewComment(ctx context.Context, owner, repo string, number int, commentID int64, body string) (*ReviewComment, error)

	// AddReaction reacts to a pull request review comment
	AddReaction(ctx context.Context, owner, repo string, commentID int64, reaction string) error
}

// TreeEntry is one path of a repository tree. Type is "blob" for files.
type TreeEntry struct {
	Path string
	Type string
}

// IsBlob reports whether the entry is a file
func (e TreeEntry) IsBlob() bool {
	return e.Type == "blob"
}

// CommitInfo identifies the commit created by a file write
type CommitInfo struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url,omitempty"`
}

// PullRequest holds the pull request fields the agent needs
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	HeadRef string
	HeadSHA string
	BaseRef string
}

// ReviewComment is an inline pull request review comment
type ReviewComment struct {
	ID       int64  `json:"id"`
	Body     string `json:"body"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	DiffHunk string `json:"diff_hunk,omitempty"`
	HTMLURL  string `json:"html_url,omitempty"`
}

// NewReviewComment describes an inline comment to create on a commit
type NewReviewComment struct {
	Body     string
	CommitID string
	Path     string
	Line     int
	Side     string
}
