package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

// GitHubProvider implements ContentProvider against the GitHub REST API
type GitHubProvider struct {
	client *github.Client
	logger *zap.Logger
}

var _ ContentProvider = (*GitHubProvider)(nil)

type githubOptions struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// GitHubOption configures a GitHubProvider
type GitHubOption func(*githubOptions)

// WithBaseURL points the provider at a GitHub Enterprise or test API root
func WithBaseURL(u string) GitHubOption {
	return func(o *githubOptions) {
		o.baseURL = u
	}
}

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(o *githubOptions) {
		o.httpClient = c
	}
}

// WithLogger sets the provider logger
func WithLogger(l *zap.Logger) GitHubOption {
	return func(o *githubOptions) {
		o.logger = l
	}
}

// NewGitHubProvider creates a provider authenticated with token
func NewGitHubProvider(token string, opts ...GitHubOption) (*GitHubProvider, error) {
	o := &githubOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	client := github.NewClient(o.httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", o.baseURL, err)
		}
		client.BaseURL = u
	}

	return &GitHubProvider{client: client, logger: o.logger}, nil
}

// GetFileContent returns the raw content of path at ref. Files too large for
// the contents API are downloaded through their raw URL.
func (p *GitHubProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) (string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, dir, _, err := p.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return "", wrapError(err, "get contents of %s", path)
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory with %d entries", path, len(dir))
	}

	if file.GetEncoding() == "none" {
		rc, _, err := p.client.Repositories.DownloadContents(ctx, owner, repo, path, opts)
		if err != nil {
			return "", wrapError(err, "download %s", path)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return content, nil
}

// ListTree returns the recursive tree at ref
func (p *GitHubProvider) ListTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	tree, _, err := p.client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, wrapError(err, "get tree %s", ref)
	}
	if tree.GetTruncated() {
		p.logger.Warn("repository tree truncated by GitHub",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.String("ref", ref),
			zap.Int("entries", len(tree.Entries)))
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{Path: e.GetPath(), Type: e.GetType()})
	}
	return entries, nil
}

// CreateOrUpdateFile commits content to path on branch. The current blob SHA
// is resolved on the branch first; a missing file is created.
func (p *GitHubProvider) CreateOrUpdateFile(ctx context.Context, owner, repo, path, content, message, branch string) (*CommitInfo, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		Branch:  github.Ptr(branch),
	}

	existing, _, _, err := p.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	switch {
	case err == nil && existing != nil:
		opts.SHA = github.Ptr(existing.GetSHA())
	case err != nil && !isNotFound(err):
		return nil, wrapError(err, "resolve %s on %s", path, branch)
	}

	var res *github.RepositoryContentResponse
	if opts.SHA != nil {
		res, _, err = p.client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	} else {
		res, _, err = p.client.Repositories.CreateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		return nil, wrapError(err, "commit %s to %s", path, branch)
	}

	return &CommitInfo{
		SHA:     res.Commit.GetSHA(),
		HTMLURL: res.Commit.GetHTMLURL(),
	}, nil
}

func (p *GitHubProvider) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, _, err := p.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, wrapError(err, "get pull request #%d", number)
	}
	return &PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		HeadRef: pr.GetHead().GetRef(),
		HeadSHA: pr.GetHead().GetSHA(),
		BaseRef: pr.GetBase().GetRef(),
	}, nil
}

func (p *GitHubProvider) GetPRDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := p.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", wrapError(err, "get diff of #%d", number)
	}
	return diff, nil
}

func (p *GitHubProvider) GetReviewComment(ctx context.Context, owner, repo string, commentID int64) (*ReviewComment, error) {
	c, _, err := p.client.PullRequests.GetComment(ctx, owner, repo, commentID)
	if err != nil {
		return nil, wrapError(err, "get review comment %d", commentID)
	}
	return fromGitHubComment(c), nil
}

func (p *GitHubProvider) CreateReviewComment(ctx context.Context, owner, repo string, number int, nc NewReviewComment) (*ReviewComment, error) {
	side := nc.Side
	if side == "" {
		side = SideRight
	}
	c, _, err := p.client.PullRequests.CreateComment(ctx, owner, repo, number, &github.PullRequestComment{
		Body:     github.Ptr(nc.Body),
		CommitID: github.Ptr(nc.CommitID),
		Path:     github.Ptr(nc.Path),
		Line:     github.Ptr(nc.Line),
		Side:     github.Ptr(side),
	})
	if err != nil {
		return nil, wrapError(err, "comment on %s:%d", nc.Path, nc.Line)
	}
	return fromGitHubComment(c), nil
}

func (p *GitHubProvider) ReplyToReviewComment(ctx context.Context, owner, repo string, number int, commentID int64, body string) (*ReviewComment, error) {
	c, _, err := p.client.PullRequests.CreateCommentInReplyTo(ctx, owner, repo, number, body, commentID)
	if err != nil {
		return nil, wrapError(err, "reply to comment %d", commentID)
	}
	return fromGitHubComment(c), nil
}

func (p *GitHubProvider) AddReaction(ctx context.Context, owner, repo string, commentID int64, reaction string) error {
	_, _, err := p.client.Reactions.CreatePullRequestCommentReaction(ctx, owner, repo, commentID, reaction)
	if err != nil {
		return wrapError(err, "react %q to comment %d", reaction, commentID)
	}
	return nil
}

func fromGitHubComment(c *github.PullRequestComment) *ReviewComment {
	line := c.GetLine()
	if line == 0 {
		line = c.GetOriginalLine()
	}
	return &ReviewComment{
		ID:       c.GetID(),
		Body:     c.GetBody(),
		Path:     c.GetPath(),
		Line:     line,
		DiffHunk: c.GetDiffHunk(),
		HTMLURL:  c.GetHTMLURL(),
	}
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// wrapError annotates err and maps GitHub 404s onto ErrNotFound
func wrapError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
