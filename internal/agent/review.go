package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/llm"
	"github.com/Natural-Heroes/review-agent/internal/repository"
	"github.com/Natural-Heroes/review-agent/internal/tools"
)

// Review task limits
const (
	ReviewMaxCycles = 20
	ReviewMaxTokens = 4096

	maxBodyChars = 2000
	maxDiffChars = 50000
)

// ReviewResult summarizes one pull request review
type ReviewResult struct {
	PR             string `json:"pr"`
	RunID          string `json:"run_id"`
	CommentsPosted int    `json:"comments_posted"`
	Iterations     int    `json:"iterations"`
	Exhausted      bool   `json:"exhausted,omitempty"`
}

// Option configures a Reviewer or Fixer
type Option func(*options)

type options struct {
	model     string
	maxCycles int
	maxTokens int
	logger    *zap.Logger
}

// WithModel selects the model name sent with every request
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithMaxCycles overrides the task's cycle bound
func WithMaxCycles(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCycles = n
		}
	}
}

// WithMaxTokens overrides the task's output token bound
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(maxCycles, maxTokens int, opts []Option) options {
	o := options{
		model:     llm.DefaultModel,
		maxCycles: maxCycles,
		maxTokens: maxTokens,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reviewer reviews pull requests and posts inline comments
type Reviewer struct {
	model  llm.Model
	search tools.CodeSearcher
	repo   repository.ContentProvider
	opts   options
}

// NewReviewer creates a Reviewer
func NewReviewer(model llm.Model, search tools.CodeSearcher, repo repository.ContentProvider, opts ...Option) *Reviewer {
	return &Reviewer{
		model:  model,
		search: search,
		repo:   repo,
		opts:   buildOptions(ReviewMaxCycles, ReviewMaxTokens, opts),
	}
}

// Review runs the review loop over pull request number in owner/repo.
// When the model fails mid-run the partial result is returned with the error.
func (r *Reviewer) Review(ctx context.Context, owner, repo string, number int) (*ReviewResult, error) {
	runID := uuid.NewString()
	logger := r.opts.logger.With(
		zap.String("run_id", runID),
		zap.String("owner", owner),
		zap.String("repo", repo),
		zap.Int("pr", number))

	logger.Info("starting review")

	pr, err := r.repo.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}
	diff, err := r.repo.GetPRDiff(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request diff: %w", err)
	}

	session := tools.Session{
		Owner:    owner,
		Repo:     repo,
		PRNumber: number,
		HeadSHA:  pr.HeadSHA,
		Branch:   pr.HeadRef,
	}
	registry := tools.ReviewTools(session, r.search, r.repo, logger)
	logger.Debug("tools ready", zap.Strings("tools", registry.Names()))

	loop := NewLoop(r.model, registry, LoopConfig{
		Model:     r.opts.model,
		System:    reviewSystemPrompt,
		MaxCycles: r.opts.maxCycles,
		MaxTokens: r.opts.maxTokens,
	}, logger)

	out, loopErr := loop.Run(ctx, reviewFraming(pr, diff))

	result := &ReviewResult{
		PR:             prRef(owner, repo, number),
		RunID:          runID,
		CommentsPosted: out.Succeeded(tools.PostReviewComment),
		Iterations:     out.Cycles,
		Exhausted:      out.Exhausted,
	}

	if loopErr != nil {
		logger.Error("review ended early", zap.Error(loopErr), zap.Int("comments_posted", result.CommentsPosted))
		return result, loopErr
	}

	logger.Info("review complete",
		zap.Int("comments_posted", result.CommentsPosted),
		zap.Int("iterations", result.Iterations))
	return result, nil
}

func reviewFraming(pr *repository.PullRequest, diff string) string {
	body := truncate(pr.Body, maxBodyChars)
	if body == "" {
		body = "No description provided"
	}

	var b strings.Builder
	b.WriteString("Please review this pull request.\n\n")
	b.WriteString("## PR Information\n")
	fmt.Fprintf(&b, "- **Title**: %s\n", pr.Title)
	fmt.Fprintf(&b, "- **Description**: %s\n\n", body)
	b.WriteString("## Diff\n```diff\n")
	b.WriteString(truncate(diff, maxDiffChars))
	b.WriteString("\n```\n\n")
	b.WriteString("Review the changes and use the available tools to:\n")
	b.WriteString("1. Search the codebase for relevant context (callers, types, tests)\n")
	b.WriteString("2. Post inline comments for any issues you find\n\n")
	b.WriteString("Focus on bugs, security issues, and breaking changes. Be thorough but don't report minor style issues.")
	return b.String()
}

func prRef(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}
