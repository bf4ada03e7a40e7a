package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Natural-Heroes/review-agent/internal/llm"
	"github.com/Natural-Heroes/review-agent/internal/repository"
	"github.com/Natural-Heroes/review-agent/internal/tools"
)

// Fix task limits
const (
	FixMaxCycles = 15
	FixMaxTokens = 8192
)

// Replies posted to the originating review comment.
const (
	FixCommittedReply = "✅ Fix has been committed to this PR."
	FixFailedReply    = "❌ Could not automatically fix this issue. Manual intervention required."
)

// FixResult summarizes one fix attempt
type FixResult struct {
	PR           string `json:"pr"`
	RunID        string `json:"run_id"`
	CommentID    int64  `json:"comment_id"`
	FixCommitted bool   `json:"fix_committed"`
	Iterations   int    `json:"iterations"`
	Exhausted    bool   `json:"exhausted,omitempty"`
}

// Fixer applies the change requested by a review comment
type Fixer struct {
	model  llm.Model
	search tools.CodeSearcher
	repo   repository.ContentProvider
	opts   options
}

// NewFixer creates a Fixer
func NewFixer(model llm.Model, search tools.CodeSearcher, repo repository.ContentProvider, opts ...Option) *Fixer {
	return &Fixer{
		model:  model,
		search: search,
		repo:   repo,
		opts:   buildOptions(FixMaxCycles, FixMaxTokens, opts),
	}
}

// Fix runs the fix loop for review comment commentID on pull request number.
// Once the comment and pull request are loaded, exactly one reply is posted
// to the comment whatever the loop's outcome.
func (f *Fixer) Fix(ctx context.Context, owner, repo string, number int, commentID int64, instructions string) (*FixResult, error) {
	runID := uuid.NewString()
	logger := f.opts.logger.With(
		zap.String("run_id", runID),
		zap.String("owner", owner),
		zap.String("repo", repo),
		zap.Int("pr", number),
		zap.Int64("comment_id", commentID))

	logger.Info("starting fix")

	comment, err := f.repo.GetReviewComment(ctx, owner, repo, commentID)
	if err != nil {
		return nil, fmt.Errorf("get review comment: %w", err)
	}
	pr, err := f.repo.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("get pull request: %w", err)
	}

	if err := f.repo.AddReaction(ctx, owner, repo, commentID, repository.ReactionEyes); err != nil {
		logger.Warn("failed to add reaction", zap.String("reaction", repository.ReactionEyes), zap.Error(err))
	}

	session := tools.Session{
		Owner:    owner,
		Repo:     repo,
		PRNumber: number,
		HeadSHA:  pr.HeadSHA,
		Branch:   pr.HeadRef,
	}
	registry := tools.FixTools(session, f.search, f.repo, logger)
	logger.Debug("tools ready", zap.Strings("tools", registry.Names()))

	loop := NewLoop(f.model, registry, LoopConfig{
		Model:     f.opts.model,
		System:    fixSystemPrompt,
		MaxCycles: f.opts.maxCycles,
		MaxTokens: f.opts.maxTokens,
	}, logger)

	out, loopErr := loop.Run(ctx, fixFraming(comment, instructions))
	if loopErr != nil {
		logger.Error("fix loop ended early", zap.Error(loopErr))
	}

	result := &FixResult{
		PR:           prRef(owner, repo, number),
		RunID:        runID,
		CommentID:    commentID,
		FixCommitted: out.Succeeded(tools.CommitFix) > 0,
		Iterations:   out.Cycles,
		Exhausted:    out.Exhausted,
	}

	// The reply must go out even when the run context was cancelled
	replyCtx := context.WithoutCancel(ctx)
	replyErr := f.reply(replyCtx, owner, repo, number, commentID, result.FixCommitted, logger)

	logger.Info("fix finished",
		zap.Bool("fix_committed", result.FixCommitted),
		zap.Int("iterations", result.Iterations))

	return result, errors.Join(loopErr, replyErr)
}

func (f *Fixer) reply(ctx context.Context, owner, repo string, number int, commentID int64, committed bool, logger *zap.Logger) error {
	body := FixFailedReply
	if committed {
		body = FixCommittedReply
	}
	if _, err := f.repo.ReplyToReviewComment(ctx, owner, repo, number, commentID, body); err != nil {
		return fmt.Errorf("reply to review comment: %w", err)
	}
	if committed {
		if err := f.repo.AddReaction(ctx, owner, repo, commentID, repository.ReactionRocket); err != nil {
			logger.Warn("failed to add reaction", zap.String("reaction", repository.ReactionRocket), zap.Error(err))
		}
	}
	return nil
}

func fixFraming(c *repository.ReviewComment, instructions string) string {
	var b strings.Builder
	b.WriteString("Please fix the issue identified in this code review comment.\n\n")
	b.WriteString("## Review Comment\n")
	b.WriteString(c.Body)
	b.WriteString("\n\n## Location\n")
	fmt.Fprintf(&b, "- **File**: %s\n", c.Path)
	fmt.Fprintf(&b, "- **Line**: %d\n\n", c.Line)
	b.WriteString("## Diff Context\n```diff\n")
	b.WriteString(c.DiffHunk)
	b.WriteString("\n```\n\n")
	if instructions = strings.TrimSpace(instructions); instructions != "" {
		b.WriteString("## User Instructions\n")
		b.WriteString(instructions)
		b.WriteString("\n\n")
	}
	b.WriteString("Use the available tools to:\n")
	b.WriteString("1. Search for relevant context in the codebase\n")
	b.WriteString("2. Get the full file content\n")
	b.WriteString("3. Apply the fix by committing the corrected code\n\n")
	b.WriteString("Make the minimal change necessary to fix the issue while preserving all existing functionality.")
	return b.String()
}
