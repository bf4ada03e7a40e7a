package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Natural-Heroes/review-agent/internal/llm"
	"github.com/Natural-Heroes/review-agent/internal/repository"
	"github.com/Natural-Heroes/review-agent/internal/tools"
	"github.com/Natural-Heroes/review-agent/pkg/types"
)

// scriptedModel replays responses in order and repeats the last one
type scriptedModel struct {
	responses []*llm.Response
	err       error
	errAt     int // 1-based call that fails, 0 for never
	requests  []llm.Request
}

func (m *scriptedModel) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	turns := make([]llm.Turn, len(req.Turns))
	copy(turns, req.Turns)
	req.Turns = turns
	m.requests = append(m.requests, req)

	if m.errAt > 0 && len(m.requests) == m.errAt {
		return nil, m.err
	}
	i := len(m.requests) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func toolUse(id, name, input string) llm.Block {
	return llm.ToolUseBlock(id, name, json.RawMessage(input))
}

func reply(stop string, blocks ...llm.Block) *llm.Response {
	return &llm.Response{Blocks: blocks, StopReason: stop}
}

// echoTools answers every call with the tool name, after an optional delay
type echoTools struct {
	delay map[string]time.Duration
	mu    sync.Mutex
	calls []string
}

func (e *echoTools) Specs() []llm.ToolSpec {
	return []llm.ToolSpec{{Name: "echo"}}
}

func (e *echoTools) Dispatch(_ context.Context, name string, raw json.RawMessage) tools.Result {
	time.Sleep(e.delay[name])
	e.mu.Lock()
	e.calls = append(e.calls, name)
	e.mu.Unlock()
	return tools.Result{Content: name + ":" + string(raw)}
}

func TestLoopStopsWithoutToolCalls(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{reply("end_turn", llm.TextBlock("Looks good."))}}
	loop := NewLoop(model, &echoTools{}, LoopConfig{MaxCycles: 20, MaxTokens: 100}, nil)

	out, err := loop.Run(context.Background(), "review this")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Cycles)
	assert.False(t, out.Exhausted)
	assert.Empty(t, out.Invocations)
	assert.Len(t, out.Conversation, 2)
	assert.Equal(t, llm.RoleAssistant, out.Conversation[1].Role)

	req := model.requests[0]
	assert.Equal(t, 100, req.MaxTokens)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "review this", req.Turns[0].Blocks[0].Text)
}

func TestLoopExhaustsCycleBound(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use", toolUse("t", "echo", `{}`)),
	}}
	loop := NewLoop(model, &echoTools{}, LoopConfig{MaxCycles: 4}, nil)

	out, err := loop.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 4, out.Cycles)
	assert.True(t, out.Exhausted)
	assert.Len(t, model.requests, 4)
	assert.Len(t, out.Invocations, 4)
}

func TestLoopEndTurnAfterToolCalls(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		reply("end_turn", toolUse("t1", "echo", `{"n":1}`)),
		reply("end_turn", llm.TextBlock("unreachable")),
	}}
	loop := NewLoop(model, &echoTools{}, LoopConfig{MaxCycles: 10}, nil)

	out, err := loop.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Cycles)
	require.Len(t, out.Conversation, 3)

	// Every call is answered before the loop ends
	last := out.Conversation[2]
	assert.Equal(t, llm.RoleUser, last.Role)
	require.Len(t, last.Blocks, 1)
	assert.Equal(t, llm.BlockToolResult, last.Blocks[0].Kind)
	assert.Equal(t, "t1", last.Blocks[0].ToolUseID)
}

func TestLoopPreservesInvocationOrder(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use",
			llm.TextBlock("Checking three things."),
			toolUse("a", "slow", `1`),
			toolUse("b", "medium", `2`),
			toolUse("c", "fast", `3`)),
		reply("end_turn", llm.TextBlock("done")),
	}}
	dispatcher := &echoTools{delay: map[string]time.Duration{
		"slow":   30 * time.Millisecond,
		"medium": 15 * time.Millisecond,
	}}
	loop := NewLoop(model, dispatcher, LoopConfig{MaxCycles: 5}, nil)

	out, err := loop.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Cycles)

	results := out.Conversation[2].Blocks
	require.Len(t, results, 3)
	for i, want := range []struct{ id, content string }{
		{"a", "slow:1"}, {"b", "medium:2"}, {"c", "fast:3"},
	} {
		assert.Equal(t, want.id, results[i].ToolUseID)
		assert.Equal(t, want.content, results[i].Text)
	}

	// The second request carries the complete history
	second := model.requests[1]
	require.Len(t, second.Turns, 3)
	assert.Len(t, second.Turns[1].Blocks, 4)
}

func TestLoopModelError(t *testing.T) {
	model := &scriptedModel{
		responses: []*llm.Response{reply("tool_use", toolUse("t", "echo", `{}`))},
		err:       errors.New("overloaded"),
		errAt:     3,
	}
	loop := NewLoop(model, &echoTools{}, LoopConfig{MaxCycles: 10}, nil)

	out, err := loop.Run(context.Background(), "go")
	assert.ErrorContains(t, err, "overloaded")
	require.NotNil(t, out)
	assert.Equal(t, 3, out.Cycles)
	assert.Len(t, out.Invocations, 2)
	assert.False(t, out.Exhausted)
}

func TestLoopHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &scriptedModel{responses: []*llm.Response{reply("end_turn")}}
	out, err := NewLoop(model, &echoTools{}, LoopConfig{MaxCycles: 3}, nil).Run(ctx, "go")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Cycles)
	assert.Empty(t, model.requests)
}

type fakeSearcher struct {
	hits []types.SearchHit
}

func (f *fakeSearcher) SearchCode(context.Context, string, string, string, int) ([]types.SearchHit, error) {
	return f.hits, nil
}

type fakeGitHub struct {
	mu sync.Mutex

	pr        repository.PullRequest
	diff      string
	comment   repository.ReviewComment
	files     map[string]string
	commitErr error
	prErr     error

	posted    []repository.NewReviewComment
	commits   map[string]string
	replies   []string
	reactions []string
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		pr: repository.PullRequest{
			Number: 7, Title: "Add foo", Body: "Adds foo.",
			HeadRef: "feature/foo", HeadSHA: "abc123", BaseRef: "main",
		},
		diff: "--- a/a.py\n+++ b/a.py\n@@ -1 +1,2 @@\n+def foo(): return None\n",
		comment: repository.ReviewComment{
			ID: 99, Body: "🔴 Critical: foo returns None", Path: "a.py", Line: 12,
			DiffHunk: "@@ -10,3 +10,4 @@",
		},
		files:   map[string]string{"a.py": "def foo():\n    return None\n"},
		commits: map[string]string{},
	}
}

func (g *fakeGitHub) GetFileContent(_ context.Context, _, _, path, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	content, ok := g.files[path]
	if !ok {
		return "", repository.ErrNotFound
	}
	return content, nil
}

func (g *fakeGitHub) ListTree(context.Context, string, string, string) ([]repository.TreeEntry, error) {
	return nil, nil
}

func (g *fakeGitHub) CreateOrUpdateFile(_ context.Context, _, _, path, content, _, branch string) (*repository.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.commitErr != nil {
		return nil, g.commitErr
	}
	g.commits[branch+":"+path] = content
	return &repository.CommitInfo{SHA: "def456"}, nil
}

func (g *fakeGitHub) GetPullRequest(context.Context, string, string, int) (*repository.PullRequest, error) {
	if g.prErr != nil {
		return nil, g.prErr
	}
	pr := g.pr
	return &pr, nil
}

func (g *fakeGitHub) GetPRDiff(context.Context, string, string, int) (string, error) {
	return g.diff, nil
}

func (g *fakeGitHub) GetReviewComment(_ context.Context, _, _ string, id int64) (*repository.ReviewComment, error) {
	if id != g.comment.ID {
		return nil, repository.ErrNotFound
	}
	c := g.comment
	return &c, nil
}

func (g *fakeGitHub) CreateReviewComment(_ context.Context, _, _ string, _ int, c repository.NewReviewComment) (*repository.ReviewComment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.posted = append(g.posted, c)
	return &repository.ReviewComment{ID: int64(len(g.posted)), Body: c.Body, Path: c.Path, Line: c.Line}, nil
}

func (g *fakeGitHub) ReplyToReviewComment(_ context.Context, _, _ string, _ int, _ int64, body string) (*repository.ReviewComment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, body)
	return &repository.ReviewComment{Body: body}, nil
}

func (g *fakeGitHub) AddReaction(_ context.Context, _, _ string, _ int64, reaction string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reactions = append(g.reactions, reaction)
	return nil
}

func TestReviewScenario(t *testing.T) {
	gh := newFakeGitHub()
	search := &fakeSearcher{hits: []types.SearchHit{
		{FilePath: "b.py", StartLine: 1, EndLine: 3, Content: "foo()", Rank: 1, Score: 0.9},
		{FilePath: "c.py", StartLine: 8, EndLine: 9, Content: "x = foo()", Rank: 2, Score: 0.7},
	}}
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use", toolUse("t1", tools.SearchCodebase, `{"query":"callers of foo"}`)),
		reply("tool_use", toolUse("t2", tools.PostReviewComment,
			`{"file_path":"a.py","line":12,"body":"🟠 Warning: callers expect an int","side":"RIGHT"}`)),
		reply("end_turn", llm.TextBlock("Review complete.")),
	}}

	res, err := NewReviewer(model, search, gh).Review(context.Background(), "acme", "api", 7)
	require.NoError(t, err)
	assert.Equal(t, "acme/api#7", res.PR)
	assert.Equal(t, 1, res.CommentsPosted)
	assert.Equal(t, 3, res.Iterations)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, gh.posted, 1)
	assert.Equal(t, "abc123", gh.posted[0].CommitID)
	assert.Equal(t, 12, gh.posted[0].Line)

	// Both hits reached the model
	searchResult := model.requests[1].Turns[2].Blocks[0]
	assert.False(t, searchResult.IsError)
	assert.Contains(t, searchResult.Text, "b.py")
	assert.Contains(t, searchResult.Text, "c.py")

	first := model.requests[0]
	assert.Equal(t, llm.DefaultModel, first.Model)
	assert.Equal(t, ReviewMaxTokens, first.MaxTokens)
	assert.Equal(t, reviewSystemPrompt, first.System)
	assert.Contains(t, first.Turns[0].Blocks[0].Text, "Add foo")
	assert.Contains(t, first.Turns[0].Blocks[0].Text, gh.diff)
}

func TestReviewCountsOnlySuccessfulComments(t *testing.T) {
	gh := newFakeGitHub()
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use",
			toolUse("t1", tools.PostReviewComment, `{"file_path":"a.py","line":0,"body":"bad line"}`),
			toolUse("t2", tools.PostReviewComment, `{"file_path":"a.py","line":2,"body":"ok"}`)),
		reply("end_turn"),
	}}

	res, err := NewReviewer(model, &fakeSearcher{}, gh, WithMaxCycles(5)).Review(context.Background(), "acme", "api", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CommentsPosted)
	assert.Equal(t, 2, res.Iterations)
}

func TestReviewFramingTruncates(t *testing.T) {
	pr := &repository.PullRequest{Title: "Big", Body: strings.Repeat("b", 3000)}
	framing := reviewFraming(pr, strings.Repeat("d", 60000))

	assert.Contains(t, framing, strings.Repeat("b", maxBodyChars))
	assert.NotContains(t, framing, strings.Repeat("b", maxBodyChars+1))
	assert.Contains(t, framing, strings.Repeat("d", maxDiffChars))
	assert.NotContains(t, framing, strings.Repeat("d", maxDiffChars+1))

	empty := reviewFraming(&repository.PullRequest{Title: "t"}, "")
	assert.Contains(t, empty, "No description provided")
}

func TestFixScenario(t *testing.T) {
	gh := newFakeGitHub()
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use", toolUse("t1", tools.GetFileContent, `{"file_path":"a.py"}`)),
		reply("tool_use", toolUse("t2", tools.CommitFix,
			`{"file_path":"a.py","new_content":"def foo():\n    return 1\n","commit_message":"Return an int from foo"}`)),
		reply("end_turn", llm.TextBlock("Fixed.")),
	}}

	res, err := NewFixer(model, &fakeSearcher{}, gh).Fix(context.Background(), "acme", "api", 7, 99, "keep it short")
	require.NoError(t, err)
	assert.True(t, res.FixCommitted)
	assert.Equal(t, int64(99), res.CommentID)
	assert.Equal(t, 3, res.Iterations)

	assert.Equal(t, "def foo():\n    return 1\n", gh.commits["feature/foo:a.py"])
	assert.Equal(t, []string{FixCommittedReply}, gh.replies)
	assert.Equal(t, []string{repository.ReactionEyes, repository.ReactionRocket}, gh.reactions)

	framing := model.requests[0].Turns[0].Blocks[0].Text
	assert.Contains(t, framing, "🔴 Critical: foo returns None")
	assert.Contains(t, framing, "- **Line**: 12")
	assert.Contains(t, framing, "## User Instructions\nkeep it short")
	assert.Equal(t, FixMaxTokens, model.requests[0].MaxTokens)
	assert.Equal(t, fixSystemPrompt, model.requests[0].System)
}

func TestFixFailedCommit(t *testing.T) {
	gh := newFakeGitHub()
	gh.commitErr = errors.New("409 conflict")
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use", toolUse("t1", tools.CommitFix,
			`{"file_path":"a.py","new_content":"x","commit_message":"fix"}`)),
		reply("end_turn", llm.TextBlock("Could not commit.")),
	}}

	res, err := NewFixer(model, &fakeSearcher{}, gh).Fix(context.Background(), "acme", "api", 7, 99, "")
	require.NoError(t, err)
	assert.False(t, res.FixCommitted)
	assert.Equal(t, []string{FixFailedReply}, gh.replies)
	assert.Equal(t, []string{repository.ReactionEyes}, gh.reactions)

	assert.NotContains(t, model.requests[0].Turns[0].Blocks[0].Text, "User Instructions")
}

func TestFixRepliesOnceWhenExhausted(t *testing.T) {
	gh := newFakeGitHub()
	model := &scriptedModel{responses: []*llm.Response{
		reply("tool_use", toolUse("t", tools.GetFileContent, `{"file_path":"a.py"}`)),
	}}

	res, err := NewFixer(model, &fakeSearcher{}, gh).Fix(context.Background(), "acme", "api", 7, 99, "")
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, FixMaxCycles, res.Iterations)
	assert.Equal(t, []string{FixFailedReply}, gh.replies)
}

func TestFixModelErrorStillReplies(t *testing.T) {
	gh := newFakeGitHub()
	model := &scriptedModel{
		responses: []*llm.Response{reply("end_turn")},
		err:       errors.New("invalid api key"),
		errAt:     1,
	}

	res, err := NewFixer(model, &fakeSearcher{}, gh).Fix(context.Background(), "acme", "api", 7, 99, "")
	assert.ErrorContains(t, err, "invalid api key")
	require.NotNil(t, res)
	assert.False(t, res.FixCommitted)
	assert.Equal(t, []string{FixFailedReply}, gh.replies)
}

func TestFixMissingComment(t *testing.T) {
	gh := newFakeGitHub()
	model := &scriptedModel{responses: []*llm.Response{reply("end_turn")}}

	_, err := NewFixer(model, &fakeSearcher{}, gh).Fix(context.Background(), "acme", "api", 7, 1, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, gh.replies)
	assert.Empty(t, gh.reactions)
	assert.Empty(t, model.requests)

	gh.prErr = fmt.Errorf("get pr: %w", repository.ErrNotFound)
	_, err = NewFixer(model, &fakeSearcher{}, gh).Fix(context.Background(), "acme", "api", 7, 99, "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, gh.replies)
}
