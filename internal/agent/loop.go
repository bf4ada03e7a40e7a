package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Natural-Heroes/review-agent/internal/llm"
	"github.com/Natural-Heroes/review-agent/internal/tools"
)

// StopEndTurn is the stop reason a model reports when it finished naturally
const StopEndTurn = "end_turn"

// Dispatcher runs tools on behalf of the model
type Dispatcher interface {
	Specs() []llm.ToolSpec
	Dispatch(ctx context.Context, name string, raw json.RawMessage) tools.Result
}

// LoopConfig bounds one agent run
type LoopConfig struct {
	Model     string
	System    string
	MaxCycles int
	MaxTokens int
}

// Invocation records one tool call and its result
type Invocation struct {
	Cycle  int
	Name   string
	Input  json.RawMessage
	Result tools.Result
}

// Outcome summarizes a finished loop
type Outcome struct {
	Cycles       int
	Invocations  []Invocation
	Exhausted    bool // stopped by MaxCycles rather than by the model
	StopReason   string
	Conversation []llm.Turn
}

// Succeeded counts the calls to the named tool that returned without error
func (o *Outcome) Succeeded(name string) int {
	n := 0
	for _, inv := range o.Invocations {
		if inv.Name == name && !inv.Result.IsError {
			n++
		}
	}
	return n
}

// Loop drives the request, dispatch, append cycle against a model
type Loop struct {
	model  llm.Model
	tools  Dispatcher
	config LoopConfig
	logger *zap.Logger
}

// NewLoop creates a loop over model and tools
func NewLoop(model llm.Model, tools Dispatcher, config LoopConfig, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{model: model, tools: tools, config: config, logger: logger}
}

// Run starts a conversation with framing and cycles until the model stops
// calling tools, reports end_turn, or MaxCycles is reached. A model failure
// ends the run; the partial outcome is returned along with the error.
func (l *Loop) Run(ctx context.Context, framing string) (*Outcome, error) {
	out := &Outcome{
		Conversation: []llm.Turn{llm.UserTurn(llm.TextBlock(framing))},
	}
	specs := l.tools.Specs()

	for out.Cycles < l.config.MaxCycles {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		out.Cycles++
		cycle := out.Cycles

		resp, err := l.model.Complete(ctx, llm.Request{
			Model:     l.config.Model,
			System:    l.config.System,
			Turns:     out.Conversation,
			Tools:     specs,
			MaxTokens: l.config.MaxTokens,
		})
		if err != nil {
			return out, fmt.Errorf("model call in cycle %d: %w", cycle, err)
		}

		out.StopReason = resp.StopReason
		out.Conversation = append(out.Conversation, llm.AssistantTurn(resp.Blocks...))

		if text := resp.Text(); text != "" {
			l.logger.Debug("model said", zap.Int("cycle", cycle), zap.String("text", truncate(text, 200)))
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			return out, nil
		}

		results := l.dispatch(ctx, cycle, uses)
		blocks := make([]llm.Block, len(uses))
		for i, use := range uses {
			blocks[i] = llm.ToolResultBlock(use.ToolUseID, results[i].Content, results[i].IsError)
			out.Invocations = append(out.Invocations, Invocation{
				Cycle:  cycle,
				Name:   use.ToolName,
				Input:  use.Input,
				Result: results[i],
			})
		}
		out.Conversation = append(out.Conversation, llm.UserTurn(blocks...))

		if resp.StopReason == StopEndTurn {
			return out, nil
		}
	}

	out.Exhausted = true
	l.logger.Info("cycle limit reached", zap.Int("max_cycles", l.config.MaxCycles))
	return out, nil
}

// dispatch runs every invocation of one assistant turn concurrently and
// returns results in invocation order
func (l *Loop) dispatch(ctx context.Context, cycle int, uses []llm.Block) []tools.Result {
	results := make([]tools.Result, len(uses))

	var g errgroup.Group
	for i, use := range uses {
		g.Go(func() error {
			l.logger.Debug("tool call",
				zap.Int("cycle", cycle),
				zap.String("tool", use.ToolName),
				zap.ByteString("input", use.Input))
			results[i] = l.tools.Dispatch(ctx, use.ToolName, use.Input)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
