package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultModel is used when a request does not name one
const DefaultModel = "claude-sonnet-4-20250514"

// AnthropicModel implements Model with the Anthropic Messages API
type AnthropicModel struct {
	client anthropic.Client
	model  string
	logger *zap.Logger
}

var _ Model = (*AnthropicModel)(nil)

// NewAnthropicModel creates a Model for the given API key and default model.
// Extra request options (base URL, retries, HTTP client) are passed through.
func NewAnthropicModel(apiKey, model string, logger *zap.Logger, opts ...option.RequestOption) *AnthropicModel {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

// Complete sends the conversation and returns the assistant's reply
func (m *AnthropicModel) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = m.model
	}

	messages, err := toMessageParams(req.Turns)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
		Tools:     toToolParams(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	m.logger.Debug("model replied",
		zap.String("model", model),
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	return fromMessage(msg), nil
}

func toMessageParams(turns []Turn) ([]anthropic.MessageParam, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(t.Blocks))
		for _, b := range t.Blocks {
			switch b.Kind {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				var input any = map[string]any{}
				if len(b.Input) > 0 {
					input = b.Input
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUseID, input, b.ToolName))
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Text, b.IsError))
			default:
				return nil, fmt.Errorf("unknown block kind %q", b.Kind)
			}
		}
		switch t.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("unknown role %q", t.Role)
		}
	}
	return messages, nil
}

func toToolParams(specs []ToolSpec) []anthropic.ToolUnionParam {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        s.Name,
				Description: anthropic.String(s.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: s.Properties,
					Required:   s.Required,
				},
			},
		})
	}
	return tools
}

func fromMessage(msg *anthropic.Message) *Response {
	resp := &Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			// Empty text is rejected when the turn is sent back
			if v.Text == "" {
				continue
			}
			resp.Blocks = append(resp.Blocks, TextBlock(v.Text))
		case anthropic.ToolUseBlock:
			input := json.RawMessage(v.Input)
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			resp.Blocks = append(resp.Blocks, ToolUseBlock(v.ID, v.Name, input))
		}
	}
	return resp
}
