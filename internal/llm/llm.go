package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind distinguishes the content blocks of a turn
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// Block is one piece of turn content. Which fields are set depends on Kind:
// text blocks carry Text; tool_use blocks carry ToolUseID, ToolName and Input;
// tool_result blocks carry ToolUseID, Text and IsError.
type Block struct {
	Kind      BlockKind       `json:"kind"`
	Text      string          `json:"text,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// TextBlock returns a text block
func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

// ToolUseBlock returns a tool invocation block
func ToolUseBlock(id, name string, input json.RawMessage) Block {
	return Block{Kind: BlockToolUse, ToolUseID: id, ToolName: name, Input: input}
}

// ToolResultBlock returns the answer to the invocation with the given id
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{Kind: BlockToolResult, ToolUseID: toolUseID, Text: content, IsError: isError}
}

// Turn is one message of a conversation
type Turn struct {
	Role   Role    `json:"role"`
	Blocks []Block `json:"blocks"`
}

// UserTurn builds a user turn
func UserTurn(blocks ...Block) Turn {
	return Turn{Role: RoleUser, Blocks: blocks}
}

// AssistantTurn builds an assistant turn
func AssistantTurn(blocks ...Block) Turn {
	return Turn{Role: RoleAssistant, Blocks: blocks}
}

// ToolSpec advertises a tool to the model. Properties and Required are the
// JSON schema of the tool's argument object.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// Request is a single completion request
type Request struct {
	Model     string
	System    string
	Turns     []Turn
	Tools     []ToolSpec
	MaxTokens int
}

// Response is the assistant's reply to a Request
type Response struct {
	Blocks     []Block
	StopReason string
}

// ToolUses returns the tool invocation blocks in order
func (r *Response) ToolUses() []Block {
	var uses []Block
	for _, b := range r.Blocks {
		if b.Kind == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// Text concatenates the text blocks
func (r *Response) Text() string {
	var parts []string
	for _, b := range r.Blocks {
		if b.Kind == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Model is a chat model that can call tools
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
