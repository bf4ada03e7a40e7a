// Package llm defines a provider-neutral conversation model for tool-using
// agents and implements it on the Anthropic Messages API.
//
// A conversation is an ordered slice of Turns. Assistant turns carry text and
// tool_use blocks; the following user turn answers every tool_use with a
// tool_result block carrying the same id, in the same order.
//
//	model := llm.NewAnthropicModel(apiKey, llm.DefaultModel, logger)
//	resp, err := model.Complete(ctx, llm.Request{
//	    System:    systemPrompt,
//	    Turns:     []llm.Turn{llm.UserTurn(llm.TextBlock("Review PR #42"))},
//	    Tools:     registry.Specs(),
//	    MaxTokens: 4096,
//	})
//	for _, use := range resp.ToolUses() {
//	    // dispatch use.ToolName with use.Input
//	}
package llm
