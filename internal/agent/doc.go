// Package agent runs bounded tool-using conversations with a language model.
//
// Loop is the protocol: each cycle sends the conversation and tool specs to
// the model, appends the assistant turn, dispatches every tool call in it
// concurrently and appends the results as one user turn in call order. It
// stops when a turn has no tool calls, when the model reports end_turn after
// its calls are answered, or after MaxCycles.
//
// Reviewer and Fixer build a Loop per task:
//
//	reviewer := agent.NewReviewer(model, searcher, github, agent.WithLogger(logger))
//	res, err := reviewer.Review(ctx, "acme", "api", 42)
//
//	fixer := agent.NewFixer(model, searcher, github)
//	res, err := fixer.Fix(ctx, "acme", "api", 42, commentID, "")
//
// A fix always ends with a single reply on the review comment that asked
// for it, reporting whether a commit was made.
package agent
