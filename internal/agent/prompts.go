package agent

import _ "embed"

var (
	//go:embed prompts/review_system.md
	reviewSystemPrompt string

	//go:embed prompts/fix_system.md
	fixSystemPrompt string
)
