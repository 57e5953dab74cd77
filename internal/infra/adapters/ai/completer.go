package ai

import (
	"context"

	"negotiation-agent/internal/domain/ports/adapter"
)

var _ adapter.TextCompleter = (*LLMCompleter)(nil)

// LLMCompleter sends a single-prompt chat to model.
type LLMCompleter struct {
	ai    adapter.AIServiceAdapter
	model string
}

func NewLLMCompleter(ai adapter.AIServiceAdapter, model string) *LLMCompleter {
	return &LLMCompleter{ai: ai, model: model}
}

func (c *LLMCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return c.ai.Chat(ctx, c.model, []adapter.Message{{Role: "user", Content: prompt}})
}
