package ai

import (
	"context"
	"time"

	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*instrumentedAI)(nil)

// instrumentedAI records latency and token usage per provider/model.
type instrumentedAI struct {
	provider string
	inner    adapter.AIServiceAdapter
}

func NewInstrumentedAI(provider string, inner adapter.AIServiceAdapter) adapter.AIServiceAdapter {
	return &instrumentedAI{provider: provider, inner: inner}
}

func (i *instrumentedAI) ListModels(ctx context.Context) ([]string, error) {
	return i.inner.ListModels(ctx)
}

func (i *instrumentedAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return i.inner.GetModelInfo(model)
}

func (i *instrumentedAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return i.inner.CountTokens(ctx, model, messages)
}

func (i *instrumentedAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := i.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (i *instrumentedAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	start := time.Now()
	reply, u, err := i.inner.ChatWithUsage(ctx, model, messages)
	metrics.ObserveAICall(i.provider, model, u.PromptTokens, u.CompletionTokens, time.Since(start).Milliseconds(), err == nil)
	return reply, u, err
}
