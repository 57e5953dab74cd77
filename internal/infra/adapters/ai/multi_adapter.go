// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes a model to its provider and fails over to the
// remaining providers, in order, using each provider's default model.
type MultiAIAdapter struct {
	defaultProvider string // e.g., "openai" or "gemini"
	order           []string
	byProvider      map[string]adapter.AIServiceAdapter
	modelToProvider map[string]string // model -> provider
	log             *zerolog.Logger
}

// NewMultiAIAdapter keeps the provider order for failover; order entries
// without an adapter are skipped.
func NewMultiAIAdapter(
	defaultProvider string,
	order []string,
	byProvider map[string]adapter.AIServiceAdapter,
	modelToProvider map[string]string,
	logger *zerolog.Logger,
) *MultiAIAdapter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	var known []string
	for _, p := range order {
		p = strings.ToLower(p)
		if byProvider[p] != nil {
			known = append(known, p)
		}
	}
	return &MultiAIAdapter{
		defaultProvider: strings.ToLower(defaultProvider),
		order:           known,
		byProvider:      byProvider,
		modelToProvider: modelToProvider,
		log:             logger,
	}
}

func (m *MultiAIAdapter) resolveProvider(model string) string {
	if p := m.modelToProvider[model]; p != "" {
		return strings.ToLower(p)
	}
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

type route struct {
	provider string
	model    string
	ai       adapter.AIServiceAdapter
}

// routes lists the preferred provider with the requested model first, then
// the others with their own defaults.
func (m *MultiAIAdapter) routes(model string) []route {
	primary := m.resolveProvider(model)
	var out []route
	if a := m.byProvider[primary]; a != nil {
		out = append(out, route{provider: primary, model: model, ai: a})
	}
	for _, p := range m.order {
		if p != primary {
			out = append(out, route{provider: p, ai: m.byProvider[p]})
		}
	}
	return out
}

func (m *MultiAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.modelToProvider)+4)

	for model := range m.modelToProvider {
		if _, ok := seen[model]; !ok {
			seen[model] = struct{}{}
			out = append(out, model)
		}
	}
	for _, p := range m.order {
		list, _ := m.byProvider[p].ListModels(ctx)
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func (m *MultiAIAdapter) GetModelInfo(model string) (adapter.ModelInfo, error) {
	rs := m.routes(model)
	if len(rs) == 0 {
		return adapter.ModelInfo{Name: model}, nil
	}
	return rs[0].ai.GetModelInfo(model)
}

func (m *MultiAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	rs := m.routes(model)
	if len(rs) == 0 {
		return 0, domain.ErrUpstreamUnavailable
	}
	return rs[0].ai.CountTokens(ctx, rs[0].model, messages)
}

func (m *MultiAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := m.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (m *MultiAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	rs := m.routes(model)
	if len(rs) == 0 {
		return "", adapter.Usage{}, fmt.Errorf("no ai providers configured: %w", domain.ErrUpstreamUnavailable)
	}
	var errs []error
	for _, r := range rs {
		reply, usage, err := r.ai.ChatWithUsage(ctx, r.model, messages)
		if err == nil {
			return reply, usage, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", r.provider, err))
		if ctx.Err() != nil {
			break
		}
		m.log.Warn().Err(err).Str("provider", r.provider).Msg("ai provider failed, trying next")
	}
	return "", adapter.Usage{}, errors.Join(errs...)
}
