package ai_test

import (
	"context"
	"errors"
	"testing"

	"negotiation-agent/internal/domain"
	"negotiation-agent/internal/domain/ports/adapter"
	ai "negotiation-agent/internal/infra/adapters/ai"
)

type stubAI struct {
	name         string
	err          error
	ctN          int
	cwuN         int
	lastModelCT  string
	lastModelCWU string
}

func (s *stubAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{s.name + "-model"}, nil
}
func (s *stubAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: model}, nil
}
func (s *stubAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	s.ctN++
	s.lastModelCT = model
	return 1, nil
}
func (s *stubAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := s.ChatWithUsage(ctx, model, messages)
	return reply, err
}
func (s *stubAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	s.cwuN++
	s.lastModelCWU = model
	if s.err != nil {
		return "", adapter.Usage{}, s.err
	}
	return s.name + " ok", adapter.Usage{PromptTokens: 1, CompletionTokens: 1}, nil
}

func TestRouting_ExplicitMap_Heuristics_And_Default(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"openai",
		[]string{"openai", "gemini"},
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
		nil,
	)

	// explicit map wins
	_, _ = m.CountTokens(ctx, "custom-x", nil)
	if gem.ctN != 1 || open.ctN != 0 {
		t.Fatalf("explicit map should route to gemini, got open:%d gem:%d", open.ctN, gem.ctN)
	}

	// gpt-* -> openai
	_, _, _ = m.ChatWithUsage(ctx, "gpt-4o-mini", nil)
	if open.cwuN != 1 || gem.cwuN != 0 {
		t.Fatalf("heuristic gpt-* should go openai")
	}
	open.cwuN, gem.cwuN = 0, 0

	// gemini-* -> gemini
	_, _, _ = m.ChatWithUsage(ctx, "gemini-1.5-flash", nil)
	if gem.cwuN != 1 || open.cwuN != 0 {
		t.Fatalf("heuristic gemini-* should go gemini")
	}

	// unknown -> default provider (openai)
	open.ctN, gem.ctN = 0, 0
	_, _ = m.CountTokens(ctx, "unknown", nil)
	if open.ctN != 1 || gem.ctN != 0 {
		t.Fatalf("unknown model should go to default provider (openai)")
	}
}

func TestFailover_UsesNextProviderDefaultModel(t *testing.T) {
	t.Parallel()
	open := &stubAI{name: "openai", err: domain.ErrUpstreamUnavailable}
	gem := &stubAI{name: "gemini"}
	m := ai.NewMultiAIAdapter("openai", []string{"metis", "openai", "gemini"},
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem}, nil, nil)

	reply, err := m.Chat(context.Background(), "gpt-4o-mini", nil)
	if err != nil {
		t.Fatalf("expected failover, got %v", err)
	}
	if reply != "gemini ok" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if open.lastModelCWU != "gpt-4o-mini" || gem.lastModelCWU != "" {
		t.Fatalf("fallback provider should use its own default model, got %q", gem.lastModelCWU)
	}
}

func TestFailover_AllFail(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	m := ai.NewMultiAIAdapter("openai", []string{"openai", "gemini"},
		map[string]adapter.AIServiceAdapter{
			"openai": &stubAI{name: "openai", err: domain.ErrUpstreamUnavailable},
			"gemini": &stubAI{name: "gemini", err: boom},
		}, nil, nil)

	_, err := m.Chat(context.Background(), "gpt-4o-mini", nil)
	if !errors.Is(err, domain.ErrUpstreamUnavailable) || !errors.Is(err, boom) {
		t.Fatalf("expected joined provider errors, got %v", err)
	}
}

func TestNoProviders(t *testing.T) {
	t.Parallel()
	m := ai.NewMultiAIAdapter("openai", nil, map[string]adapter.AIServiceAdapter{}, nil, nil)
	if _, err := m.Chat(context.Background(), "gpt-4o-mini", nil); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if _, err := ai.NewNoopAIAdapter().Chat(context.Background(), "", nil); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("noop adapter should report unavailable, got %v", err)
	}
}
