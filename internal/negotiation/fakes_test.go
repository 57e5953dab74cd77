package negotiation

import (
	"context"
	"sync"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
)

type stubAgent struct {
	decision model.NegotiationDecision
	err      error
	block    chan struct{}
	panicMsg string

	mu    sync.Mutex
	calls []adapter.AgentContext
}

func (s *stubAgent) Generate(ctx context.Context, in adapter.AgentContext) (model.NegotiationDecision, error) {
	s.mu.Lock()
	s.calls = append(s.calls, in)
	s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.block != nil {
		<-s.block
	}
	return s.decision, s.err
}

type stubCompleter struct {
	reply string
	err   error
	block bool

	mu      sync.Mutex
	prompts []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

type stubMarket struct {
	analysis model.MarketAnalysis
	err      error
	panicMsg string
}

func (s *stubMarket) Analyze(ctx context.Context, q adapter.MarketQuery) (model.MarketAnalysis, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.analysis, s.err
}

type memDecisionLog struct {
	err      error
	panicMsg string

	mu      sync.Mutex
	entries []model.DecisionLogEntry
}

func (m *memDecisionLog) Append(ctx context.Context, e model.DecisionLogEntry) error {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memDecisionLog) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.DecisionLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DecisionLogEntry
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingObserver struct {
	mu           sync.Mutex
	decisions    []model.DecisionSource
	fallthroughs []string
}

func (r *recordingObserver) DecisionMade(source model.DecisionSource, _ model.ActionType, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, source)
}

func (r *recordingObserver) StageFallthrough(stage, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallthroughs = append(r.fallthroughs, stage+":"+reason)
}

func testProduct() model.Product {
	return model.Product{
		Reference:   "https://www.olx.in/item/iphone-13-iid-1",
		Title:       "iPhone 13",
		ListedPrice: 60000,
		Category:    "Mobile Phones",
	}
}

func testMarket() model.MarketAnalysis {
	return model.MarketAnalysis{
		Category:             "Mobile Phones",
		EstimatedValue:       58000,
		Range:                model.PriceRange{Min: 46400, Max: 69600},
		NegotiationPotential: 0.1,
		Position:             model.PositionAverage,
	}
}

func testState(seller string, history ...model.ChatMessage) TurnState {
	return TurnState{
		SessionID:     "sess-1",
		UserID:        "user-1",
		Product:       testProduct(),
		Params:        params(45000, 55000),
		History:       history,
		SellerMessage: seller,
		PreviousPhase: model.PhaseOpening,
	}
}

func buyer(text string) model.ChatMessage { return model.ChatMessage{Role: model.RoleBuyer, Content: text} }
func seller(text string) model.ChatMessage { return model.ChatMessage{Role: model.RoleSeller, Content: text} }
