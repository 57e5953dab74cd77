package negotiation

import (
	"context"
	"errors"
	"fmt"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
)

var (
	// ErrStageUnavailable means a stage cannot run for this turn.
	ErrStageUnavailable = errors.New("decision stage unavailable")
	// ErrLowConfidence means a stage answered below its acceptance threshold.
	ErrLowConfidence = errors.New("decision confidence below threshold")
)

// Turn carries the per-turn inputs prepared by the orchestrator.
type Turn struct {
	State      TurnState
	Market     *model.MarketAnalysis
	Assessment *Assessment
}

// Stage is one tier of the decision chain. It returns a decision or an error;
// errors fall through to the next stage.
type Stage interface {
	Name() string
	Decide(ctx context.Context, turn Turn) (model.NegotiationDecision, error)
}

// AgentStage asks the primary negotiation agent.
type AgentStage struct {
	agent     adapter.NegotiationAgent
	threshold float64
}

func NewAgentStage(agent adapter.NegotiationAgent, threshold float64) *AgentStage {
	if threshold <= 0 {
		threshold = 0.6
	}
	return &AgentStage{agent: agent, threshold: threshold}
}

func (s *AgentStage) Name() string { return "agent" }

func (s *AgentStage) Decide(ctx context.Context, turn Turn) (model.NegotiationDecision, error) {
	if s.agent == nil {
		return model.NegotiationDecision{}, ErrStageUnavailable
	}
	in := adapter.AgentContext{
		SessionID:     turn.State.SessionID,
		UserID:        turn.State.UserID,
		Product:       turn.State.Product,
		Params:        turn.State.Params,
		History:       turn.State.History,
		SellerMessage: turn.State.SellerMessage,
		Market:        turn.Market,
		Phase:         turn.State.PreviousPhase,
		Round:         turn.State.Round(),
	}
	if a := turn.Assessment; a != nil {
		in.Phase = a.Phase
		in.Signals = a.Signals
		in.Tactics = a.Tactics
		in.SuggestedOffer = a.Offer
	}
	d, err := s.agent.Generate(ctx, in)
	if err != nil {
		return model.NegotiationDecision{}, err
	}
	if d.Confidence <= s.threshold {
		return model.NegotiationDecision{}, fmt.Errorf("%w: %.2f", ErrLowConfidence, d.Confidence)
	}
	d.Source = model.SourceAgent
	if d.Phase == "" {
		d.Phase = in.Phase
	}
	return sanitize(d, turn.State.Params)
}

// sanitize forces an agent decision into the buyer's bounds. Prices on
// offers are clamped; an acceptance above budget is refused outright.
func sanitize(d model.NegotiationDecision, p model.UserParameters) (model.NegotiationDecision, error) {
	switch {
	case d.Action.RequiresPrice():
		if d.PriceOffer == nil {
			return d, fmt.Errorf("%w: %s without price", ErrStageUnavailable, d.Action)
		}
		d.PriceOffer = model.Price(p.Clamp(*d.PriceOffer))
	case d.Action == model.ActionAccept:
		if d.PriceOffer != nil {
			v := *d.PriceOffer
			if v > p.MaxBudget {
				return d, fmt.Errorf("%w: accept at %d above budget", ErrStageUnavailable, v)
			}
			if v < p.TargetPrice {
				d.PriceOffer = nil
			}
		}
	default:
		d.PriceOffer = nil
	}
	if d.Tactics == nil {
		d.Tactics = []model.Tactic{}
	}
	if len(d.NextSteps) == 0 {
		d.NextSteps = nextSteps(d.Action)
	}
	return d, d.Validate(p)
}

// HeuristicStage is the deterministic baseline. It needs market context;
// any panic inside it becomes DefaultDecision.
type HeuristicStage struct {
	engine *HeuristicEngine
}

func NewHeuristicStage(engine *HeuristicEngine) *HeuristicStage {
	return &HeuristicStage{engine: engine}
}

func (s *HeuristicStage) Name() string { return "heuristic" }

func (s *HeuristicStage) Decide(_ context.Context, turn Turn) (d model.NegotiationDecision, err error) {
	if s.engine == nil || turn.Market == nil {
		return model.NegotiationDecision{}, ErrStageUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			d, err = DefaultDecision(turn.State.PreviousPhase), nil
		}
	}()
	a := turn.Assessment
	if a == nil {
		fresh := s.engine.Assess(turn.State, *turn.Market)
		a = &fresh
	}
	d = s.engine.Decide(turn.State, *a)
	if verr := d.Validate(turn.State.Params); verr != nil {
		return DefaultDecision(turn.State.PreviousPhase), nil
	}
	return d, nil
}
