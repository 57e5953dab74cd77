package adapter

import (
	"context"

	"negotiation-agent/internal/domain/model"
)

// AgentContext is the structured view handed to the primary negotiation agent.
type AgentContext struct {
	SessionID      string
	UserID         string
	Product        model.Product
	Params         model.UserParameters
	History        []model.ChatMessage
	SellerMessage  string
	Market         *model.MarketAnalysis
	Phase          model.Phase
	Signals        model.SellerSignals
	Tactics        []model.Tactic
	Round          int
	SuggestedOffer int64
}

// NegotiationAgent produces a full structured decision, usually backed by an LLM.
type NegotiationAgent interface {
	Generate(ctx context.Context, in AgentContext) (model.NegotiationDecision, error)
}

// TextCompleter is a plain prompt-in, text-out generator.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
