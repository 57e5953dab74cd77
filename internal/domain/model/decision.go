package model

import (
	"fmt"
	"time"
)

type ActionType string

const (
	ActionOffer        ActionType = "offer"
	ActionCounterOffer ActionType = "counter_offer"
	ActionAccept       ActionType = "accept"
	ActionReject       ActionType = "reject"
	ActionQuestion     ActionType = "question"
	ActionFinalOffer   ActionType = "final_offer"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionOffer, ActionCounterOffer, ActionAccept, ActionReject, ActionQuestion, ActionFinalOffer:
		return true
	}
	return false
}

// RequiresPrice reports whether the action carries a buyer price.
func (a ActionType) RequiresPrice() bool {
	return a == ActionOffer || a == ActionCounterOffer || a == ActionFinalOffer
}

type Tactic string

const (
	TacticAnchoring             Tactic = "anchoring"
	TacticAlternativeOptions    Tactic = "alternative_options"
	TacticMarketComparison      Tactic = "market_comparison"
	TacticReciprocalConcessions Tactic = "reciprocal_concessions"
	TacticValueProposition      Tactic = "value_proposition"
	TacticRapportBuilding       Tactic = "rapport_building"
	TacticFinalOffer            Tactic = "final_offer"
	TacticCommitmentSeeking     Tactic = "commitment_seeking"
	TacticMinorConcessions      Tactic = "minor_concessions"
	TacticDeadlineLeverage      Tactic = "deadline_leverage"
	TacticCreativeSolutions     Tactic = "creative_solutions"
	TacticBasicInquiry          Tactic = "basic_inquiry"
)

type DecisionSource string

const (
	SourceAgent            DecisionSource = "agent"
	SourceHeuristic        DecisionSource = "heuristic"
	SourceHeuristicDefault DecisionSource = "heuristic_default"
	SourceEmergency        DecisionSource = "emergency"
)

// NegotiationDecision is the unit passed from the orchestrator to the renderer.
type NegotiationDecision struct {
	Action     ActionType     `json:"action_type"`
	PriceOffer *int64         `json:"price_offer,omitempty"`
	Confidence float64        `json:"confidence"`
	Message    string         `json:"message,omitempty"`
	Reasoning  string         `json:"reasoning"`
	Tactics    []Tactic       `json:"tactics_used"`
	NextSteps  []string       `json:"next_steps"`
	Source     DecisionSource `json:"source"`
	Phase      Phase          `json:"phase,omitempty"`
	Enhanced   bool           `json:"enhanced,omitempty"`
}

// Price returns the offer or 0 when the action carries none.
func (d NegotiationDecision) Price() int64 {
	if d.PriceOffer == nil {
		return 0
	}
	return *d.PriceOffer
}

// Validate checks the decision is well-formed for the given buyer constraints.
func (d NegotiationDecision) Validate(p UserParameters) error {
	if !d.Action.Valid() {
		return fmt.Errorf("unknown action %q", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range", d.Confidence)
	}
	if d.Action.RequiresPrice() && d.PriceOffer == nil {
		return fmt.Errorf("action %s requires a price", d.Action)
	}
	if d.PriceOffer != nil {
		if v := *d.PriceOffer; v < p.TargetPrice || v > p.MaxBudget {
			return fmt.Errorf("price %d outside [%d, %d]", v, p.TargetPrice, p.MaxBudget)
		}
	}
	if d.Source == "" {
		return fmt.Errorf("missing source")
	}
	return nil
}

func Price(v int64) *int64 { return &v }

// DecisionLogEntry is the audit record written for every decision.
type DecisionLogEntry struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	SessionID string              `json:"session_id"`
	UserID    string              `json:"user_id"`
	ProductID string              `json:"product_id"`
	Round     int                 `json:"round_number"`
	Decision  NegotiationDecision `json:"decision"`
}
