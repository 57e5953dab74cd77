package negotiation

import "negotiation-agent/internal/domain/model"

type Posture string

const (
	PostureAggressive    Posture = "aggressive"
	PostureCollaborative Posture = "collaborative"
	PostureClosing       Posture = "closing"
)

var postureTactics = map[Posture][]model.Tactic{
	PostureAggressive:    {model.TacticAnchoring, model.TacticAlternativeOptions, model.TacticMarketComparison},
	PostureCollaborative: {model.TacticReciprocalConcessions, model.TacticValueProposition, model.TacticRapportBuilding},
	PostureClosing:       {model.TacticFinalOffer, model.TacticCommitmentSeeking, model.TacticMinorConcessions},
}

// TacticSelector picks rhetorical tactics from the price gap. The result is
// advisory and never changes the offer.
type TacticSelector struct {
	AggressiveAbove   float64 // gap percent strictly above this is aggressive
	CollaborativeFrom float64 // gap percent at or above this is collaborative
}

func NewTacticSelector(aggressiveAbove, collaborativeFrom float64) TacticSelector {
	if aggressiveAbove <= 0 {
		aggressiveAbove = 30
	}
	if collaborativeFrom <= 0 || collaborativeFrom > aggressiveAbove {
		collaborativeFrom = 15
	}
	return TacticSelector{AggressiveAbove: aggressiveAbove, CollaborativeFrom: collaborativeFrom}
}

func (s TacticSelector) Posture(gapPct float64) Posture {
	switch {
	case gapPct > s.AggressiveAbove:
		return PostureAggressive
	case gapPct >= s.CollaborativeFrom:
		return PostureCollaborative
	default:
		return PostureClosing
	}
}

// Select returns the three posture tactics followed by any signal extras.
func (s TacticSelector) Select(gapPct float64, signals model.SellerSignals) []model.Tactic {
	base := postureTactics[s.Posture(gapPct)]
	out := make([]model.Tactic, 0, len(base)+2)
	out = append(out, base...)
	if signals.Urgency {
		out = append(out, model.TacticDeadlineLeverage)
	}
	if signals.Flexible {
		out = append(out, model.TacticCreativeSolutions)
	}
	return out
}

// GapPercent is how far offer sits below ask, as a percentage of ask.
func GapPercent(ask, offer int64) float64 {
	if ask <= 0 {
		return 0
	}
	return float64(ask-offer) / float64(ask) * 100
}
