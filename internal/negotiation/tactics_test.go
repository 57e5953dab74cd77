package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"negotiation-agent/internal/domain/model"
)

func TestTacticSelector_Posture(t *testing.T) {
	s := NewTacticSelector(0, 0)

	assert.Equal(t, PostureAggressive, s.Posture(30.5))
	assert.Equal(t, PostureCollaborative, s.Posture(30))
	assert.Equal(t, PostureCollaborative, s.Posture(15))
	assert.Equal(t, PostureClosing, s.Posture(14.9))
	assert.Equal(t, PostureClosing, s.Posture(-5))
}

func TestTacticSelector_Select(t *testing.T) {
	s := NewTacticSelector(30, 15)

	got := s.Select(40, model.SellerSignals{})
	assert.Equal(t, []model.Tactic{model.TacticAnchoring, model.TacticAlternativeOptions, model.TacticMarketComparison}, got)

	got = s.Select(5, model.SellerSignals{Urgency: true, Flexible: true})
	assert.Equal(t, []model.Tactic{
		model.TacticFinalOffer, model.TacticCommitmentSeeking, model.TacticMinorConcessions,
		model.TacticDeadlineLeverage, model.TacticCreativeSolutions,
	}, got)
}

func TestTacticSelector_SelectDoesNotShareBacking(t *testing.T) {
	s := NewTacticSelector(30, 15)
	got := s.Select(20, model.SellerSignals{})
	got[0] = "mutated"
	assert.Equal(t, model.TacticReciprocalConcessions, s.Select(20, model.SellerSignals{})[0])
}

func TestGapPercent(t *testing.T) {
	assert.InDelta(t, 17.5, GapPercent(60000, 49500), 1e-9)
	assert.Equal(t, 0.0, GapPercent(0, 49500))
}
