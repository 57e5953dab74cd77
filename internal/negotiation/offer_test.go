package negotiation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"negotiation-agent/internal/domain/model"
)

func params(target, max int64) model.UserParameters {
	return model.UserParameters{TargetPrice: target, MaxBudget: max, Approach: model.ApproachDiplomatic}
}

func TestOfferStrategy_OpeningRound(t *testing.T) {
	got := OfferStrategy{}.Next(OfferInput{Params: params(45000, 55000), Listed: 60000, Round: 1})
	assert.Equal(t, int64(49500), got)
}

func TestOfferStrategy_ZeroSlack(t *testing.T) {
	for round := 1; round <= 8; round++ {
		got := OfferStrategy{}.Next(OfferInput{Params: params(50000, 50000), Listed: 80000, Round: round})
		assert.Equal(t, int64(50000), got, "round %d", round)
	}
}

func TestOfferStrategy_MiddleRound(t *testing.T) {
	got := OfferStrategy{}.Next(OfferInput{Params: params(40000, 60000), Listed: 50000, Round: 3})
	assert.Equal(t, int64(54000), got)

	got = OfferStrategy{}.Next(OfferInput{Params: params(40000, 52000), Listed: 50000, Round: 3})
	assert.Equal(t, int64(52000), got, "clamped to max budget")
}

func TestOfferStrategy_ReferenceFallsBackToFairValue(t *testing.T) {
	got := OfferStrategy{}.Next(OfferInput{Params: params(40000, 60000), FairValue: 50000, Round: 3})
	assert.Equal(t, int64(54000), got)
}

func TestOfferStrategy_FloorAtPreviousOffer(t *testing.T) {
	got := OfferStrategy{}.Next(OfferInput{Params: params(45000, 55000), Listed: 60000, Round: 1, Floor: 53000})
	assert.Equal(t, int64(53000), got)
}

func TestOfferStrategy_AlwaysWithinBudgetAndMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := OfferStrategy{}

	for i := 0; i < 5000; i++ {
		target := 1000 + rng.Int63n(200000)
		max := target + rng.Int63n(100000)
		listed := rng.Int63n(400000)
		p := params(target, max)

		prev := int64(0)
		for round := 1; round <= 7; round++ {
			got := s.Next(OfferInput{Params: p, Listed: listed, Round: round})
			require.GreaterOrEqual(t, got, target, "t=%d m=%d l=%d r=%d", target, max, listed, round)
			require.LessOrEqual(t, got, max, "t=%d m=%d l=%d r=%d", target, max, listed, round)
			require.GreaterOrEqual(t, got, prev, "t=%d m=%d l=%d r=%d", target, max, listed, round)
			prev = got
		}
	}
}

func TestOfferStrategy_Bump(t *testing.T) {
	p := params(45000, 55000)
	assert.Equal(t, int64(54450), OfferStrategy{}.Bump(49500, p))
	assert.Equal(t, int64(55000), OfferStrategy{}.Bump(54000, p))
	assert.Equal(t, int64(45000), OfferStrategy{}.Bump(0, p))
}

func TestStageForRound(t *testing.T) {
	assert.Equal(t, StageOpening, StageForRound(1))
	assert.Equal(t, StageOpening, StageForRound(2))
	assert.Equal(t, StageMiddle, StageForRound(3))
	assert.Equal(t, StageMiddle, StageForRound(4))
	assert.Equal(t, StageClosing, StageForRound(5))
	assert.Equal(t, StageClosing, StageForRound(12))
}
