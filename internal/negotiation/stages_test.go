package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"negotiation-agent/internal/domain/model"
)

func TestSanitize(t *testing.T) {
	p := params(45000, 55000)

	d, err := sanitize(model.NegotiationDecision{Action: model.ActionAccept, PriceOffer: model.Price(40000), Confidence: 0.9, Source: model.SourceAgent}, p)
	require.NoError(t, err)
	assert.Nil(t, d.PriceOffer, "accepting below target states no buyer price")
	assert.Equal(t, []string{"confirm_pickup_details", "arrange_payment"}, d.NextSteps)

	d, err = sanitize(model.NegotiationDecision{Action: model.ActionQuestion, PriceOffer: model.Price(50000), Confidence: 0.7, Source: model.SourceAgent}, p)
	require.NoError(t, err)
	assert.Nil(t, d.PriceOffer)
	assert.NotNil(t, d.Tactics)

	d, err = sanitize(model.NegotiationDecision{Action: model.ActionFinalOffer, PriceOffer: model.Price(1000), Confidence: 0.7, Source: model.SourceAgent}, p)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), d.Price())

	_, err = sanitize(model.NegotiationDecision{Action: model.ActionAccept, PriceOffer: model.Price(56000), Confidence: 0.9, Source: model.SourceAgent}, p)
	assert.ErrorIs(t, err, ErrStageUnavailable)
}

func TestAgentStage_Unavailable(t *testing.T) {
	_, err := NewAgentStage(nil, 0).Decide(t.Context(), Turn{State: testState("")})
	assert.ErrorIs(t, err, ErrStageUnavailable)
}

func TestHeuristicStage_NeedsMarket(t *testing.T) {
	s := NewHeuristicStage(newTestEngine())
	_, err := s.Decide(t.Context(), Turn{State: testState("")})
	assert.ErrorIs(t, err, ErrStageUnavailable)

	m := testMarket()
	d, err := s.Decide(t.Context(), Turn{State: testState(""), Market: &m})
	require.NoError(t, err)
	assert.Equal(t, model.SourceHeuristic, d.Source)
}
