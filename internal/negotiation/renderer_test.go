//go:build !integration

package negotiation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"negotiation-agent/internal/domain/model"
)

func newTestRenderer(c *stubCompleter) *ResponseRenderer {
	if c == nil {
		return NewResponseRenderer(nil, DefaultLexicon(), nil, "₹", 50*time.Millisecond, nil)
	}
	return NewResponseRenderer(c, DefaultLexicon(), nil, "₹", 50*time.Millisecond, nil)
}

func offerInput(price int64, draft string) RenderInput {
	return RenderInput{
		Decision: model.NegotiationDecision{
			Action:     model.ActionOffer,
			PriceOffer: model.Price(price),
			Confidence: 0.75,
			Message:    draft,
			Source:     model.SourceHeuristic,
		},
		Product: testProduct(),
		Params:  params(45000, 55000),
		Round:   1,
	}
}

func TestRender_UsesGeneratedText(t *testing.T) {
	c := &stubCompleter{reply: `"Would ₹49,500 work? I can pick it up today."`}
	got := newTestRenderer(c).Render(t.Context(), offerInput(49500, ""))

	assert.Equal(t, RenderLLM, got.Source)
	assert.Equal(t, "Would ₹49,500 work? I can pick it up today.", got.Text)
	if assert.Len(t, c.prompts, 1) {
		assert.Contains(t, c.prompts[0], "₹49,500")
		assert.Contains(t, c.prompts[0], "balanced and respectful")
	}
}

func TestRender_RejectsDisclosure(t *testing.T) {
	c := &stubCompleter{reply: "As an AI assistant I'd suggest ₹49,500."}
	got := newTestRenderer(c).Render(t.Context(), offerInput(49500, ""))

	assert.Equal(t, RenderTemplate, got.Source)
	assert.Equal(t, "Hello! I came across your iPhone 13 and I'm quite interested. Would you consider ₹49,500 for it?", got.Text)
}

func TestRender_RejectsOutOfRangePrice(t *testing.T) {
	c := &stubCompleter{reply: "Would ₹60,000 work?"}
	got := newTestRenderer(c).Render(t.Context(), offerInput(49500, "How about ₹49,500?"))

	assert.Equal(t, RenderDraft, got.Source)
	assert.Equal(t, "How about ₹49,500?", got.Text)
}

func TestRender_RequiresExactOffer(t *testing.T) {
	c := &stubCompleter{reply: "Would ₹50,000 work?"}
	got := newTestRenderer(c).Render(t.Context(), offerInput(49500, ""))
	assert.Equal(t, RenderTemplate, got.Source)
	assert.Contains(t, got.Text, "₹49,500")
}

func TestRender_IgnoresNumbersInTitle(t *testing.T) {
	in := offerInput(49500, "")
	in.Product.Title = "Honda Activa 12000 km driven"
	c := &stubCompleter{reply: "Is the Honda Activa 12000 km driven still there for ₹49,500?"}

	got := newTestRenderer(c).Render(t.Context(), in)
	assert.Equal(t, RenderLLM, got.Source)
}

func TestRender_CompleterErrorFallsBackToTemplate(t *testing.T) {
	c := &stubCompleter{err: errors.New("boom")}
	in := offerInput(49500, "")
	in.Decision = model.NegotiationDecision{Action: model.ActionAccept, Confidence: 0.9, Source: model.SourceHeuristic}

	got := newTestRenderer(c).Render(t.Context(), in)
	assert.Equal(t, RenderTemplate, got.Source)
	assert.Equal(t, "That works for me, let's do it. When can I come to pick it up?", got.Text)
}

func TestRender_TimeoutFallsBack(t *testing.T) {
	c := &stubCompleter{block: true}
	got := newTestRenderer(c).Render(t.Context(), offerInput(49500, ""))
	assert.Equal(t, RenderTemplate, got.Source)
}

func TestRender_ClampsPriceBeforeRendering(t *testing.T) {
	got := newTestRenderer(nil).Render(t.Context(), offerInput(70000, ""))
	assert.Equal(t, RenderTemplate, got.Source)
	assert.Contains(t, got.Text, "₹55,000")
	assert.NotContains(t, got.Text, "70,000")
}

func TestRender_AcceptAboveBudgetLosesPrice(t *testing.T) {
	in := offerInput(0, "")
	in.Decision = model.NegotiationDecision{Action: model.ActionAccept, PriceOffer: model.Price(70000), Confidence: 0.9, Source: model.SourceAgent}

	got := newTestRenderer(nil).Render(t.Context(), in)
	assert.NotContains(t, got.Text, "70,000")
	assert.Equal(t, "That works for me, let's do it. When can I come to pick it up?", got.Text)
}
