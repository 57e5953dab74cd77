package market

import (
	"context"
	"testing"

	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/negotiation"
)

func TestLocalProvider(t *testing.T) {
	p := NewLocalProvider(negotiation.NewMarketEstimator(negotiation.DefaultCategoryTable(), nil))

	got, err := p.Analyze(context.Background(), adapter.MarketQuery{Title: "Samsung Galaxy phone", ListedPrice: 30000})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Category != "Mobile Phones" {
		t.Fatalf("category = %q", got.Category)
	}
	if got.EstimatedValue < 5000 || got.EstimatedValue > 150000 {
		t.Fatalf("estimate %d outside band", got.EstimatedValue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Analyze(ctx, adapter.MarketQuery{Title: "x"}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
