package market

import (
	"context"

	"negotiation-agent/internal/domain/model"
	"negotiation-agent/internal/domain/ports/adapter"
	"negotiation-agent/internal/negotiation"
)

var _ adapter.MarketDataProvider = (*LocalProvider)(nil)

// LocalProvider answers from the in-process category table.
type LocalProvider struct {
	estimator *negotiation.MarketEstimator
}

func NewLocalProvider(est *negotiation.MarketEstimator) *LocalProvider {
	return &LocalProvider{estimator: est}
}

func (p *LocalProvider) Analyze(ctx context.Context, q adapter.MarketQuery) (model.MarketAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return model.MarketAnalysis{}, err
	}
	return p.estimator.Analyze(q.Category, q.Title, q.ListedPrice), nil
}
