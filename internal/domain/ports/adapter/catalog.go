package adapter

import (
	"context"

	"negotiation-agent/internal/domain/model"
)

// ProductCatalog turns a listing URL or description into a Product.
// Implementations may return an estimated product with Verified=false.
type ProductCatalog interface {
	Resolve(ctx context.Context, reference string) (model.Product, error)
}

type MarketQuery struct {
	Category    string
	Title       string
	ListedPrice int64
}

// MarketDataProvider supplies fair-value estimates. Any caching lives here.
type MarketDataProvider interface {
	Analyze(ctx context.Context, q MarketQuery) (model.MarketAnalysis, error)
}
