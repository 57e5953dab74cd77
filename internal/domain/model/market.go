package model

type MarketPosition string

const (
	PositionPremium     MarketPosition = "premium_priced"
	PositionAboveMarket MarketPosition = "above_market"
	PositionAverage     MarketPosition = "market_average"
	PositionCompetitive MarketPosition = "competitive"
	PositionBelowMarket MarketPosition = "below_market"
)

type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// MarketAnalysis is derived on demand and never persisted on its own.
type MarketAnalysis struct {
	Category             string         `json:"category"`
	EstimatedValue       int64          `json:"estimated_market_value"`
	Range                PriceRange     `json:"price_range"`
	NegotiationPotential float64        `json:"negotiation_potential"`
	Position             MarketPosition `json:"market_position"`
	Insights             []string       `json:"insights,omitempty"`
}
