package negotiation

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"negotiation-agent/internal/domain/model"
)

// MarketEstimator derives a fair value from category statistics.
// It makes no external calls and never fails.
type MarketEstimator struct {
	table  CategoryTable
	brands map[string]termSet
	isNew  termSet
	now    func() time.Time
}

func NewMarketEstimator(table CategoryTable, now func() time.Time) *MarketEstimator {
	if now == nil {
		now = time.Now
	}
	brands := make(map[string]termSet, len(table.BrandMultipliers))
	for k := range table.BrandMultipliers {
		brands[k] = compileTerms([]string{k})
	}
	return &MarketEstimator{table: table, brands: brands, isNew: compileTerms(table.NewKeywords), now: now}
}

// Analyze estimates fair value for a product. An empty category is
// inferred from the title; unknown categories use the generic band.
func (e *MarketEstimator) Analyze(category, title string, listed int64) model.MarketAnalysis {
	if category == "" {
		category = e.table.Categorize(title)
	}
	band, known := e.table.Band(category)
	words := tokenize(title)

	est := band.Median() * e.brandMultiplier(words) * (1 - e.depreciation(band, words))
	if listed > 0 && listed >= band.Min && float64(listed) <= float64(band.Max)*e.outlierMultiple() {
		est = (est + float64(listed)) / 2
	}
	value := clampInt(int64(math.Round(est)), band.Min, band.Max)

	a := model.MarketAnalysis{
		Category:       band.Name,
		EstimatedValue: value,
		Range: model.PriceRange{
			Min: maxInt(band.Min, int64(float64(value)*0.8)),
			Max: minInt(band.Max, int64(float64(value)*1.2)),
		},
		NegotiationPotential: negotiationPotential(listed, value),
		Position:             marketPosition(listed, value),
	}
	a.Insights = insights(listed, value, known)
	return a
}

func (e *MarketEstimator) brandMultiplier(words []string) float64 {
	best := 1.0
	for name, terms := range e.brands {
		if m := e.table.BrandMultipliers[name]; m > best && terms.matchIn(words) {
			best = m
		}
	}
	if limit := e.table.MaxBrandMultiplier; limit >= 1 && best > limit {
		best = limit
	}
	return best
}

// depreciation uses the most recent plausible year token in the title,
// or DefaultAgeYears when none is present.
func (e *MarketEstimator) depreciation(band CategoryBand, words []string) float64 {
	if e.isNew.matchIn(words) {
		return 0
	}
	current := e.now().Year()
	age := e.table.DefaultAgeYears
	latest := 0
	for _, w := range words {
		if len(w) != 4 {
			continue
		}
		y, err := strconv.Atoi(w)
		if err != nil || y < 1980 || y > current {
			continue
		}
		if y > latest {
			latest = y
		}
	}
	if latest > 0 {
		age = current - latest
	}
	d := band.Depreciation * float64(age)
	if limit := e.table.MaxDepreciation; limit > 0 && d > limit {
		d = limit
	}
	return d
}

func (e *MarketEstimator) outlierMultiple() float64 {
	if e.table.OutlierMultiple <= 0 {
		return 1.5
	}
	return e.table.OutlierMultiple
}

func negotiationPotential(listed, estimate int64) float64 {
	if estimate <= 0 {
		return 0.15
	}
	over := float64(listed-estimate) / float64(estimate)
	if over < 0 {
		over = 0
	}
	return math.Min(0.3, 0.1+0.5*over)
}

func marketPosition(listed, estimate int64) model.MarketPosition {
	if listed <= 0 || estimate <= 0 {
		return model.PositionAverage
	}
	ratio := float64(listed) / float64(estimate)
	switch {
	case ratio > 1.3:
		return model.PositionPremium
	case ratio > 1.1:
		return model.PositionAboveMarket
	case ratio < 0.8:
		return model.PositionBelowMarket
	case ratio < 0.9:
		return model.PositionCompetitive
	default:
		return model.PositionAverage
	}
}

func insights(listed, estimate int64, knownCategory bool) []string {
	var out []string
	if !knownCategory {
		out = append(out, "Category not recognised; generic price band used")
	}
	if listed <= 0 || estimate <= 0 {
		return out
	}
	diff := float64(listed-estimate) / float64(estimate) * 100
	switch {
	case diff > 25:
		out = append(out, fmt.Sprintf("Significantly overpriced by %.0f%%", diff))
	case diff > 10:
		out = append(out, fmt.Sprintf("Moderately overpriced by %.0f%%", diff))
	case diff < -10:
		out = append(out, fmt.Sprintf("Priced %.0f%% below market", -diff))
	default:
		out = append(out, "Priced close to market value")
	}
	return out
}

func clampInt(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
