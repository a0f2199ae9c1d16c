package domain

import "time"

// ProfitPotential is a coarse grade of how attractive an opportunity is.
type ProfitPotential string

const (
	ProfitHigh   ProfitPotential = "high"
	ProfitMedium ProfitPotential = "medium"
)

// HighProfitDiffPercent is the price-difference percentage above which an
// opportunity is graded ProfitHigh.
const HighProfitDiffPercent = 15.0

// ArbitrageOpportunity is a candidate buy-low/sell-high pair for one item
// across two sources. Opportunities are created transiently per query and
// never mutated after creation.
//
// Invariants: SellPrice > BuyPrice and
// PriceDiffPercent = (SellPrice - BuyPrice) / BuyPrice * 100.
type ArbitrageOpportunity struct {
	ID               string
	ItemName         string
	GameCode         string
	BuyFrom          string
	BuyPrice         float64
	SellTo           string
	SellPrice        float64
	PriceDiff        float64
	PriceDiffPercent float64
	Currency         string
	ProfitPotential  ProfitPotential
	DetectedAt       time.Time
}

// Grade returns the profit grade for a price difference percentage.
func Grade(diffPercent float64) ProfitPotential {
	if diffPercent > HighProfitDiffPercent {
		return ProfitHigh
	}
	return ProfitMedium
}
