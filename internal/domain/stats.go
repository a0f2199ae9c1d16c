package domain

import "time"

// PriceTrend is the categorical direction of an item's price over the
// available history window.
type PriceTrend string

const (
	TrendRising  PriceTrend = "rising"
	TrendFalling PriceTrend = "falling"
	TrendStable  PriceTrend = "stable"
	TrendUnknown PriceTrend = "unknown"
)

// AggregatedItemStats summarises the current cross-source price picture for
// one (game, item) pair. It is derived on every aggregation call and never
// cached by the aggregator itself.
//
// Invariants: MinPrice <= MeanPrice <= MaxPrice, and BestSource is the source
// whose price equals MinPrice (lexicographically smallest source on a tie).
type AggregatedItemStats struct {
	ItemName  string
	GameCode  string
	MeanPrice float64
	// MedianPrice is the middle price, or the average of the two middle
	// prices for an even source count.
	MedianPrice float64
	MinPrice    float64
	MaxPrice    float64
	BestSource  string
	// PriceVolatility is the coefficient of variation: sample standard
	// deviation of the current per-source prices divided by their mean.
	// Zero when fewer than two sources returned a price.
	PriceVolatility float64
	PriceTrend      PriceTrend
	// ConfidenceScore is in [0, 1]; it grows with the fraction of queried
	// sources that answered and shrinks with volatility.
	ConfidenceScore float64
	SourcesQueried  int
	SourcesReturned int
	// Prices holds the current price per responding source.
	Prices     map[string]float64
	ComputedAt time.Time
}
