package aggregator

import (
	"math"
	"sort"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
)

// Statistic policy constants. The volatility and confidence formulas are a
// deliberate choice and are part of the package contract:
//
//	volatility = sample stddev(prices) / mean(prices)   (0 when n < 2)
//	confidence = (returned / queried) * (1 - min(1, volatility))
const (
	// trendThreshold is the relative move between the oldest and newest
	// historical price required to call a trend rising or falling.
	trendThreshold = 0.05

	// volatilityClamp caps the volatility term inside the confidence score
	// so a wildly disagreeing price set bottoms out at zero confidence.
	volatilityClamp = 1.0
)

// computeStats derives cross-source statistics from the current per-source
// prices and the combined price history. queried is the number of sources the
// call fanned out to; prices holds one entry per source that answered.
func computeStats(
	itemName, gameCode string,
	prices map[string]float64,
	history []domain.PricePoint,
	queried int,
) domain.AggregatedItemStats {
	stats := domain.AggregatedItemStats{
		ItemName:        itemName,
		GameCode:        gameCode,
		PriceTrend:      domain.TrendUnknown,
		SourcesQueried:  queried,
		SourcesReturned: len(prices),
		Prices:          prices,
		ComputedAt:      time.Now().UTC(),
	}
	if len(prices) == 0 {
		return stats
	}

	sources := make([]string, 0, len(prices))
	for s := range prices {
		sources = append(sources, s)
	}
	// Sorted iteration keeps min/max source attribution deterministic when
	// two sources tie on price.
	sort.Strings(sources)

	values := make([]float64, 0, len(sources))
	stats.MinPrice = math.Inf(1)
	stats.MaxPrice = math.Inf(-1)
	var sum float64
	for _, s := range sources {
		p := prices[s]
		values = append(values, p)
		sum += p
		if p < stats.MinPrice {
			stats.MinPrice = p
			stats.BestSource = s
		}
		if p > stats.MaxPrice {
			stats.MaxPrice = p
		}
	}

	stats.MeanPrice = sum / float64(len(values))
	stats.MedianPrice = median(values)
	stats.PriceVolatility = coefficientOfVariation(values, stats.MeanPrice)
	stats.PriceTrend = trendOf(history)

	completeness := 0.0
	if queried > 0 {
		completeness = float64(len(prices)) / float64(queried)
	}
	stats.ConfidenceScore = completeness * (1 - math.Min(volatilityClamp, stats.PriceVolatility))

	return stats
}

// median returns the middle value, averaging the two middles for an even
// count. The input is copied before sorting.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// coefficientOfVariation is the sample standard deviation normalized by the
// mean. Zero when fewer than two values or the mean is zero.
func coefficientOfVariation(values []float64, mean float64) float64 {
	if len(values) < 2 || mean == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	stddev := math.Sqrt(ss / float64(len(values)-1))
	return stddev / mean
}

// trendOf compares the oldest and newest historical samples across all
// sources. A move of more than trendThreshold in either direction is a trend;
// anything smaller is stable. No usable history yields TrendUnknown.
func trendOf(history []domain.PricePoint) domain.PriceTrend {
	valid := history[:0:0]
	for _, pt := range history {
		if pt.Price > 0 && !pt.Date.IsZero() {
			valid = append(valid, pt)
		}
	}
	if len(valid) < 2 {
		return domain.TrendUnknown
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Date.Before(valid[j].Date) })

	first, last := valid[0].Price, valid[len(valid)-1].Price
	switch {
	case last > first*(1+trendThreshold):
		return domain.TrendRising
	case last < first*(1-trendThreshold):
		return domain.TrendFalling
	default:
		return domain.TrendStable
	}
}
