package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skinwatch/skinarb/internal/domain"
)

func TestComputeStatsSingleSource(t *testing.T) {
	stats := computeStats("x", "cs2", map[string]float64{"dmarket": 10}, nil, 2)

	assert.Equal(t, 10.0, stats.MinPrice)
	assert.Equal(t, 10.0, stats.MaxPrice)
	assert.Equal(t, 10.0, stats.MeanPrice)
	assert.Equal(t, 10.0, stats.MedianPrice)
	assert.Equal(t, "dmarket", stats.BestSource)
	// Volatility is undefined for one sample and reported as zero.
	assert.Zero(t, stats.PriceVolatility)
	// One of two queried sources answered, no volatility penalty.
	assert.InDelta(t, 0.5, stats.ConfidenceScore, 1e-9)
	assert.Equal(t, domain.TrendUnknown, stats.PriceTrend)
}

func TestComputeStatsVolatilityAndConfidence(t *testing.T) {
	prices := map[string]float64{"a": 10, "b": 12, "c": 9}
	stats := computeStats("x", "cs2", prices, nil, 3)

	// Sample stddev of {10, 12, 9} is sqrt(7/3) ≈ 1.5275; mean 31/3.
	assert.InDelta(t, 0.1478, stats.PriceVolatility, 0.001)
	assert.InDelta(t, 1*(1-stats.PriceVolatility), stats.ConfidenceScore, 1e-9)
}

func TestComputeStatsBestSourceTieBreak(t *testing.T) {
	stats := computeStats("x", "cs2", map[string]float64{"steam": 5, "dmarket": 5}, nil, 2)
	assert.Equal(t, "dmarket", stats.BestSource)
}

func TestMedianEvenCount(t *testing.T) {
	assert.Equal(t, 11.0, median([]float64{10, 12, 9, 13}))
	assert.Equal(t, 0.0, median(nil))
}

func TestTrendOf(t *testing.T) {
	day := func(n int) time.Time { return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC) }
	pts := func(prices ...float64) []domain.PricePoint {
		out := make([]domain.PricePoint, len(prices))
		for i, p := range prices {
			out[i] = domain.PricePoint{Price: p, Date: day(i + 1)}
		}
		return out
	}

	assert.Equal(t, domain.TrendRising, trendOf(pts(10, 10.5, 11)))
	assert.Equal(t, domain.TrendFalling, trendOf(pts(11, 10.5, 10)))
	assert.Equal(t, domain.TrendStable, trendOf(pts(10, 10.2)))
	assert.Equal(t, domain.TrendUnknown, trendOf(pts(10)))
	assert.Equal(t, domain.TrendUnknown, trendOf(nil))

	// Samples with no usable price or date are excluded before comparison.
	noisy := append(pts(10, 11), domain.PricePoint{Price: 0, Date: day(9)})
	assert.Equal(t, domain.TrendRising, trendOf(noisy))
}

func TestMergeLoosePolicy(t *testing.T) {
	items := []domain.MarketItem{
		item("dmarket", "AK-47 | Redline", 10),
		item("steam", "ak-47 |  redline", 12),
	}

	exact := mergeItems(items, MergeExact)
	assert.Len(t, exact, 2)

	loose := mergeItems(items, MergeLoose)
	assert.Len(t, loose, 1)
	// Display name keeps the first trimmed spelling seen.
	assert.Len(t, loose[0].Listings, 2)
}

func TestMergeOrderIndependent(t *testing.T) {
	forward := []domain.MarketItem{
		item("dmarket", "A", 1),
		item("steam", "A", 2),
		item("dmarket", "B", 3),
	}
	reversed := []domain.MarketItem{forward[2], forward[1], forward[0]}

	assert.Equal(t, mergeItems(forward, MergeExact), mergeItems(reversed, MergeExact))
}
