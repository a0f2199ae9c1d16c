package arbitrage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinwatch/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCatalog struct {
	items []domain.MarketItem
	err   error
}

func (f *fakeCatalog) PopularItems(ctx context.Context, gameCode string, limit int) ([]domain.MarketItem, error) {
	return f.items, f.err
}

// fakeQuotes maps item name to its listings; missing names are unlisted
// everywhere, names in failures fail the whole quote call.
type fakeQuotes struct {
	listings map[string][]domain.SourceListing
	srcErrs  map[string][]domain.SourceError
	failures map[string]error
}

func (f *fakeQuotes) Quotes(ctx context.Context, gameCode, itemName string, sources []string) ([]domain.SourceListing, []domain.SourceError, error) {
	if err, ok := f.failures[itemName]; ok {
		return nil, nil, err
	}
	return f.listings[itemName], f.srcErrs[itemName], nil
}

func catalogOf(names ...string) *fakeCatalog {
	items := make([]domain.MarketItem, len(names))
	for i, n := range names {
		items[i] = domain.MarketItem{Name: n, GameCode: "cs2", Source: "dmarket"}
	}
	return &fakeCatalog{items: items}
}

func usd(source string, amount float64) domain.SourceListing {
	return domain.SourceListing{Source: source, Price: domain.Price{Amount: amount, Currency: "USD"}}
}

func TestFindOpportunitiesThreshold(t *testing.T) {
	quotes := &fakeQuotes{listings: map[string][]domain.SourceListing{
		// 33.3% spread, included.
		"AK-47 | Redline": {usd("dmarket", 7.50), usd("steam", 10.00)},
		// 2% spread, below the 5% threshold.
		"AWP | Asiimov": {usd("dmarket", 50.00), usd("steam", 51.00)},
	}}
	f := NewFinder(quotes, catalogOf("AK-47 | Redline", "AWP | Asiimov"), Config{}, testLogger())

	opps, err := f.FindOpportunities(context.Background(), "cs2", 5.0, 10)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "AK-47 | Redline", opp.ItemName)
	assert.Equal(t, "dmarket", opp.BuyFrom)
	assert.Equal(t, "steam", opp.SellTo)
	assert.Equal(t, 7.50, opp.BuyPrice)
	assert.Equal(t, 10.00, opp.SellPrice)
	assert.InDelta(t, 33.33, opp.PriceDiffPercent, 0.01)
	assert.Equal(t, domain.ProfitHigh, opp.ProfitPotential)
	assert.Equal(t, "USD", opp.Currency)
	assert.NotEmpty(t, opp.ID)
}

func TestFindOpportunitiesMultipleSellSides(t *testing.T) {
	quotes := &fakeQuotes{listings: map[string][]domain.SourceListing{
		"AK-47 | Redline": {usd("bitskins", 10.60), usd("dmarket", 10.00), usd("steam", 12.00)},
	}}
	f := NewFinder(quotes, catalogOf("AK-47 | Redline"), Config{}, testLogger())

	opps, err := f.FindOpportunities(context.Background(), "cs2", 5.0, 10)
	require.NoError(t, err)
	// Buy side is always the cheapest source; each pricier source above the
	// threshold is its own candidate.
	require.Len(t, opps, 2)
	assert.Equal(t, "steam", opps[0].SellTo)    // 20% first
	assert.Equal(t, "bitskins", opps[1].SellTo) // 6%
	for _, o := range opps {
		assert.Equal(t, "dmarket", o.BuyFrom)
	}
}

func TestFindOpportunitiesSingleSourceSkipped(t *testing.T) {
	quotes := &fakeQuotes{listings: map[string][]domain.SourceListing{
		"AK-47 | Redline": {usd("dmarket", 10.00)},
	}}
	f := NewFinder(quotes, catalogOf("AK-47 | Redline"), Config{}, testLogger())

	opps, err := f.FindOpportunities(context.Background(), "cs2", 5.0, 10)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestFindOpportunitiesNonPositiveBuySkipped(t *testing.T) {
	quotes := &fakeQuotes{listings: map[string][]domain.SourceListing{
		"Broken": {usd("dmarket", 0), usd("steam", 10.00)},
	}}
	f := NewFinder(quotes, catalogOf("Broken"), Config{}, testLogger())

	opps, err := f.FindOpportunities(context.Background(), "cs2", 5.0, 10)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestFindOpportunitiesSortAndLimit(t *testing.T) {
	quotes := &fakeQuotes{listings: map[string][]domain.SourceListing{
		"A": {usd("dmarket", 10.00), usd("steam", 11.00)}, // 10%
		"B": {usd("dmarket", 10.00), usd("steam", 13.00)}, // 30%
		"C": {usd("dmarket", 10.00), usd("steam", 12.00)}, // 20%
	}}
	f := NewFinder(quotes, catalogOf("A", "B", "C"), Config{}, testLogger())

	opps, err := f.FindOpportunities(context.Background(), "cs2", 5.0, 2)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "B", opps[0].ItemName)
	assert.Equal(t, "C", opps[1].ItemName)
}

func TestScanReportCountsFailures(t *testing.T) {
	quotes := &fakeQuotes{
		listings: map[string][]domain.SourceListing{
			"Good": {usd("dmarket", 10.00), usd("steam", 12.00)},
			"Partial": {usd("dmarket", 10.00), usd("steam", 12.00)},
		},
		srcErrs: map[string][]domain.SourceError{
			"Partial": {{Source: "bitskins", Err: domain.ErrProviderUnavailable}},
		},
		failures: map[string]error{
			"Bad": errors.New("timeout"),
		},
	}
	f := NewFinder(quotes, catalogOf("Good", "Partial", "Bad"), Config{Concurrency: 1}, testLogger())

	opps, report, err := f.Scan(context.Background(), "cs2", 5.0, 0)
	require.NoError(t, err)
	assert.Len(t, opps, 2)
	assert.Equal(t, 3, report.ItemsScanned)
	assert.Equal(t, 2, report.QuoteFailures)
}

func TestScanCatalogFailure(t *testing.T) {
	boom := errors.New("catalog down")
	f := NewFinder(&fakeQuotes{}, &fakeCatalog{err: boom}, Config{}, testLogger())

	_, _, err := f.Scan(context.Background(), "cs2", 5.0, 10)
	assert.ErrorIs(t, err, boom)
}

func TestScanDedupesCatalogNames(t *testing.T) {
	quotes := &fakeQuotes{listings: map[string][]domain.SourceListing{
		"A": {usd("dmarket", 10.00), usd("steam", 12.00)},
	}}
	f := NewFinder(quotes, catalogOf("A", "A", " A ", ""), Config{}, testLogger())

	opps, report, err := f.Scan(context.Background(), "cs2", 5.0, 0)
	require.NoError(t, err)
	assert.Len(t, opps, 1)
	assert.Equal(t, 1, report.ItemsScanned)
}
