package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinwatch/skinarb/internal/aggregator"
	"github.com/skinwatch/skinarb/internal/domain"
)

type fakeFinder struct {
	opps []domain.ArbitrageOpportunity
	err  error

	gotGame string
	gotDiff float64
	gotLim  int
}

func (f *fakeFinder) FindOpportunities(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, error) {
	f.gotGame, f.gotDiff, f.gotLim = gameCode, minDiffPercent, limit
	return f.opps, f.err
}

func newFacade(t *testing.T, finder OpportunityFinder, providers ...domain.MarketDataProvider) *MultiSourceProvider {
	t.Helper()
	agg := aggregator.New(aggregator.Config{}, testLogger())
	for _, p := range providers {
		require.NoError(t, agg.Register(p))
	}
	return NewMultiSourceProvider(agg, finder, 4, testLogger())
}

func TestFacadeSources(t *testing.T) {
	m := newFacade(t, &fakeFinder{},
		&fakeProvider{source: "steam"},
		&fakeProvider{source: "dmarket"},
	)
	assert.Equal(t, []string{"dmarket", "steam"}, m.Sources())
}

func TestFacadeSearch(t *testing.T) {
	m := newFacade(t, &fakeFinder{},
		&fakeProvider{source: "dmarket", item: liveItem()},
	)

	res, err := m.Search(context.Background(), "cs2", "ak", aggregator.SearchOptions{Merge: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "AK-47 | Redline", res.Items[0].Name)
}

func TestFacadeItemDetails(t *testing.T) {
	m := newFacade(t, &fakeFinder{},
		&fakeProvider{source: "dmarket", item: liveItem()},
	)

	det, err := m.ItemDetails(context.Background(), "cs2", "AK-47 | Redline", nil)
	require.NoError(t, err)
	assert.Equal(t, 10.00, det.Stats.MinPrice)
	assert.Equal(t, "dmarket", det.Stats.BestSource)
}

func TestFacadeItemDetailsNoData(t *testing.T) {
	m := newFacade(t, &fakeFinder{},
		&fakeProvider{source: "dmarket", itemErr: domain.ErrNotFound},
	)

	_, err := m.ItemDetails(context.Background(), "cs2", "Nonexistent", nil)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFacadeArbitrageOpportunitiesDelegates(t *testing.T) {
	finder := &fakeFinder{opps: []domain.ArbitrageOpportunity{{ItemName: "A"}}}
	m := newFacade(t, finder, &fakeProvider{source: "dmarket"})

	opps, err := m.ArbitrageOpportunities(context.Background(), "cs2", 7.5, 3)
	require.NoError(t, err)
	assert.Len(t, opps, 1)
	assert.Equal(t, "cs2", finder.gotGame)
	assert.Equal(t, 7.5, finder.gotDiff)
	assert.Equal(t, 3, finder.gotLim)
}
