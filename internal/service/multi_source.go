// Package service exposes the multi-source market facade: search across
// marketplaces, aggregated item details, and arbitrage discovery, behind a
// single explicitly constructed object.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/skinwatch/skinarb/internal/aggregator"
	"github.com/skinwatch/skinarb/internal/domain"
)

const defaultConcurrencyLimit = 10

// OpportunityFinder is the slice of the finder the facade needs.
type OpportunityFinder interface {
	FindOpportunities(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, error)
}

// ItemDetails bundles aggregated statistics with the per-source errors
// encountered while computing them.
type ItemDetails struct {
	Stats  domain.AggregatedItemStats
	Errors []domain.SourceError
}

// MultiSourceProvider is the orchestration facade over the aggregator and the
// arbitrage finder. A single instance is constructed at startup and injected
// wherever market data is consumed; there is deliberately no package-level
// singleton.
type MultiSourceProvider struct {
	agg    *aggregator.Aggregator
	finder OpportunityFinder
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewMultiSourceProvider creates the facade. concurrencyLimit bounds how many
// aggregation calls may run at once; zero or negative selects the default.
func NewMultiSourceProvider(agg *aggregator.Aggregator, finder OpportunityFinder, concurrencyLimit int, logger *slog.Logger) *MultiSourceProvider {
	if concurrencyLimit <= 0 {
		concurrencyLimit = defaultConcurrencyLimit
	}
	return &MultiSourceProvider{
		agg:    agg,
		finder: finder,
		sem:    semaphore.NewWeighted(int64(concurrencyLimit)),
		logger: logger.With(slog.String("component", "multi_source")),
	}
}

// Sources returns the registered source ids.
func (m *MultiSourceProvider) Sources() []string {
	return m.agg.Sources()
}

// Search runs a cross-source item search.
func (m *MultiSourceProvider) Search(ctx context.Context, gameCode, query string, opts aggregator.SearchOptions) (aggregator.SearchResult, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return aggregator.SearchResult{}, fmt.Errorf("service: acquire slot: %w", err)
	}
	defer m.sem.Release(1)

	return m.agg.SearchAcrossSources(ctx, gameCode, query, opts)
}

// ItemDetails returns aggregated cross-source statistics for one item.
// sources may be nil to query every registered provider.
func (m *MultiSourceProvider) ItemDetails(ctx context.Context, gameCode, itemName string, sources []string) (ItemDetails, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return ItemDetails{}, fmt.Errorf("service: acquire slot: %w", err)
	}
	defer m.sem.Release(1)

	stats, srcErrs, err := m.agg.GetItemDetails(ctx, gameCode, itemName, sources)
	if err != nil {
		return ItemDetails{Errors: srcErrs}, err
	}
	return ItemDetails{Stats: stats, Errors: srcErrs}, nil
}

// ArbitrageOpportunities scans the catalog for cross-source price gaps of at
// least minDiffPercent and returns the best limit candidates.
func (m *MultiSourceProvider) ArbitrageOpportunities(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("service: acquire slot: %w", err)
	}
	defer m.sem.Release(1)

	opps, err := m.finder.FindOpportunities(ctx, gameCode, minDiffPercent, limit)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("arbitrage scan complete",
		slog.String("game", gameCode),
		slog.Float64("min_diff_percent", minDiffPercent),
		slog.Int("found", len(opps)),
	)
	return opps, nil
}
