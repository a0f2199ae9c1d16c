// Package arbitrage enumerates profitable buy/sell pairs for items listed on
// two or more marketplaces at diverging prices.
package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skinwatch/skinarb/internal/domain"
)

const (
	defaultCatalogSize = 100
	defaultConcurrency = 8
)

// QuoteSource supplies the current per-source prices for one item. The
// aggregator satisfies this.
type QuoteSource interface {
	Quotes(ctx context.Context, gameCode, itemName string, sources []string) ([]domain.SourceListing, []domain.SourceError, error)
}

// CatalogSource supplies the item catalog to scan. The primary marketplace
// provider satisfies this directly.
type CatalogSource interface {
	PopularItems(ctx context.Context, gameCode string, limit int) ([]domain.MarketItem, error)
}

// Config holds finder tuning parameters.
type Config struct {
	// CatalogSize caps how many popular items are examined per scan.
	CatalogSize int
	// Concurrency bounds how many items are quoted in parallel.
	Concurrency int
}

// Finder scans a catalog of items and, for each one listed on at least two
// sources, emits every (min-price source, higher-price source) pair whose
// relative difference clears the caller's threshold.
type Finder struct {
	quotes  QuoteSource
	catalog CatalogSource
	cfg     Config
	logger  *slog.Logger
}

// NewFinder creates a Finder over the given quote and catalog sources.
func NewFinder(quotes QuoteSource, catalog CatalogSource, cfg Config, logger *slog.Logger) *Finder {
	if cfg.CatalogSize <= 0 {
		cfg.CatalogSize = defaultCatalogSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Finder{
		quotes:  quotes,
		catalog: catalog,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "arb_finder")),
	}
}

// Report summarises one catalog sweep for operational bookkeeping.
type Report struct {
	// ItemsScanned is how many distinct catalog items were quoted.
	ItemsScanned int
	// QuoteFailures counts items whose quotes could not be fetched at all,
	// plus individual source failures on items that were otherwise quoted.
	QuoteFailures int
}

// FindOpportunities scans the catalog for gameCode and returns at most limit
// opportunities whose price difference is at least minDiffPercent, sorted
// descending by difference percentage (ties: larger absolute difference
// first, then item name, then selling source, ascending).
//
// Items listed on fewer than two sources are skipped, as are quotes with a
// non-positive buy price. Per-item quote failures are logged and skipped;
// only a catalog fetch failure fails the scan.
func (f *Finder) FindOpportunities(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, error) {
	opps, _, err := f.Scan(ctx, gameCode, minDiffPercent, limit)
	return opps, err
}

// Scan is FindOpportunities plus a Report of how the sweep went.
func (f *Finder) Scan(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, Report, error) {
	items, err := f.catalog.PopularItems(ctx, gameCode, f.cfg.CatalogSize)
	if err != nil {
		return nil, Report{}, fmt.Errorf("arbitrage: fetch catalog for %q: %w", gameCode, err)
	}

	names := dedupeNames(items)
	if len(names) == 0 {
		return nil, Report{}, nil
	}

	var (
		mu       sync.Mutex
		opps     []domain.ArbitrageOpportunity
		failures int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for _, name := range names {
		g.Go(func() error {
			listings, srcErrs, err := f.quotes.Quotes(gctx, gameCode, name, nil)
			if err != nil {
				f.logger.Warn("quote fetch failed, skipping item",
					slog.String("item", name),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			for _, se := range srcErrs {
				f.logger.Debug("partial quote failure",
					slog.String("item", name),
					slog.String("source", se.Source),
					slog.String("error", se.Err.Error()),
				)
			}

			found := pairsFor(gameCode, name, listings, minDiffPercent)
			mu.Lock()
			failures += len(srcErrs)
			opps = append(opps, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	sortOpportunities(opps)
	if limit > 0 && len(opps) > limit {
		opps = opps[:limit]
	}
	return opps, Report{ItemsScanned: len(names), QuoteFailures: failures}, nil
}

// pairsFor builds the opportunity candidates for one item from its current
// per-source listings. The buy side is always the cheapest source; every
// other source priced strictly above it is a sell candidate.
func pairsFor(gameCode, name string, listings []domain.SourceListing, minDiffPercent float64) []domain.ArbitrageOpportunity {
	if len(listings) < 2 {
		return nil
	}

	buy := listings[0]
	for _, l := range listings[1:] {
		// Listings arrive sorted by source, so on a price tie the
		// lexicographically smallest source stays the buy side.
		if l.Price.Amount < buy.Price.Amount {
			buy = l
		}
	}
	if buy.Price.Amount <= 0 {
		return nil
	}

	now := time.Now().UTC()
	var out []domain.ArbitrageOpportunity
	for _, sell := range listings {
		if sell.Source == buy.Source || sell.Price.Amount <= buy.Price.Amount {
			continue
		}
		diff := sell.Price.Amount - buy.Price.Amount
		diffPct := diff / buy.Price.Amount * 100
		if diffPct < minDiffPercent {
			continue
		}
		out = append(out, domain.ArbitrageOpportunity{
			ID:               uuid.New().String(),
			ItemName:         name,
			GameCode:         gameCode,
			BuyFrom:          buy.Source,
			BuyPrice:         buy.Price.Amount,
			SellTo:           sell.Source,
			SellPrice:        sell.Price.Amount,
			PriceDiff:        diff,
			PriceDiffPercent: diffPct,
			Currency:         buy.Price.Currency,
			ProfitPotential:  domain.Grade(diffPct),
			DetectedAt:       now,
		})
	}
	return out
}

// sortOpportunities orders candidates best-first with a fully deterministic
// tie-break chain.
func sortOpportunities(opps []domain.ArbitrageOpportunity) {
	sort.Slice(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.PriceDiffPercent != b.PriceDiffPercent {
			return a.PriceDiffPercent > b.PriceDiffPercent
		}
		if a.PriceDiff != b.PriceDiff {
			return a.PriceDiff > b.PriceDiff
		}
		if a.ItemName != b.ItemName {
			return a.ItemName < b.ItemName
		}
		return a.SellTo < b.SellTo
	})
}

// dedupeNames extracts unique, non-empty trimmed item names from the catalog,
// preserving first-seen order.
func dedupeNames(items []domain.MarketItem) []string {
	seen := make(map[string]bool, len(items))
	var names []string
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
