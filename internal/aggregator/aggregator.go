// Package aggregator fans market queries out to every registered marketplace
// provider concurrently and combines the answers into a single queryable
// view: merged search results, per-item cross-source quotes, and aggregated
// price statistics.
//
// Provider failures are never fatal to a call. Each failing source is
// excluded from the result set and recorded in the returned error list; only
// a total failure (no source returned any data) fails the call itself.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skinwatch/skinarb/internal/domain"
)

const (
	defaultProviderTimeout = 10 * time.Second
	defaultHistoryDays     = 30
	defaultSearchLimit     = 20
)

// Config holds aggregator tuning parameters.
type Config struct {
	// ProviderTimeout bounds each individual provider call during a fan-out.
	ProviderTimeout time.Duration
	// MergePolicy selects how item names are matched across sources.
	MergePolicy MergePolicy
	// HistoryDays is the price-history window requested from providers.
	HistoryDays int
}

func (c Config) withDefaults() Config {
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = defaultProviderTimeout
	}
	if !c.MergePolicy.Valid() {
		c.MergePolicy = MergeExact
	}
	if c.HistoryDays <= 0 {
		c.HistoryDays = defaultHistoryDays
	}
	return c
}

// Aggregator owns the provider registry and implements the fan-out calls.
// It is safe for concurrent use.
type Aggregator struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	providers map[string]domain.MarketDataProvider
}

// New returns an empty Aggregator ready for provider registration.
func New(cfg Config, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		cfg:       cfg.withDefaults(),
		logger:    logger.With(slog.String("component", "aggregator")),
		providers: make(map[string]domain.MarketDataProvider),
	}
}

// Register adds a provider under its source id. Registering the same source
// twice is a setup error and returns domain.ErrDuplicateSource; providers are
// never silently overwritten.
func (a *Aggregator) Register(p domain.MarketDataProvider) error {
	source := p.Source()
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.providers[source]; ok {
		return fmt.Errorf("register %q: %w", source, domain.ErrDuplicateSource)
	}
	a.providers[source] = p
	a.logger.Info("provider registered", slog.String("source", source))
	return nil
}

// Provider returns the registered provider for a source id, or
// domain.ErrNotFound.
func (a *Aggregator) Provider(source string) (domain.MarketDataProvider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.providers[source]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", source, domain.ErrNotFound)
	}
	return p, nil
}

// Sources returns all registered source ids in sorted order.
func (a *Aggregator) Sources() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.providers))
	for s := range a.providers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// resolve maps requested source ids to providers, defaulting to all
// registered providers. Unknown ids are reported as per-source errors rather
// than failing the call. The returned slice is sorted by source id so that
// dispatch and error order are deterministic.
func (a *Aggregator) resolve(sources []string) ([]domain.MarketDataProvider, []domain.SourceError) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(sources))
	if len(sources) == 0 {
		for s := range a.providers {
			ids = append(ids, s)
		}
	} else {
		// Copy before sorting; callers keep their argument order.
		ids = append(ids, sources...)
	}
	sort.Strings(ids)

	var (
		providers []domain.MarketDataProvider
		errs      []domain.SourceError
	)
	for _, s := range ids {
		p, ok := a.providers[s]
		if !ok {
			errs = append(errs, domain.SourceError{Source: s, Err: domain.ErrNotFound})
			continue
		}
		providers = append(providers, p)
	}
	return providers, errs
}

// SearchOptions control a cross-source search.
type SearchOptions struct {
	// Sources restricts the fan-out; empty means all registered providers.
	Sources []string
	// Limit caps both the per-provider request and the final result set.
	Limit int
	// Merge combines same-name items across sources into MergedItems; when
	// false the results stay flat, tagged by source.
	Merge bool
}

// SearchResult is the outcome of SearchAcrossSources. Exactly one of Items
// (merged view) or BySource (flat view) is populated, per SearchOptions.Merge.
type SearchResult struct {
	Query      string
	GameCode   string
	TotalItems int
	Sources    []string
	Items      []domain.MergedItem
	BySource   map[string][]domain.MarketItem
	Errors     []domain.SourceError
}

// SearchAcrossSources dispatches the query to every resolved provider in
// parallel, each under its own timeout. Results are collected first and
// merged after all fetches complete, so provider dispatch order never affects
// the output.
func (a *Aggregator) SearchAcrossSources(ctx context.Context, gameCode, query string, opts SearchOptions) (SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultSearchLimit
	}

	providers, srcErrs := a.resolve(opts.Sources)
	result := SearchResult{
		Query:    query,
		GameCode: gameCode,
		Errors:   srcErrs,
	}
	for _, p := range providers {
		result.Sources = append(result.Sources, p.Source())
	}
	if len(providers) == 0 {
		return result, fmt.Errorf("search %q/%q: no providers: %w", gameCode, query, domain.ErrNoData)
	}

	type outcome struct {
		source string
		items  []domain.MarketItem
		err    error
	}
	outcomes := make([]outcome, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, a.cfg.ProviderTimeout)
			defer cancel()
			items, err := p.SearchItems(tctx, gameCode, query, opts.Limit)
			outcomes[i] = outcome{source: p.Source(), items: items, err: err}
			return nil
		})
	}
	_ = g.Wait() // goroutines record their own outcome and never fail the group

	// A caller-side cancellation discards any partial results.
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}

	var all []domain.MarketItem
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			a.logger.Warn("search: provider failed",
				slog.String("source", o.source),
				slog.String("query", query),
				slog.String("error", o.err.Error()),
			)
			result.Errors = append(result.Errors, domain.SourceError{Source: o.source, Err: o.err})
			continue
		}
		all = append(all, o.items...)
	}
	if failed == len(providers) {
		return result, fmt.Errorf("search %q/%q: all %d providers failed: %w",
			gameCode, query, failed, domain.ErrNoData)
	}

	if opts.Merge {
		merged := mergeItems(all, a.cfg.MergePolicy)
		if len(merged) > opts.Limit {
			merged = merged[:opts.Limit]
		}
		result.Items = merged
		result.TotalItems = len(merged)
		return result, nil
	}

	result.BySource = make(map[string][]domain.MarketItem, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		result.BySource[o.source] = o.items
		result.TotalItems += len(o.items)
	}
	return result, nil
}

// Quotes returns the current per-source prices for one item, sorted by
// source. Sources that do not list the item are simply absent; sources that
// error or report an unusable price are recorded in the error list. An empty
// quote set with no error means the item is listed nowhere.
func (a *Aggregator) Quotes(ctx context.Context, gameCode, itemName string, sources []string) ([]domain.SourceListing, []domain.SourceError, error) {
	providers, srcErrs := a.resolve(sources)
	if len(providers) == 0 {
		return nil, srcErrs, fmt.Errorf("quotes %q/%q: no providers: %w", gameCode, itemName, domain.ErrNoData)
	}

	type outcome struct {
		source string
		item   domain.MarketItem
		err    error
	}
	outcomes := make([]outcome, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, a.cfg.ProviderTimeout)
			defer cancel()
			item, err := p.GetItem(tctx, gameCode, itemName)
			outcomes[i] = outcome{source: p.Source(), item: item, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var listings []domain.SourceListing
	for _, o := range outcomes {
		switch {
		case errors.Is(o.err, domain.ErrNotFound):
			// Not listed on this source; not a failure.
		case o.err != nil:
			srcErrs = append(srcErrs, domain.SourceError{Source: o.source, Err: o.err})
		case o.item.Price.Amount <= 0:
			a.logger.Warn("quotes: skipping unusable price",
				slog.String("source", o.source),
				slog.String("item", itemName),
				slog.Float64("price", o.item.Price.Amount),
			)
			srcErrs = append(srcErrs, domain.SourceError{Source: o.source, Err: domain.ErrInvalidPrice})
		default:
			listings = append(listings, domain.SourceListing{Source: o.source, Price: o.item.Price})
		}
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Source < listings[j].Source })
	return listings, srcErrs, nil
}

// GetItemDetails queries the item from the given sources (default all),
// gathers current quotes and price history, and computes the aggregated
// statistics. It returns domain.ErrNoData when zero sources returned a
// usable price.
func (a *Aggregator) GetItemDetails(ctx context.Context, gameCode, itemName string, sources []string) (domain.AggregatedItemStats, []domain.SourceError, error) {
	providers, srcErrs := a.resolve(sources)
	if len(providers) == 0 {
		return domain.AggregatedItemStats{}, srcErrs,
			fmt.Errorf("item details %q/%q: no providers: %w", gameCode, itemName, domain.ErrNoData)
	}

	type outcome struct {
		source  string
		item    domain.MarketItem
		itemErr error
		history []domain.PricePoint
	}
	outcomes := make([]outcome, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range providers {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, a.cfg.ProviderTimeout)
			defer cancel()
			item, err := p.GetItem(tctx, gameCode, itemName)
			outcomes[i].source = p.Source()
			outcomes[i].item = item
			outcomes[i].itemErr = err
			return nil
		})
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, a.cfg.ProviderTimeout)
			defer cancel()
			// History is best-effort; a source without it contributes no
			// trend samples.
			history, err := p.PriceHistory(tctx, gameCode, itemName, a.cfg.HistoryDays)
			if err != nil {
				a.logger.Debug("item details: price history unavailable",
					slog.String("source", p.Source()),
					slog.String("item", itemName),
					slog.String("error", err.Error()),
				)
				return nil
			}
			outcomes[i].history = history
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.AggregatedItemStats{}, nil, err
	}

	prices := make(map[string]float64, len(outcomes))
	var history []domain.PricePoint
	for _, o := range outcomes {
		history = append(history, o.history...)
		switch {
		case errors.Is(o.itemErr, domain.ErrNotFound):
		case o.itemErr != nil:
			srcErrs = append(srcErrs, domain.SourceError{Source: o.source, Err: o.itemErr})
		case o.item.Price.Amount <= 0:
			a.logger.Warn("item details: skipping unusable price",
				slog.String("source", o.source),
				slog.String("item", itemName),
				slog.Float64("price", o.item.Price.Amount),
			)
			srcErrs = append(srcErrs, domain.SourceError{Source: o.source, Err: domain.ErrInvalidPrice})
		default:
			prices[o.source] = o.item.Price.Amount
		}
	}

	if len(prices) == 0 {
		return domain.AggregatedItemStats{}, srcErrs,
			fmt.Errorf("item details %q/%q: %w", gameCode, itemName, domain.ErrNoData)
	}

	return computeStats(itemName, gameCode, prices, history, len(providers)), srcErrs, nil
}
