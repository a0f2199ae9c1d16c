package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/skinwatch/skinarb/internal/domain"
)

// CachedProvider decorates a MarketDataProvider with a read-through item
// cache for GetItem calls. Cache hits are labeled via MarketItem.Cached so
// consumers can distinguish live marketplace data from cached data. Search,
// history, and catalog calls pass through uncached.
type CachedProvider struct {
	inner  domain.MarketDataProvider
	cache  domain.ItemCache
	logger *slog.Logger
}

// NewCachedProvider wraps inner with the given cache. The cache's TTL policy
// is owned by the cache implementation.
func NewCachedProvider(inner domain.MarketDataProvider, cache domain.ItemCache, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		logger: logger.With(slog.String("component", "cached_provider"), slog.String("source", inner.Source())),
	}
}

// Source returns the wrapped provider's source id.
func (c *CachedProvider) Source() string { return c.inner.Source() }

// GetItem serves from the cache when possible and falls back to the live
// provider, populating the cache on the way out. Cache errors degrade to a
// live fetch, never to a failed call.
func (c *CachedProvider) GetItem(ctx context.Context, gameCode, itemName string) (domain.MarketItem, error) {
	cached, err := c.cache.Get(ctx, gameCode, c.inner.Source(), itemName)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("cache read failed, fetching live",
			slog.String("item", itemName),
			slog.String("error", err.Error()),
		)
	}

	item, err := c.inner.GetItem(ctx, gameCode, itemName)
	if err != nil {
		return domain.MarketItem{}, err
	}
	if err := c.cache.Set(ctx, item); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("item", itemName),
			slog.String("error", err.Error()),
		)
	}
	return item, nil
}

// SearchItems passes through to the live provider.
func (c *CachedProvider) SearchItems(ctx context.Context, gameCode, query string, limit int) ([]domain.MarketItem, error) {
	return c.inner.SearchItems(ctx, gameCode, query, limit)
}

// PriceHistory passes through to the live provider.
func (c *CachedProvider) PriceHistory(ctx context.Context, gameCode, itemName string, days int) ([]domain.PricePoint, error) {
	return c.inner.PriceHistory(ctx, gameCode, itemName, days)
}

// PopularItems passes through to the live provider.
func (c *CachedProvider) PopularItems(ctx context.Context, gameCode string, limit int) ([]domain.MarketItem, error) {
	return c.inner.PopularItems(ctx, gameCode, limit)
}

// Compile-time interface check.
var _ domain.MarketDataProvider = (*CachedProvider)(nil)
