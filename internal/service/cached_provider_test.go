package service

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

type fakeProvider struct {
	source   string
	item     domain.MarketItem
	itemErr  error
	getCalls int
}

func (f *fakeProvider) Source() string { return f.source }

func (f *fakeProvider) GetItem(ctx context.Context, gameCode, itemName string) (domain.MarketItem, error) {
	f.getCalls++
	return f.item, f.itemErr
}

func (f *fakeProvider) SearchItems(ctx context.Context, gameCode, query string, limit int) ([]domain.MarketItem, error) {
	return []domain.MarketItem{f.item}, f.itemErr
}

func (f *fakeProvider) PriceHistory(ctx context.Context, gameCode, itemName string, days int) ([]domain.PricePoint, error) {
	return nil, nil
}

func (f *fakeProvider) PopularItems(ctx context.Context, gameCode string, limit int) ([]domain.MarketItem, error) {
	return []domain.MarketItem{f.item}, f.itemErr
}

// memCache is an in-memory ItemCache; getErr/setErr force failures.
type memCache struct {
	entries map[string]domain.MarketItem
	getErr  error
	setErr  error
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]domain.MarketItem)}
}

func cacheKey(gameCode, source, itemName string) string {
	return gameCode + "/" + source + "/" + itemName
}

func (m *memCache) Get(ctx context.Context, gameCode, source, itemName string) (domain.MarketItem, error) {
	if m.getErr != nil {
		return domain.MarketItem{}, m.getErr
	}
	it, ok := m.entries[cacheKey(gameCode, source, itemName)]
	if !ok {
		return domain.MarketItem{}, domain.ErrNotFound
	}
	it.Cached = true
	return it, nil
}

func (m *memCache) Set(ctx context.Context, it domain.MarketItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.entries[cacheKey(it.GameCode, it.Source, it.Name)] = it
	return nil
}

func (m *memCache) Invalidate(ctx context.Context, gameCode, source, itemName string) error {
	delete(m.entries, cacheKey(gameCode, source, itemName))
	return nil
}

func liveItem() domain.MarketItem {
	return domain.MarketItem{
		Name:     "AK-47 | Redline",
		GameCode: "cs2",
		Source:   "dmarket",
		Price:    domain.Price{Amount: 10.00, Currency: "USD"},
	}
}

func TestCachedProviderMissPopulatesCache(t *testing.T) {
	inner := &fakeProvider{source: "dmarket", item: liveItem()}
	cache := newMemCache()
	cp := NewCachedProvider(inner, cache, testLogger())

	got, err := cp.GetItem(context.Background(), "cs2", "AK-47 | Redline")
	require.NoError(t, err)
	assert.False(t, got.Cached)
	assert.Equal(t, 1, inner.getCalls)
	assert.Equal(t, 1, cache.sets)

	// Second call is served from the cache and labeled as such.
	got, err = cp.GetItem(context.Background(), "cs2", "AK-47 | Redline")
	require.NoError(t, err)
	assert.True(t, got.Cached)
	assert.Equal(t, 1, inner.getCalls)
}

func TestCachedProviderCacheErrorDegradesToLive(t *testing.T) {
	inner := &fakeProvider{source: "dmarket", item: liveItem()}
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cp := NewCachedProvider(inner, cache, testLogger())

	got, err := cp.GetItem(context.Background(), "cs2", "AK-47 | Redline")
	require.NoError(t, err)
	assert.False(t, got.Cached)
	assert.Equal(t, 1, inner.getCalls)
}

func TestCachedProviderWriteErrorIsNonFatal(t *testing.T) {
	inner := &fakeProvider{source: "dmarket", item: liveItem()}
	cache := newMemCache()
	cache.setErr = errors.New("redis down")
	cp := NewCachedProvider(inner, cache, testLogger())

	_, err := cp.GetItem(context.Background(), "cs2", "AK-47 | Redline")
	assert.NoError(t, err)
}

func TestCachedProviderPropagatesProviderError(t *testing.T) {
	inner := &fakeProvider{source: "dmarket", itemErr: domain.ErrNotFound}
	cp := NewCachedProvider(inner, newMemCache(), testLogger())

	_, err := cp.GetItem(context.Background(), "cs2", "Nonexistent")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
