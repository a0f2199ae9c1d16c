package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skinwatch/skinarb/internal/domain"
)

// ItemCache implements domain.ItemCache, storing per-source market items as
// JSON values with a TTL. Keys are namespaced by game and source so a cache
// flush for one marketplace does not disturb the others.
type ItemCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewItemCache creates an ItemCache with the given entry TTL.
func NewItemCache(c *Client, ttl time.Duration) *ItemCache {
	return &ItemCache{
		rdb: c.Underlying(),
		ttl: ttl,
	}
}

func itemKey(gameCode, source, itemName string) string {
	return fmt.Sprintf("item:%s:%s:%s",
		strings.ToLower(gameCode), source, strings.ToLower(itemName))
}

// Set stores the item under its game/source/name key.
func (ic *ItemCache) Set(ctx context.Context, item domain.MarketItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("redis: marshal item %s: %w", item.Name, err)
	}

	key := itemKey(item.GameCode, item.Source, item.Name)
	if err := ic.rdb.Set(ctx, key, data, ic.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set item %s: %w", key, err)
	}
	return nil
}

// Get returns the cached item, flagged as cached, or domain.ErrNotFound on a
// miss.
func (ic *ItemCache) Get(ctx context.Context, gameCode, source, itemName string) (domain.MarketItem, error) {
	key := itemKey(gameCode, source, itemName)

	data, err := ic.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketItem{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketItem{}, fmt.Errorf("redis: get item %s: %w", key, err)
	}

	var item domain.MarketItem
	if err := json.Unmarshal(data, &item); err != nil {
		return domain.MarketItem{}, fmt.Errorf("redis: unmarshal item %s: %w", key, err)
	}
	item.Cached = true
	return item, nil
}

// Invalidate removes the cached entry, if any.
func (ic *ItemCache) Invalidate(ctx context.Context, gameCode, source, itemName string) error {
	key := itemKey(gameCode, source, itemName)
	if err := ic.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis: invalidate item %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ItemCache = (*ItemCache)(nil)
