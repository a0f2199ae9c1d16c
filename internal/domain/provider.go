package domain

import "context"

// MarketDataProvider is the capability contract every marketplace source must
// implement. Implementations are registered with the aggregator under the id
// returned by Source and are queried concurrently during fan-out calls.
//
// All methods return an empty result (not an error) when nothing matches.
// A provider must not silently serve stale data; cache-aware wrappers mark
// returned items with MarketItem.Cached.
type MarketDataProvider interface {
	// Source returns the unique id of this marketplace, e.g. "dmarket".
	Source() string

	// SearchItems returns listings matching query, cheapest first where the
	// marketplace supports server-side ordering.
	SearchItems(ctx context.Context, gameCode, query string, limit int) ([]MarketItem, error)

	// GetItem returns the current listing for an exact item name.
	// It returns ErrNotFound when the item is not listed.
	GetItem(ctx context.Context, gameCode, itemName string) (MarketItem, error)

	// PriceHistory returns up to days of historical price samples, oldest
	// first. Sources without a history endpoint return an empty slice.
	PriceHistory(ctx context.Context, gameCode, itemName string, days int) ([]PricePoint, error)

	// PopularItems returns the marketplace's most traded listings.
	PopularItems(ctx context.Context, gameCode string, limit int) ([]MarketItem, error)
}
