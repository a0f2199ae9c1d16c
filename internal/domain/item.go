package domain

import "time"

// Price is a decimal amount in a named currency.
type Price struct {
	Amount   float64
	Currency string
}

// MarketItem is a single listing for a tradable item on one marketplace.
// Items are constructed fresh on every fetch and are never mutated or
// persisted by the aggregation layer.
type MarketItem struct {
	Name     string // canonicalized (trimmed) market hash name
	GameCode string
	Source   string
	Price    Price
	Extra    map[string]string // opaque attributes, e.g. wear / float value
	// Cached marks items served from a cache-aware provider rather than a
	// live marketplace call.
	Cached    bool
	FetchedAt time.Time
}

// SourceListing pairs a source with the price it currently offers for an item.
type SourceListing struct {
	Source string
	Price  Price
}

// MergedItem is one logical item combined across sources, carrying the full
// per-source price comparison.
type MergedItem struct {
	Name     string
	GameCode string
	Listings []SourceListing
}

// PricePoint is one historical price sample reported by a source.
type PricePoint struct {
	Source string
	Date   time.Time
	Price  float64
	Volume int
}
