package aggregator

import (
	"sort"
	"strings"

	"github.com/skinwatch/skinarb/internal/domain"
)

// MergePolicy selects how item names are matched across sources when merging
// search results.
type MergePolicy string

const (
	// MergeExact matches on the trimmed name as-is. Safe default: marketplace
	// hash names are already canonical within a game.
	MergeExact MergePolicy = "exact"
	// MergeLoose additionally lowercases and collapses interior whitespace,
	// tolerating cosmetic differences between venues.
	MergeLoose MergePolicy = "loose"
)

// Valid reports whether p is a known merge policy.
func (p MergePolicy) Valid() bool {
	return p == MergeExact || p == MergeLoose
}

// canonicalName normalizes an item name under the given policy. The result is
// the merge key; the display name keeps the first trimmed spelling seen.
func canonicalName(name string, policy MergePolicy) string {
	name = strings.TrimSpace(name)
	if policy == MergeLoose {
		name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	}
	return name
}

// mergeItems combines per-source listings into logical items keyed by
// canonical name. The merge is order-independent: listings are sorted by
// source and items by name, so identical inputs yield identical output no
// matter which provider answered first.
func mergeItems(items []domain.MarketItem, policy MergePolicy) []domain.MergedItem {
	type bucket struct {
		name     string
		gameCode string
		listings []domain.SourceListing
	}

	buckets := make(map[string]*bucket)
	for _, it := range items {
		key := canonicalName(it.Name, policy)
		if key == "" {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: strings.TrimSpace(it.Name), gameCode: it.GameCode}
			buckets[key] = b
		}
		b.listings = append(b.listings, domain.SourceListing{
			Source: it.Source,
			Price:  it.Price,
		})
	}

	merged := make([]domain.MergedItem, 0, len(buckets))
	for _, b := range buckets {
		sort.Slice(b.listings, func(i, j int) bool {
			if b.listings[i].Source != b.listings[j].Source {
				return b.listings[i].Source < b.listings[j].Source
			}
			return b.listings[i].Price.Amount < b.listings[j].Price.Amount
		})
		merged = append(merged, domain.MergedItem{
			Name:     b.name,
			GameCode: b.gameCode,
			Listings: b.listings,
		})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged
}
