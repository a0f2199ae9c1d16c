package dmarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
)

// SourceName identifies this provider in aggregated results.
const SourceName = "dmarket"

// gameIDs maps portable game codes to DMarket game identifiers. Codes
// without an entry are passed through unchanged so new games work before
// the table is updated.
var gameIDs = map[string]string{
	"cs2":   "a8db",
	"csgo":  "a8db",
	"dota2": "9a92",
	"rust":  "rust",
	"tf2":   "tf2",
}

// Provider serves market data from the DMarket exchange.
type Provider struct {
	client *Client
	logger *slog.Logger
}

var _ domain.MarketDataProvider = (*Provider)(nil)

// NewProvider wraps a DMarket client as a MarketDataProvider.
func NewProvider(client *Client, logger *slog.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger.With(slog.String("component", "provider.dmarket")),
	}
}

// Source implements domain.MarketDataProvider.
func (p *Provider) Source() string { return SourceName }

// SearchItems returns market listings whose title matches query, cheapest
// first.
func (p *Provider) SearchItems(ctx context.Context, gameCode, query string, limit int) ([]domain.MarketItem, error) {
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("gameId", gameID(gameCode))
	params.Set("title", query)
	params.Set("currency", "USD")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("orderBy", "price")
	params.Set("orderDir", "asc")

	var resp marketItemsResponse
	if err := p.client.get(ctx, "/exchange/v1/market/items", params, &resp); err != nil {
		return nil, err
	}
	return p.toItems(gameCode, resp.Objects), nil
}

// GetItem returns the cheapest active listing for the exact item title.
func (p *Provider) GetItem(ctx context.Context, gameCode, itemName string) (domain.MarketItem, error) {
	items, err := p.SearchItems(ctx, gameCode, itemName, 1)
	if err != nil {
		return domain.MarketItem{}, err
	}
	if len(items) == 0 {
		return domain.MarketItem{}, fmt.Errorf("dmarket: %q: %w", itemName, domain.ErrNotFound)
	}
	return items[0], nil
}

// PriceHistory returns recent sale prices for the item, oldest first.
func (p *Provider) PriceHistory(ctx context.Context, gameCode, itemName string, days int) ([]domain.PricePoint, error) {
	if days <= 0 {
		days = 30
	}

	params := url.Values{}
	params.Set("gameId", gameID(gameCode))
	params.Set("title", itemName)
	params.Set("limit", "100")

	var resp lastSalesResponse
	if err := p.client.get(ctx, "/trade-aggregator/v1/last-sales", params, &resp); err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	points := make([]domain.PricePoint, 0, len(resp.Sales))
	for _, sale := range resp.Sales {
		price, err := parseCents(sale.Price)
		if err != nil || price <= 0 {
			continue
		}
		at := time.Unix(sale.Date, 0).UTC()
		if at.Before(cutoff) {
			continue
		}
		points = append(points, domain.PricePoint{
			Source: SourceName,
			Date:   at,
			Price:  price,
		})
	}
	// API returns newest first; callers expect chronological order.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// PopularItems returns the most in-demand listings for the game.
func (p *Provider) PopularItems(ctx context.Context, gameCode string, limit int) ([]domain.MarketItem, error) {
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("gameId", gameID(gameCode))
	params.Set("currency", "USD")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("orderBy", "popularity")
	params.Set("orderDir", "desc")

	var resp marketItemsResponse
	if err := p.client.get(ctx, "/exchange/v1/market/items", params, &resp); err != nil {
		return nil, err
	}
	return p.toItems(gameCode, resp.Objects), nil
}

func (p *Provider) toItems(gameCode string, objects []marketObject) []domain.MarketItem {
	items := make([]domain.MarketItem, 0, len(objects))
	now := time.Now().UTC()
	for _, obj := range objects {
		price, err := parseCents(obj.Price["USD"])
		if err != nil || price <= 0 {
			p.logger.Debug("skipping listing with unusable price",
				slog.String("title", obj.Title),
				slog.String("raw_price", obj.Price["USD"]))
			continue
		}

		extra := map[string]string{"item_id": obj.ItemID}
		if obj.Extra.CategoryPath != "" {
			extra["category"] = obj.Extra.CategoryPath
		}
		if obj.Extra.Exterior != "" {
			extra["exterior"] = obj.Extra.Exterior
		}
		if obj.Extra.FloatValue > 0 {
			extra["float"] = strconv.FormatFloat(obj.Extra.FloatValue, 'f', -1, 64)
		}

		items = append(items, domain.MarketItem{
			Name:      obj.Title,
			GameCode:  gameCode,
			Source:    SourceName,
			Price:     domain.Price{Amount: price, Currency: "USD"},
			Extra:     extra,
			FetchedAt: now,
		})
	}
	return items
}

func gameID(gameCode string) string {
	if id, ok := gameIDs[strings.ToLower(gameCode)]; ok {
		return id
	}
	return gameCode
}

// parseCents converts a minor-unit decimal string ("4550" cents) to dollars.
func parseCents(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty price")
	}
	cents, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return cents / 100, nil
}
