package steam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
)

// SourceName identifies this provider in aggregated results.
const SourceName = "steam"

// ErrUnsupportedGame is returned when a game code has no Steam app ID
// mapping.
var ErrUnsupportedGame = errors.New("steam: unsupported game code")

// appIDs maps portable game codes to Steam application IDs.
var appIDs = map[string]string{
	"cs2":   "730",
	"csgo":  "730",
	"dota2": "570",
	"tf2":   "440",
	"rust":  "252490",
}

type priceOverviewResponse struct {
	Success     bool   `json:"success"`
	LowestPrice string `json:"lowest_price"`
	MedianPrice string `json:"median_price"`
	Volume      string `json:"volume"`
}

type searchRenderResponse struct {
	Success    bool           `json:"success"`
	TotalCount int            `json:"total_count"`
	Results    []searchResult `json:"results"`
}

type searchResult struct {
	Name         string `json:"name"`
	HashName     string `json:"hash_name"`
	SellListings int    `json:"sell_listings"`
	SellPrice    int    `json:"sell_price"`
	SalePriceTxt string `json:"sale_price_text"`
}

// Provider serves market data from the Steam Community Market.
type Provider struct {
	client *Client
	logger *slog.Logger
}

var _ domain.MarketDataProvider = (*Provider)(nil)

// NewProvider wraps a Steam client as a MarketDataProvider.
func NewProvider(client *Client, logger *slog.Logger) *Provider {
	return &Provider{
		client: client,
		logger: logger.With(slog.String("component", "provider.steam")),
	}
}

// Source implements domain.MarketDataProvider.
func (p *Provider) Source() string { return SourceName }

// SearchItems returns community market listings matching query, most popular
// first.
func (p *Provider) SearchItems(ctx context.Context, gameCode, query string, limit int) ([]domain.MarketItem, error) {
	return p.search(ctx, gameCode, query, limit, false)
}

// GetItem returns the current lowest ask for the exact market hash name.
func (p *Provider) GetItem(ctx context.Context, gameCode, itemName string) (domain.MarketItem, error) {
	appID, err := appIDFor(gameCode)
	if err != nil {
		return domain.MarketItem{}, err
	}

	params := url.Values{}
	params.Set("appid", appID)
	params.Set("currency", "1") // USD
	params.Set("market_hash_name", itemName)

	var resp priceOverviewResponse
	if err := p.client.get(ctx, "/market/priceoverview/", params, &resp); err != nil {
		return domain.MarketItem{}, err
	}
	if !resp.Success {
		return domain.MarketItem{}, fmt.Errorf("steam: %q: %w", itemName, domain.ErrNotFound)
	}

	raw := resp.LowestPrice
	if raw == "" {
		raw = resp.MedianPrice
	}
	price, err := parseMoney(raw)
	if err != nil {
		return domain.MarketItem{}, fmt.Errorf("steam: %q: %w", itemName, err)
	}

	extra := map[string]string{}
	if resp.Volume != "" {
		extra["volume_24h"] = resp.Volume
	}
	if resp.MedianPrice != "" {
		extra["median_price"] = resp.MedianPrice
	}

	return domain.MarketItem{
		Name:      itemName,
		GameCode:  gameCode,
		Source:    SourceName,
		Price:     domain.Price{Amount: price, Currency: "USD"},
		Extra:     extra,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// PriceHistory always returns an empty series: the community market exposes
// sale history only to authenticated sessions, which this provider does not
// hold.
func (p *Provider) PriceHistory(ctx context.Context, gameCode, itemName string, days int) ([]domain.PricePoint, error) {
	return nil, nil
}

// PopularItems returns the game's most listed items.
func (p *Provider) PopularItems(ctx context.Context, gameCode string, limit int) ([]domain.MarketItem, error) {
	return p.search(ctx, gameCode, "", limit, true)
}

func (p *Provider) search(ctx context.Context, gameCode, query string, limit int, byPopularity bool) ([]domain.MarketItem, error) {
	appID, err := appIDFor(gameCode)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("appid", appID)
	params.Set("query", query)
	params.Set("norender", "1")
	params.Set("start", "0")
	params.Set("count", strconv.Itoa(limit))
	if byPopularity {
		params.Set("sort_column", "popular")
		params.Set("sort_dir", "desc")
	}

	var resp searchRenderResponse
	if err := p.client.get(ctx, "/market/search/render/", params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("steam: search %q: %w", query, domain.ErrProviderUnavailable)
	}

	items := make([]domain.MarketItem, 0, len(resp.Results))
	now := time.Now().UTC()
	for _, res := range resp.Results {
		name := res.HashName
		if name == "" {
			name = res.Name
		}
		if name == "" || res.SellPrice <= 0 {
			p.logger.Debug("skipping unusable search result",
				slog.String("name", res.Name),
				slog.Int("sell_price", res.SellPrice))
			continue
		}
		items = append(items, domain.MarketItem{
			Name:     name,
			GameCode: gameCode,
			Source:   SourceName,
			Price:    domain.Price{Amount: float64(res.SellPrice) / 100, Currency: "USD"},
			Extra: map[string]string{
				"sell_listings": strconv.Itoa(res.SellListings),
			},
			FetchedAt: now,
		})
	}
	return items, nil
}

func appIDFor(gameCode string) (string, error) {
	if id, ok := appIDs[strings.ToLower(gameCode)]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedGame, gameCode)
}
