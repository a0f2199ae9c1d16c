package dmarket

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinwatch/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProvider(NewClient(ClientConfig{BaseURL: srv.URL}), testLogger())
}

func TestSearchItemsParsesListings(t *testing.T) {
	var gotQuery struct{ gameID, title, orderBy string }
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange/v1/market/items", r.URL.Path)
		q := r.URL.Query()
		gotQuery.gameID = q.Get("gameId")
		gotQuery.title = q.Get("title")
		gotQuery.orderBy = q.Get("orderBy")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"objects": [
				{
					"itemId": "abc-1",
					"title": "AK-47 | Redline (Field-Tested)",
					"gameId": "a8db",
					"price": {"USD": "1050"},
					"extra": {"categoryPath": "Rifle", "exterior": "Field-Tested", "floatValue": 0.23}
				},
				{
					"itemId": "abc-2",
					"title": "Broken Listing",
					"gameId": "a8db",
					"price": {"USD": "0"}
				}
			],
			"total": "2"
		}`)
	})

	items, err := p.SearchItems(context.Background(), "cs2", "redline", 10)
	require.NoError(t, err)

	assert.Equal(t, "a8db", gotQuery.gameID)
	assert.Equal(t, "redline", gotQuery.title)
	assert.Equal(t, "price", gotQuery.orderBy)

	// The zero-priced listing is dropped.
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, "AK-47 | Redline (Field-Tested)", it.Name)
	assert.Equal(t, SourceName, it.Source)
	assert.Equal(t, "cs2", it.GameCode)
	assert.Equal(t, 10.50, it.Price.Amount)
	assert.Equal(t, "USD", it.Price.Currency)
	assert.Equal(t, "abc-1", it.Extra["item_id"])
	assert.Equal(t, "Rifle", it.Extra["category"])
	assert.Equal(t, "Field-Tested", it.Extra["exterior"])
	assert.Equal(t, "0.23", it.Extra["float"])
}

func TestGetItemNotFound(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"objects": []}`)
	})

	_, err := p.GetItem(context.Background(), "cs2", "Nonexistent Item")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriceHistoryChronologicalAndWindowed(t *testing.T) {
	now := time.Now().Unix()
	old := time.Now().AddDate(0, 0, -60).Unix()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trade-aggregator/v1/last-sales", r.URL.Path)
		io.WriteString(w, `{"sales": [
			{"price": "1200", "date": `+strconv.FormatInt(now, 10)+`},
			{"price": "1100", "date": `+strconv.FormatInt(now-3600, 10)+`},
			{"price": "900", "date": `+strconv.FormatInt(old, 10)+`}
		]}`)
	})

	points, err := p.PriceHistory(context.Background(), "cs2", "AK-47 | Redline", 30)
	require.NoError(t, err)

	// The 60-day-old sale falls outside the window; the rest come back
	// oldest first.
	require.Len(t, points, 2)
	assert.Equal(t, 11.00, points[0].Price)
	assert.Equal(t, 12.00, points[1].Price)
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.Equal(t, SourceName, points[0].Source)
}

func TestPopularItemsOrdersByPopularity(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "popularity", q.Get("orderBy"))
		assert.Equal(t, "desc", q.Get("orderDir"))
		io.WriteString(w, `{"objects": [{"itemId": "x", "title": "AWP | Asiimov", "price": {"USD": "5500"}}]}`)
	})

	items, err := p.PopularItems(context.Background(), "cs2", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 55.00, items[0].Price.Amount)
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"server error", http.StatusBadGateway, domain.ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := p.SearchItems(context.Background(), "cs2", "x", 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizedRequestCarriesSignature(t *testing.T) {
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		io.WriteString(w, `{"objects": []}`)
	}))
	defer srv.Close()

	p := NewProvider(NewClient(ClientConfig{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		APISecret: "test-secret",
	}), testLogger())

	_, err := p.SearchItems(context.Background(), "cs2", "x", 1)
	require.NoError(t, err)

	assert.Equal(t, "test-key", headers.Get("X-Api-Key"))
	assert.NotEmpty(t, headers.Get("X-Sign-Date"))
	// HMAC-SHA256 hex digest.
	assert.Len(t, headers.Get("X-Request-Sign"), 64)
}

func TestUnsignedWithoutCredentials(t *testing.T) {
	var headers http.Header
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		io.WriteString(w, `{"objects": []}`)
	})

	_, err := p.SearchItems(context.Background(), "cs2", "x", 1)
	require.NoError(t, err)
	assert.Empty(t, headers.Get("X-Api-Key"))
	assert.Empty(t, headers.Get("X-Request-Sign"))
}

func TestGameIDMapping(t *testing.T) {
	assert.Equal(t, "a8db", gameID("cs2"))
	assert.Equal(t, "a8db", gameID("CSGO"))
	assert.Equal(t, "9a92", gameID("dota2"))
	// Unknown codes pass through unchanged.
	assert.Equal(t, "custom", gameID("custom"))
}

func TestParseCents(t *testing.T) {
	v, err := parseCents("4550")
	require.NoError(t, err)
	assert.Equal(t, 45.50, v)

	_, err = parseCents("")
	assert.Error(t, err)

	_, err = parseCents("not-a-number")
	assert.Error(t, err)
}
