package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinwatch/skinarb/internal/aggregator"
	"github.com/skinwatch/skinarb/internal/domain"
	"github.com/skinwatch/skinarb/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMarketService struct {
	sources []string
	search  aggregator.SearchResult
	details service.ItemDetails
	err     error

	gotGame    string
	gotQuery   string
	gotOpts    aggregator.SearchOptions
	gotItem    string
	gotSources []string
}

func (f *fakeMarketService) Sources() []string { return f.sources }

func (f *fakeMarketService) Search(ctx context.Context, gameCode, query string, opts aggregator.SearchOptions) (aggregator.SearchResult, error) {
	f.gotGame, f.gotQuery, f.gotOpts = gameCode, query, opts
	return f.search, f.err
}

func (f *fakeMarketService) ItemDetails(ctx context.Context, gameCode, itemName string, sources []string) (service.ItemDetails, error) {
	f.gotGame, f.gotItem, f.gotSources = gameCode, itemName, sources
	return f.details, f.err
}

func newMarketMux(svc MarketService) *http.ServeMux {
	h := NewMarketHandler(svc, "cs2", testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sources", h.ListSources)
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/items/{name}/stats", h.ItemStats)
	return mux
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(testLogger()).HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "skinarb", body["service"])
	assert.Equal(t, "ok", body["status"])
}

func TestListSources(t *testing.T) {
	svc := &fakeMarketService{sources: []string{"dmarket", "steam"}}
	rec := httptest.NewRecorder()
	newMarketMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"dmarket", "steam"}, body["sources"])
}

func TestSearchRequiresQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	newMarketMux(&fakeMarketService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPassesOptions(t *testing.T) {
	svc := &fakeMarketService{search: aggregator.SearchResult{Query: "ak", GameCode: "dota2"}}
	rec := httptest.NewRecorder()
	newMarketMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/search?q=ak&game=dota2&sources=dmarket,steam&limit=5&merge=false", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dota2", svc.gotGame)
	assert.Equal(t, "ak", svc.gotQuery)
	assert.Equal(t, []string{"dmarket", "steam"}, svc.gotOpts.Sources)
	assert.Equal(t, 5, svc.gotOpts.Limit)
	assert.False(t, svc.gotOpts.Merge)
}

func TestSearchDefaultsGameAndMerge(t *testing.T) {
	svc := &fakeMarketService{}
	rec := httptest.NewRecorder()
	newMarketMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=ak", nil))

	assert.Equal(t, "cs2", svc.gotGame)
	assert.True(t, svc.gotOpts.Merge)
}

func TestSearchUsesConfiguredDefaultSources(t *testing.T) {
	svc := &fakeMarketService{}
	h := NewMarketHandler(svc, "cs2", testLogger()).WithDefaultSources([]string{"dmarket"})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/items/{name}/stats", h.ItemStats)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=ak", nil))
	assert.Equal(t, []string{"dmarket"}, svc.gotOpts.Sources)

	// An explicit sources parameter still wins.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=ak&sources=steam", nil))
	assert.Equal(t, []string{"steam"}, svc.gotOpts.Sources)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/Nope/stats", nil))
	assert.Equal(t, []string{"dmarket"}, svc.gotSources)
}

func TestSearchNoDataIsBadGateway(t *testing.T) {
	svc := &fakeMarketService{err: domain.ErrNoData}
	rec := httptest.NewRecorder()
	newMarketMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=ak", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestItemStats(t *testing.T) {
	svc := &fakeMarketService{details: service.ItemDetails{
		Stats: domain.AggregatedItemStats{ItemName: "AWP | Asiimov", MinPrice: 9, MaxPrice: 12},
		Errors: []domain.SourceError{
			{Source: "steam", Err: domain.ErrProviderUnavailable},
		},
	}}
	rec := httptest.NewRecorder()
	newMarketMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/items/AWP%20%7C%20Asiimov/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AWP | Asiimov", svc.gotItem)

	var body itemStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 9.0, body.Stats.MinPrice)
	require.Len(t, body.Errors, 1)
	assert.Contains(t, body.Errors[0], "steam")
}

func TestItemStatsNotFound(t *testing.T) {
	svc := &fakeMarketService{err: domain.ErrNoData}
	rec := httptest.NewRecorder()
	newMarketMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/Nope/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
