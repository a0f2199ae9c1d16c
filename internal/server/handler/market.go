package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/skinwatch/skinarb/internal/aggregator"
	"github.com/skinwatch/skinarb/internal/domain"
	"github.com/skinwatch/skinarb/internal/service"
)

// MarketService defines the facade methods the market handler requires.
type MarketService interface {
	Sources() []string
	Search(ctx context.Context, gameCode, query string, opts aggregator.SearchOptions) (aggregator.SearchResult, error)
	ItemDetails(ctx context.Context, gameCode, itemName string, sources []string) (service.ItemDetails, error)
}

// MarketHandler serves cross-marketplace search and item stat endpoints.
type MarketHandler struct {
	svc            MarketService
	defaultGame    string
	defaultSources []string
	logger         *slog.Logger
}

// NewMarketHandler creates a MarketHandler. defaultGame is used when the
// request omits the game query parameter.
func NewMarketHandler(svc MarketService, defaultGame string, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{svc: svc, defaultGame: defaultGame, logger: logger}
}

// WithDefaultSources sets the source filter applied when a request names no
// sources. Empty means every registered provider.
func (h *MarketHandler) WithDefaultSources(sources []string) *MarketHandler {
	h.defaultSources = sources
	return h
}

// ListSources returns the registered marketplace identifiers.
// GET /api/sources
func (h *MarketHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": h.svc.Sources()})
}

// searchResponse wraps the cross-source search result.
type searchResponse struct {
	Query      string                         `json:"query"`
	GameCode   string                         `json:"game_code"`
	TotalItems int                            `json:"total_items"`
	Sources    []string                       `json:"sources"`
	Items      []domain.MergedItem            `json:"items,omitempty"`
	BySource   map[string][]domain.MarketItem `json:"by_source,omitempty"`
	Errors     []string                       `json:"errors,omitempty"`
}

// Search queries the configured marketplaces concurrently.
// GET /api/search?q=AK-47&game=cs2&sources=dmarket,steam&limit=20&merge=true
func (h *MarketHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	opts := aggregator.SearchOptions{
		Sources: h.sources(r),
		Merge:   q.Get("merge") != "false",
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}

	result, err := h.svc.Search(r.Context(), h.game(r), query, opts)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			writeError(w, http.StatusBadGateway, "no market source returned data")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:      result.Query,
		GameCode:   result.GameCode,
		TotalItems: result.TotalItems,
		Sources:    result.Sources,
		Items:      result.Items,
		BySource:   result.BySource,
		Errors:     sourceErrorStrings(result.Errors),
	})
}

// itemStatsResponse wraps aggregated item statistics.
type itemStatsResponse struct {
	Stats  domain.AggregatedItemStats `json:"stats"`
	Errors []string                   `json:"errors,omitempty"`
}

// ItemStats returns aggregated price statistics for one item.
// GET /api/items/{name}/stats?game=cs2&sources=dmarket,steam
func (h *MarketHandler) ItemStats(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(pathParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing item name")
		return
	}

	details, err := h.svc.ItemDetails(r.Context(), h.game(r), name, h.sources(r))
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			writeError(w, http.StatusNotFound, "item not listed on any queried source")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: item stats failed",
			slog.String("item", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to aggregate item stats")
		return
	}

	writeJSON(w, http.StatusOK, itemStatsResponse{
		Stats:  details.Stats,
		Errors: sourceErrorStrings(details.Errors),
	})
}

func (h *MarketHandler) game(r *http.Request) string {
	if g := strings.TrimSpace(r.URL.Query().Get("game")); g != "" {
		return g
	}
	return h.defaultGame
}

func (h *MarketHandler) sources(r *http.Request) []string {
	if s := splitSources(r.URL.Query().Get("sources")); s != nil {
		return s
	}
	return h.defaultSources
}

// splitSources parses a comma-separated source list; empty means all.
func splitSources(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	sources := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sources = append(sources, p)
		}
	}
	return sources
}

// sourceErrorStrings flattens per-source failures into API-friendly strings.
func sourceErrorStrings(errs []domain.SourceError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
