package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/skinwatch/skinarb/internal/domain"
)

// ArbService defines the live-detection method the handler requires.
type ArbService interface {
	ArbitrageOpportunities(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, error)
}

// ArbHandler serves arbitrage-related HTTP endpoints. The history store and
// scan store are optional; endpoints backed by a missing dependency return
// 501.
type ArbHandler struct {
	svc         ArbService
	history     domain.OpportunityStore
	scans       domain.ScanStore
	defaultGame string
	minDiff     float64
	logger      *slog.Logger
}

// NewArbHandler creates an ArbHandler with the given live-detection service.
func NewArbHandler(svc ArbService, defaultGame string, minDiff float64, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{svc: svc, defaultGame: defaultGame, minDiff: minDiff, logger: logger}
}

// WithHistory sets the store backing the recent-opportunities endpoint.
func (h *ArbHandler) WithHistory(store domain.OpportunityStore) *ArbHandler {
	h.history = store
	return h
}

// WithScans sets the store backing the last-scan endpoint.
func (h *ArbHandler) WithScans(store domain.ScanStore) *ArbHandler {
	h.scans = store
	return h
}

// listOppsResponse wraps opportunity list responses.
type listOppsResponse struct {
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
}

// Opportunities runs a live cross-source sweep and returns the spreads found.
// GET /api/arbitrage/opportunities?game=cs2&min_diff=5&limit=10
func (h *ArbHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minDiff := h.minDiff
	if v := q.Get("min_diff"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "invalid min_diff")
			return
		}
		minDiff = f
	}

	limit := 10
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	opps, err := h.svc.ArbitrageOpportunities(r.Context(), h.game(r), minDiff, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: live arbitrage scan failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "arbitrage scan failed")
		return
	}

	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listOppsResponse{Opportunities: opps})
}

// ListRecent returns persisted opportunities, newest first.
// GET /api/arbitrage/recent?game=cs2&limit=50&offset=0
func (h *ArbHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "opportunity history not configured")
		return
	}

	game := strings.TrimSpace(r.URL.Query().Get("game"))
	opps, err := h.history.ListRecent(r.Context(), game, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list recent opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, listOppsResponse{Opportunities: opps})
}

// LastScan reports the most recent scan run for a game.
// GET /api/scans/last?game=cs2
func (h *ArbHandler) LastScan(w http.ResponseWriter, r *http.Request) {
	if h.scans == nil {
		writeError(w, http.StatusNotImplemented, "scan tracking not configured")
		return
	}

	run, err := h.scans.LastRun(r.Context(), h.game(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game has never been scanned")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: last scan lookup failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load last scan")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *ArbHandler) game(r *http.Request) string {
	if g := strings.TrimSpace(r.URL.Query().Get("game")); g != "" {
		return g
	}
	return h.defaultGame
}
