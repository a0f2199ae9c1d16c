// Package scanner runs the periodic arbitrage sweeps: it walks each
// configured game, persists and broadcasts what the finder detects, and
// keeps the opportunity history within its retention window.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skinwatch/skinarb/internal/arbitrage"
	"github.com/skinwatch/skinarb/internal/domain"
	"github.com/skinwatch/skinarb/internal/notify"
)

// OpportunityScanner is the slice of the arbitrage finder the scanner needs.
type OpportunityScanner interface {
	Scan(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, arbitrage.Report, error)
}

// Broadcaster pushes freshly detected opportunities to live subscribers.
// The websocket hub implements it.
type Broadcaster interface {
	BroadcastOpportunities(opps []domain.ArbitrageOpportunity)
}

// Config holds scanner tuning parameters.
type Config struct {
	// GameCodes lists the games swept on each tick.
	GameCodes []string
	// MinDiffPercent is the spread threshold passed to the finder.
	MinDiffPercent float64
	// Limit caps how many opportunities one sweep may persist per game.
	Limit int
	// Interval is the pause between sweeps.
	Interval time.Duration
	// LockTTL bounds how long a per-game scan lock may be held.
	LockTTL time.Duration
}

// Scanner coordinates one sweep cycle: lock, scan, persist, alert.
type Scanner struct {
	finder   OpportunityScanner
	opps     domain.OpportunityStore
	scans    domain.ScanStore
	locks    domain.LockManager
	notifier *notify.Notifier
	hub      Broadcaster
	cfg      Config
	logger   *slog.Logger
}

// New creates a Scanner. The notifier and hub are optional; a nil value
// disables that output.
func New(
	finder OpportunityScanner,
	opps domain.OpportunityStore,
	scans domain.ScanStore,
	locks domain.LockManager,
	notifier *notify.Notifier,
	hub Broadcaster,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Scanner{
		finder:   finder,
		opps:     opps,
		scans:    scans,
		locks:    locks,
		notifier: notifier,
		hub:      hub,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
	}
}

// ScanGame sweeps a single game under a distributed lock so concurrent
// instances never double-scan. A held lock is treated as "another instance
// is on it" and skipped without error.
func (s *Scanner) ScanGame(ctx context.Context, gameCode string) error {
	unlock, err := s.locks.Acquire(ctx, "scan:"+gameCode, s.cfg.LockTTL)
	if errors.Is(err, domain.ErrLockHeld) {
		s.logger.Info("scan already in progress elsewhere, skipping",
			slog.String("game", gameCode))
		return nil
	}
	if err != nil {
		return fmt.Errorf("scanner: acquire lock for %s: %w", gameCode, err)
	}
	defer unlock()

	startedAt := time.Now().UTC()
	opps, report, err := s.finder.Scan(ctx, gameCode, s.cfg.MinDiffPercent, s.cfg.Limit)
	if err != nil {
		s.alert(ctx, notify.EventScanFailed,
			fmt.Sprintf("Scan failed (%s)", gameCode), err.Error())
		return fmt.Errorf("scanner: scan %s: %w", gameCode, err)
	}

	if err := s.opps.CreateBatch(ctx, opps); err != nil {
		return fmt.Errorf("scanner: persist opportunities for %s: %w", gameCode, err)
	}

	if len(opps) > 0 {
		if s.hub != nil {
			s.hub.BroadcastOpportunities(opps)
		}
		title, message := notify.FormatOpportunities(gameCode, opps)
		s.alert(ctx, notify.EventArbDetected, title, message)
	}

	run := domain.ScanRun{
		ID:           uuid.New().String(),
		GameCode:     gameCode,
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
		ItemsScanned: report.ItemsScanned,
		Found:        len(opps),
		ErrorCount:   report.QuoteFailures,
	}
	if err := s.scans.Record(ctx, run); err != nil {
		// The sweep itself succeeded; a bookkeeping failure is not fatal.
		s.logger.Warn("failed to record scan run",
			slog.String("game", gameCode),
			slog.String("error", err.Error()))
	}

	s.logger.Info("scan complete",
		slog.String("game", gameCode),
		slog.Int("items_scanned", report.ItemsScanned),
		slog.Int("found", len(opps)),
		slog.Int("quote_failures", report.QuoteFailures),
		slog.Duration("took", run.FinishedAt.Sub(startedAt)),
	)
	return nil
}

// ScanAll sweeps every configured game sequentially. Per-game failures are
// logged and do not stop the remaining games.
func (s *Scanner) ScanAll(ctx context.Context) {
	for _, game := range s.cfg.GameCodes {
		if ctx.Err() != nil {
			return
		}
		if err := s.ScanGame(ctx, game); err != nil {
			s.logger.Error("scan failed",
				slog.String("game", game),
				slog.String("error", err.Error()))
		}
	}
}

// RunLoop sweeps immediately, then on every Interval tick until the context
// is cancelled.
func (s *Scanner) RunLoop(ctx context.Context) error {
	s.logger.Info("scan loop starting",
		slog.Any("games", s.cfg.GameCodes),
		slog.Duration("interval", s.cfg.Interval),
		slog.Float64("min_diff_percent", s.cfg.MinDiffPercent),
	)

	s.ScanAll(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.ScanAll(ctx)
		}
	}
}

func (s *Scanner) alert(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()))
	}
}
