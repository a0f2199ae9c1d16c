package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skinwatch/skinarb/internal/scanner"
	"github.com/skinwatch/skinarb/internal/server"
	"github.com/skinwatch/skinarb/internal/server/handler"
	"github.com/skinwatch/skinarb/internal/server/ws"
)

// ScanMode runs the periodic arbitrage sweep and the retention cron without
// the HTTP API.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	orch := a.buildOrchestrator(deps, nil)
	return orch.Run(ctx)
}

// ServerMode serves the HTTP and WebSocket API without running any sweeps.
// Opportunity history comes from whatever a scan-mode process has persisted;
// live detection still works through GET /api/arbitrage/opportunities.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// FullMode runs the scan loop, retention cron, and the API server in one
// process. Detected opportunities are pushed to WebSocket clients as they are
// found.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	orch := a.buildOrchestrator(deps, hub)
	g.Go(func() error {
		return orch.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, hub)
	}

	return g.Wait()
}

// buildOrchestrator assembles the sweep scanner and the retention sweep. hub
// is optional; when nil, opportunities are not broadcast.
func (a *App) buildOrchestrator(deps *Dependencies, hub scanner.Broadcaster) *scanner.Orchestrator {
	scn := scanner.New(
		deps.Finder,
		deps.OpportunityStore,
		deps.ScanStore,
		deps.LockManager,
		deps.Notifier,
		hub,
		scanner.Config{
			GameCodes:      a.cfg.Arbitrage.GameCodes,
			MinDiffPercent: a.cfg.Arbitrage.MinDiffPercent,
			Limit:          a.cfg.Arbitrage.Limit,
			Interval:       a.cfg.Arbitrage.ScanInterval.Duration,
			LockTTL:        a.cfg.Arbitrage.LockTTL.Duration,
		},
		a.logger,
	)

	var retention *scanner.Retention
	if a.cfg.Arbitrage.RetentionDays > 0 {
		retention = scanner.NewRetention(
			deps.OpportunityStore,
			deps.Archiver,
			deps.Notifier,
			a.cfg.Arbitrage.RetentionDays,
			a.logger,
		)
	}

	return scanner.NewOrchestrator(scn, retention, a.cfg.Arbitrage.RetentionCron, a.logger)
}

// startHTTPServer adds the API server goroutines to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	defaultGame := "cs2"
	if len(a.cfg.Arbitrage.GameCodes) > 0 {
		defaultGame = a.cfg.Arbitrage.GameCodes[0]
	}

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Markets: handler.NewMarketHandler(deps.Facade, defaultGame, a.logger).
			WithDefaultSources(a.cfg.Aggregator.DefaultSources),
		Arb: handler.NewArbHandler(deps.Facade, defaultGame, a.cfg.Arbitrage.MinDiffPercent, a.logger).
			WithHistory(deps.OpportunityStore).
			WithScans(deps.ScanStore),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.ApiKey,
		RateLimiter:     deps.RateLimiter,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
