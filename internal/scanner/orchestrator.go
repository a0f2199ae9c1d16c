package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the scan loop and the retention cron as concurrent
// goroutines with shared-context shutdown.
type Orchestrator struct {
	scanner       *Scanner
	retention     *Retention
	retentionCron string
	logger        *slog.Logger
}

// NewOrchestrator creates an Orchestrator. retention may be nil when no
// retention sweep is configured.
func NewOrchestrator(scanner *Scanner, retention *Retention, retentionCron string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		scanner:       scanner,
		retention:     retention,
		retentionCron: retentionCron,
		logger:        logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts the sub-loops in an errgroup. Each goroutine respects ctx
// cancellation; a non-context error from either loop cancels the other and
// is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("scan orchestrator starting")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.scanner.RunLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("scan loop: %w", err)
	})

	if o.retention != nil {
		g.Go(func() error {
			err := o.retention.RunCron(ctx, o.retentionCron)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("retention cron: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("scan orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("scan orchestrator stopped cleanly")
	return nil
}
