package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
	"github.com/skinwatch/skinarb/internal/notify"
)

// Retention ages out opportunity history: rows older than the retention
// window are first exported to cold storage (when an archiver is
// configured), then deleted from the primary store.
type Retention struct {
	opps          domain.OpportunityStore
	archiver      domain.Archiver
	notifier      *notify.Notifier
	retentionDays int
	logger        *slog.Logger
}

// NewRetention creates a Retention sweep. archiver may be nil, in which case
// aged rows are deleted without an export.
func NewRetention(
	opps domain.OpportunityStore,
	archiver domain.Archiver,
	notifier *notify.Notifier,
	retentionDays int,
	logger *slog.Logger,
) *Retention {
	return &Retention{
		opps:          opps,
		archiver:      archiver,
		notifier:      notifier,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "retention")),
	}
}

// Run executes a single retention sweep. The archive upload must succeed
// before any rows are deleted; an export failure leaves the history intact.
func (r *Retention) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(r.retentionDays) * 24 * time.Hour)
	r.logger.Info("starting retention sweep",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", r.retentionDays),
	)

	if r.archiver != nil {
		archived, err := r.archiver.ArchiveOpportunities(ctx, cutoff)
		if err != nil {
			if r.notifier != nil {
				_ = r.notifier.Notify(ctx, notify.EventArchiveFailed,
					"Opportunity archive failed", err.Error())
			}
			return fmt.Errorf("archiving opportunities before %v: %w", cutoff, err)
		}
		r.logger.Info("archived opportunities", slog.Int64("count", archived))
	}

	deleted, err := r.opps.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("deleting opportunities before %v: %w", cutoff, err)
	}

	r.logger.Info("retention sweep complete", slog.Int64("deleted", deleted))
	return nil
}

// RunCron runs the retention sweep on a cron schedule until the context is
// cancelled. Expressions use the standard 5-field format:
// "minute hour day-of-month month day-of-week".
//
// Example: "0 3 * * *" runs daily at 03:00 UTC.
func (r *Retention) RunCron(ctx context.Context, cronExpr string) error {
	r.logger.Info("retention cron started", slog.String("cron", cronExpr))

	for {
		next, err := nextCronTime(cronExpr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing cron expression %q: %w", cronExpr, err)
		}

		r.logger.Info("retention waiting for next trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", time.Until(next)),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("retention cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := r.Run(ctx); err != nil {
				r.logger.Error("retention sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
