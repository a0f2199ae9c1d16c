package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skinwatch/skinarb/internal/domain"
)

// ScanStore implements domain.ScanStore using PostgreSQL.
type ScanStore struct {
	pool *pgxpool.Pool
}

// NewScanStore creates a ScanStore backed by the given pool.
func NewScanStore(pool *pgxpool.Pool) *ScanStore {
	return &ScanStore{pool: pool}
}

// Record stores the outcome of one scan run.
func (s *ScanStore) Record(ctx context.Context, run domain.ScanRun) error {
	const query = `
		INSERT INTO scan_runs (
			id, game_code, started_at, finished_at,
			items_scanned, found, error_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.GameCode, run.StartedAt, run.FinishedAt,
		run.ItemsScanned, run.Found, run.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert scan run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recently finished scan for the game, or
// domain.ErrNotFound when the game has never been scanned.
func (s *ScanStore) LastRun(ctx context.Context, gameCode string) (domain.ScanRun, error) {
	const query = `
		SELECT id, game_code, started_at, finished_at,
			items_scanned, found, error_count
		FROM scan_runs
		WHERE game_code = $1
		ORDER BY finished_at DESC
		LIMIT 1`

	var run domain.ScanRun
	err := s.pool.QueryRow(ctx, query, gameCode).Scan(
		&run.ID, &run.GameCode, &run.StartedAt, &run.FinishedAt,
		&run.ItemsScanned, &run.Found, &run.ErrorCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScanRun{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ScanRun{}, fmt.Errorf("postgres: last scan run for %s: %w", gameCode, err)
	}
	return run, nil
}

// Compile-time interface check.
var _ domain.ScanStore = (*ScanStore)(nil)
