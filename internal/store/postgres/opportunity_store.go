package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skinwatch/skinarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates an OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, item_name, game_code,
	buy_from, buy_price, sell_to, sell_price,
	price_diff, price_diff_percent, currency, profit_potential, detected_at`

const oppInsert = `
	INSERT INTO arbitrage_opportunities (
		id, item_name, game_code,
		buy_from, buy_price, sell_to, sell_price,
		price_diff, price_diff_percent, currency, profit_potential, detected_at
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7,
		$8, $9, $10, $11, $12
	)`

func oppInsertArgs(opp domain.ArbitrageOpportunity) []any {
	return []any{
		opp.ID, opp.ItemName, opp.GameCode,
		opp.BuyFrom, opp.BuyPrice, opp.SellTo, opp.SellPrice,
		opp.PriceDiff, opp.PriceDiffPercent, opp.Currency,
		string(opp.ProfitPotential), opp.DetectedAt,
	}
}

// Create stores a single detected opportunity.
func (s *OpportunityStore) Create(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if _, err := s.pool.Exec(ctx, oppInsert, oppInsertArgs(opp)...); err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// CreateBatch stores all opportunities in a single transaction so a scan's
// results land atomically.
func (s *OpportunityStore) CreateBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin opportunity batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(oppInsert, oppInsertArgs(opp)...)
	}

	results := tx.SendBatch(ctx, batch)
	for range opps {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("postgres: insert opportunity batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("postgres: close opportunity batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit opportunity batch: %w", err)
	}
	return nil
}

// ListRecent returns opportunities newest first, optionally filtered by game.
func (s *OpportunityStore) ListRecent(ctx context.Context, gameCode string, opts domain.ListOpts) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM arbitrage_opportunities`
	args := []any{}

	if gameCode != "" {
		args = append(args, gameCode)
		query += fmt.Sprintf(" WHERE game_code = $%d", len(args))
	}
	query += " ORDER BY detected_at DESC, id ASC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.queryOpportunities(ctx, query, args...)
}

// ListBefore returns all opportunities detected strictly before the cutoff,
// oldest first.
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ArbitrageOpportunity, error) {
	query := `SELECT ` + oppSelectCols + `
		FROM arbitrage_opportunities
		WHERE detected_at < $1
		ORDER BY detected_at ASC, id ASC`
	return s.queryOpportunities(ctx, query, before)
}

// DeleteBefore removes opportunities detected strictly before the cutoff.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM arbitrage_opportunities WHERE detected_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func (s *OpportunityStore) queryOpportunities(ctx context.Context, query string, args ...any) ([]domain.ArbitrageOpportunity, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var opp domain.ArbitrageOpportunity
		var potential string

		if err := rows.Scan(
			&opp.ID, &opp.ItemName, &opp.GameCode,
			&opp.BuyFrom, &opp.BuyPrice, &opp.SellTo, &opp.SellPrice,
			&opp.PriceDiff, &opp.PriceDiffPercent, &opp.Currency,
			&potential, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.ProfitPotential = domain.ProfitPotential(potential)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list opportunities rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
