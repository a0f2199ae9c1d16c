package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts are standard pagination options for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// OpportunityStore persists detected arbitrage opportunities as operational
// history. Market items themselves are never persisted.
type OpportunityStore interface {
	Create(ctx context.Context, opp ArbitrageOpportunity) error
	CreateBatch(ctx context.Context, opps []ArbitrageOpportunity) error
	// ListRecent returns opportunities newest first, optionally filtered by
	// game code ("" means all games).
	ListRecent(ctx context.Context, gameCode string, opts ListOpts) ([]ArbitrageOpportunity, error)
	// ListBefore returns all opportunities detected strictly before the
	// cutoff, oldest first.
	ListBefore(ctx context.Context, before time.Time) ([]ArbitrageOpportunity, error)
	// DeleteBefore removes opportunities detected strictly before the cutoff
	// and returns the number of rows removed.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ScanRun records the outcome of one arbitrage scan over a game's catalog.
type ScanRun struct {
	ID           string
	GameCode     string
	StartedAt    time.Time
	FinishedAt   time.Time
	ItemsScanned int
	Found        int
	ErrorCount   int
}

// ScanStore persists scan run outcomes.
type ScanStore interface {
	Record(ctx context.Context, run ScanRun) error
	// LastRun returns ErrNotFound when the game has never been scanned.
	LastRun(ctx context.Context, gameCode string) (ScanRun, error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged opportunity history to cold storage. It does not
// delete the archived rows; retention is a separate, explicit step.
type Archiver interface {
	ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error)
}
