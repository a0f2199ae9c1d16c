package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skinwatch/skinarb/internal/arbitrage"
	"github.com/skinwatch/skinarb/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFinder struct {
	opps   []domain.ArbitrageOpportunity
	report arbitrage.Report
	err    error
	calls  int
}

func (f *fakeFinder) Scan(ctx context.Context, gameCode string, minDiffPercent float64, limit int) ([]domain.ArbitrageOpportunity, arbitrage.Report, error) {
	f.calls++
	return f.opps, f.report, f.err
}

type fakeOppStore struct {
	domain.OpportunityStore
	batches  [][]domain.ArbitrageOpportunity
	batchErr error
	deleted  int64
	delErr   error
}

func (f *fakeOppStore) CreateBatch(ctx context.Context, opps []domain.ArbitrageOpportunity) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.batches = append(f.batches, opps)
	return nil
}

func (f *fakeOppStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return f.deleted, f.delErr
}

type fakeScanStore struct {
	runs      []domain.ScanRun
	recordErr error
}

func (f *fakeScanStore) Record(ctx context.Context, run domain.ScanRun) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeScanStore) LastRun(ctx context.Context, gameCode string) (domain.ScanRun, error) {
	if len(f.runs) == 0 {
		return domain.ScanRun{}, domain.ErrNotFound
	}
	return f.runs[len(f.runs)-1], nil
}

type fakeLocks struct {
	held     bool
	acquired []string
	released int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.acquired = append(f.acquired, key)
	return func() { f.released++ }, nil
}

type fakeHub struct {
	broadcasts [][]domain.ArbitrageOpportunity
}

func (f *fakeHub) BroadcastOpportunities(opps []domain.ArbitrageOpportunity) {
	f.broadcasts = append(f.broadcasts, opps)
}

type fakeArchiver struct {
	archived int64
	err      error
	calls    int
}

func (f *fakeArchiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	f.calls++
	return f.archived, f.err
}

func testOpp() domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:               "opp-1",
		ItemName:         "AK-47 | Redline",
		GameCode:         "cs2",
		BuyFrom:          "dmarket",
		BuyPrice:         7.50,
		SellTo:           "steam",
		SellPrice:        10.00,
		PriceDiff:        2.50,
		PriceDiffPercent: 33.33,
		Currency:         "USD",
		ProfitPotential:  domain.ProfitHigh,
		DetectedAt:       time.Now().UTC(),
	}
}

func newTestScanner(finder OpportunityScanner, opps domain.OpportunityStore, scans domain.ScanStore, locks domain.LockManager, hub Broadcaster) *Scanner {
	return New(finder, opps, scans, locks, nil, hub, Config{
		GameCodes:      []string{"cs2"},
		MinDiffPercent: 5.0,
		Limit:          10,
		Interval:       time.Minute,
	}, testLogger())
}

func TestScanGamePersistsAndBroadcasts(t *testing.T) {
	finder := &fakeFinder{
		opps:   []domain.ArbitrageOpportunity{testOpp()},
		report: arbitrage.Report{ItemsScanned: 40, QuoteFailures: 2},
	}
	store := &fakeOppStore{}
	scans := &fakeScanStore{}
	locks := &fakeLocks{}
	hub := &fakeHub{}

	s := newTestScanner(finder, store, scans, locks, hub)
	require.NoError(t, s.ScanGame(context.Background(), "cs2"))

	assert.Equal(t, []string{"scan:cs2"}, locks.acquired)
	assert.Equal(t, 1, locks.released)

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 1)

	require.Len(t, hub.broadcasts, 1)

	require.Len(t, scans.runs, 1)
	run := scans.runs[0]
	assert.Equal(t, "cs2", run.GameCode)
	assert.Equal(t, 40, run.ItemsScanned)
	assert.Equal(t, 1, run.Found)
	assert.Equal(t, 2, run.ErrorCount)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

func TestScanGameLockHeldSkips(t *testing.T) {
	finder := &fakeFinder{}
	locks := &fakeLocks{held: true}

	s := newTestScanner(finder, &fakeOppStore{}, &fakeScanStore{}, locks, nil)
	require.NoError(t, s.ScanGame(context.Background(), "cs2"))
	assert.Zero(t, finder.calls)
}

func TestScanGameFinderFailure(t *testing.T) {
	boom := errors.New("all providers down")
	finder := &fakeFinder{err: boom}
	locks := &fakeLocks{}

	s := newTestScanner(finder, &fakeOppStore{}, &fakeScanStore{}, locks, nil)
	err := s.ScanGame(context.Background(), "cs2")
	assert.ErrorIs(t, err, boom)
	// The lock is still released on failure.
	assert.Equal(t, 1, locks.released)
}

func TestScanGameRecordFailureIsNonFatal(t *testing.T) {
	finder := &fakeFinder{report: arbitrage.Report{ItemsScanned: 5}}
	scans := &fakeScanStore{recordErr: errors.New("pg down")}

	s := newTestScanner(finder, &fakeOppStore{}, scans, &fakeLocks{}, nil)
	assert.NoError(t, s.ScanGame(context.Background(), "cs2"))
}

func TestScanGameNoOpportunitiesNoBroadcast(t *testing.T) {
	finder := &fakeFinder{report: arbitrage.Report{ItemsScanned: 5}}
	hub := &fakeHub{}

	s := newTestScanner(finder, &fakeOppStore{}, &fakeScanStore{}, &fakeLocks{}, hub)
	require.NoError(t, s.ScanGame(context.Background(), "cs2"))
	assert.Empty(t, hub.broadcasts)
}

func TestRetentionArchivesBeforeDeleting(t *testing.T) {
	store := &fakeOppStore{deleted: 12}
	arch := &fakeArchiver{archived: 12}

	r := NewRetention(store, arch, nil, 90, testLogger())
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, arch.calls)
}

func TestRetentionArchiveFailureBlocksDelete(t *testing.T) {
	store := &fakeOppStore{deleted: 12, delErr: errors.New("delete should not run")}
	arch := &fakeArchiver{err: errors.New("s3 down")}

	r := NewRetention(store, arch, nil, 90, testLogger())
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 down")
}

func TestRetentionWithoutArchiverDeletesOnly(t *testing.T) {
	store := &fakeOppStore{deleted: 3}

	r := NewRetention(store, nil, nil, 90, testLogger())
	assert.NoError(t, r.Run(context.Background()))
}
