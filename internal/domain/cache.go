package domain

import (
	"context"
	"time"
)

// ItemCache caches per-source item quotes. Entries are keyed by
// (gameCode, source, itemName) and carry an explicit TTL set by the
// implementation; the aggregation layer itself holds no long-lived state.
type ItemCache interface {
	Set(ctx context.Context, item MarketItem) error
	// Get returns ErrNotFound on a miss or an expired entry.
	Get(ctx context.Context, gameCode, source, itemName string) (MarketItem, error)
	Invalidate(ctx context.Context, gameCode, source, itemName string) error
}

// RateLimiter provides distributed rate limiting, used to keep outbound
// marketplace traffic inside each venue's request budget.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under the limit,
	// counting the request when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a request for key is permitted or ctx is done.
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking, used to keep concurrent replicas
// from running the same arbitrage scan.
type LockManager interface {
	// Acquire returns ErrLockHeld when another holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
