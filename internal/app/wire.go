package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skinwatch/skinarb/internal/aggregator"
	"github.com/skinwatch/skinarb/internal/arbitrage"
	s3blob "github.com/skinwatch/skinarb/internal/blob/s3"
	"github.com/skinwatch/skinarb/internal/cache/redis"
	"github.com/skinwatch/skinarb/internal/config"
	"github.com/skinwatch/skinarb/internal/domain"
	"github.com/skinwatch/skinarb/internal/notify"
	"github.com/skinwatch/skinarb/internal/provider/dmarket"
	"github.com/skinwatch/skinarb/internal/provider/steam"
	"github.com/skinwatch/skinarb/internal/service"
	"github.com/skinwatch/skinarb/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	OpportunityStore domain.OpportunityStore
	ScanStore        domain.ScanStore

	// Redis-backed infrastructure
	ItemCache   domain.ItemCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage (nil unless S3 is enabled)
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Market data
	Aggregator *aggregator.Aggregator
	Catalog    arbitrage.CatalogSource
	Finder     *arbitrage.Finder
	Facade     *service.MultiSourceProvider

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (rate limiting, caching, scan locks) ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	if cfg.Redis.CacheTTL.Duration > 0 {
		deps.ItemCache = redis.NewItemCache(redisClient, cfg.Redis.CacheTTL.Duration)
	}

	// --- PostgreSQL (every mode persists or reads opportunity history) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	deps.ScanStore = postgres.NewScanStore(pool)

	// --- S3 blob storage (archive export is optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.OpportunityStore, logger)
	}

	// --- Market data providers ---
	dmProvider := dmarket.NewProvider(dmarket.NewClient(dmarket.ClientConfig{
		BaseURL:        cfg.DMarket.BaseURL,
		APIKey:         cfg.DMarket.ApiKey,
		APISecret:      cfg.DMarket.ApiSecret,
		Limiter:        deps.RateLimiter,
		RequestsPerMin: cfg.DMarket.RequestsPerMin,
	}), logger)
	providers := []domain.MarketDataProvider{dmProvider}

	if cfg.Steam.Enabled {
		steamProvider := steam.NewProvider(steam.NewClient(steam.ClientConfig{
			BaseURL:        cfg.Steam.BaseURL,
			Limiter:        deps.RateLimiter,
			RequestsPerMin: cfg.Steam.RequestsPerMin,
		}), logger)
		providers = append(providers, steamProvider)
	}

	// --- Aggregation, arbitrage detection, and the facade ---
	agg := aggregator.New(aggregator.Config{
		ProviderTimeout: cfg.Aggregator.ProviderTimeout.Duration,
		MergePolicy:     aggregator.MergePolicy(cfg.Aggregator.MergePolicy),
		HistoryDays:     cfg.Aggregator.HistoryDays,
	}, logger)

	var catalog arbitrage.CatalogSource
	for _, p := range providers {
		if deps.ItemCache != nil {
			p = service.NewCachedProvider(p, deps.ItemCache, logger)
		}
		if err := agg.Register(p); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: register provider: %w", err)
		}
		// The first provider (DMarket) doubles as the popularity catalog
		// the finder scans.
		if catalog == nil {
			catalog = p
		}
	}

	deps.Aggregator = agg
	deps.Catalog = catalog
	deps.Finder = arbitrage.NewFinder(agg, catalog, arbitrage.Config{
		CatalogSize: cfg.Arbitrage.CatalogSize,
		Concurrency: cfg.Aggregator.ConcurrencyLimit,
	}, logger)
	deps.Facade = service.NewMultiSourceProvider(agg, deps.Finder, cfg.Aggregator.ConcurrencyLimit, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
