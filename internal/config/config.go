// Package config defines the top-level configuration for the skin arbitrage
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SKINARB_* environment variables.
type Config struct {
	DMarket    DMarketConfig    `toml:"dmarket"`
	Steam      SteamConfig      `toml:"steam"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Aggregator AggregatorConfig `toml:"aggregator"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// DMarketConfig holds DMarket exchange API parameters.
type DMarketConfig struct {
	BaseURL        string `toml:"base_url"`
	ApiKey         string `toml:"api_key"`
	ApiSecret      string `toml:"api_secret"`
	RequestsPerMin int    `toml:"requests_per_min"`
}

// SteamConfig holds Steam Community Market parameters. The endpoints are
// public; only throttling is configurable.
type SteamConfig struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	RequestsPerMin int    `toml:"requests_per_min"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters and the item cache TTL.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	CacheTTL   duration `toml:"cache_ttl"`
}

// S3Config holds S3-compatible object storage parameters for archive export.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AggregatorConfig holds cross-source aggregation parameters.
type AggregatorConfig struct {
	// ProviderTimeout bounds each upstream call during a fan-out.
	ProviderTimeout duration `toml:"provider_timeout"`
	// MergePolicy is "exact" or "loose" item-name matching.
	MergePolicy string `toml:"merge_policy"`
	// HistoryDays is how far back price history is fetched for stats.
	HistoryDays int `toml:"history_days"`
	// ConcurrencyLimit caps simultaneous aggregated operations.
	ConcurrencyLimit int `toml:"concurrency_limit"`
	// DefaultSources are the providers queried when a request names none.
	DefaultSources []string `toml:"default_sources"`
}

// ArbitrageConfig holds scan loop parameters.
type ArbitrageConfig struct {
	GameCodes      []string `toml:"game_codes"`
	MinDiffPercent float64  `toml:"min_diff_percent"`
	Limit          int      `toml:"limit"`
	CatalogSize    int      `toml:"catalog_size"`
	ScanInterval   duration `toml:"scan_interval"`
	LockTTL        duration `toml:"lock_ttl"`
	RetentionDays  int      `toml:"retention_days"`
	RetentionCron  string   `toml:"retention_cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	ApiKey          string   `toml:"api_key"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		DMarket: DMarketConfig{
			BaseURL:        "https://api.dmarket.com",
			RequestsPerMin: 60,
		},
		Steam: SteamConfig{
			Enabled:        true,
			BaseURL:        "https://steamcommunity.com",
			RequestsPerMin: 20,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "skinarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			CacheTTL:   duration{5 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "skinarb-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Aggregator: AggregatorConfig{
			ProviderTimeout:  duration{10 * time.Second},
			MergePolicy:      "exact",
			HistoryDays:      30,
			ConcurrencyLimit: 10,
			DefaultSources:   []string{"dmarket", "steam"},
		},
		Arbitrage: ArbitrageConfig{
			GameCodes:      []string{"cs2"},
			MinDiffPercent: 5.0,
			Limit:          10,
			CatalogSize:    100,
			ScanInterval:   duration{5 * time.Minute},
			LockTTL:        duration{5 * time.Minute},
			RetentionDays:  90,
			RetentionCron:  "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8080,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMin: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"arb.detected", "scan.failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validMergePolicies enumerates the accepted aggregator merge policies.
var validMergePolicies = map[string]bool{
	"exact": true,
	"loose": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// DMarket
	if c.DMarket.BaseURL == "" {
		errs = append(errs, "dmarket: base_url must not be empty")
	}
	if c.DMarket.RequestsPerMin < 0 {
		errs = append(errs, "dmarket: requests_per_min must be >= 0")
	}
	if (c.DMarket.ApiKey == "") != (c.DMarket.ApiSecret == "") {
		errs = append(errs, "dmarket: api_key and api_secret must be set together")
	}

	// Steam
	if c.Steam.Enabled && c.Steam.BaseURL == "" {
		errs = append(errs, "steam: base_url must not be empty when enabled")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.CacheTTL.Duration < 0 {
		errs = append(errs, "redis: cache_ttl must not be negative")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Aggregator
	if c.Aggregator.ProviderTimeout.Duration <= 0 {
		errs = append(errs, "aggregator: provider_timeout must be > 0")
	}
	if !validMergePolicies[strings.ToLower(c.Aggregator.MergePolicy)] {
		errs = append(errs, fmt.Sprintf("aggregator: unknown merge_policy %q (valid: exact, loose)", c.Aggregator.MergePolicy))
	}
	if c.Aggregator.HistoryDays < 1 {
		errs = append(errs, "aggregator: history_days must be >= 1")
	}
	if c.Aggregator.ConcurrencyLimit < 1 {
		errs = append(errs, "aggregator: concurrency_limit must be >= 1")
	}
	if len(c.Aggregator.DefaultSources) == 0 {
		errs = append(errs, "aggregator: default_sources must not be empty")
	}

	// Arbitrage
	if len(c.Arbitrage.GameCodes) == 0 {
		errs = append(errs, "arbitrage: game_codes must not be empty")
	}
	if c.Arbitrage.MinDiffPercent < 0 {
		errs = append(errs, "arbitrage: min_diff_percent must be >= 0")
	}
	if c.Arbitrage.Limit < 1 {
		errs = append(errs, "arbitrage: limit must be >= 1")
	}
	if c.Arbitrage.CatalogSize < 1 {
		errs = append(errs, "arbitrage: catalog_size must be >= 1")
	}
	if c.Arbitrage.ScanInterval.Duration <= 0 {
		errs = append(errs, "arbitrage: scan_interval must be > 0")
	}
	if c.Arbitrage.RetentionDays < 1 {
		errs = append(errs, "arbitrage: retention_days must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify — token and chat ID go together.
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
