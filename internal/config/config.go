// Package config defines the top-level configuration for the predictum
// workers and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PREDICTUM_* environment
// variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Detector   DetectorConfig   `toml:"detector"`
	Stats      StatsConfig      `toml:"stats"`
	Archive    ArchiveConfig    `toml:"archive"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	ClobHost  string `toml:"clob_host"`
	WsHost    string `toml:"ws_host"`
	// GammaRatePerSec / ClobRatePerSec cap request rates against each API.
	GammaRatePerSec int `toml:"gamma_rate_per_sec"`
	ClobRatePerSec  int `toml:"clob_rate_per_sec"`
	// RequestTimeout bounds every REST call so a hung upstream cannot stall
	// a cycle.
	RequestTimeout duration `toml:"request_timeout"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// BookTTL bounds how long a cached order book is trusted.
	BookTTL duration `toml:"book_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the retention
// archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ScannerConfig holds data-collection cadences and sizes.
type ScannerConfig struct {
	MarketInterval    duration `toml:"market_interval"`
	OrderbookInterval duration `toml:"orderbook_interval"`
	MarketPageSize    int      `toml:"market_page_size"`
	// OrderbookTopN limits book scanning to the busiest markets.
	OrderbookTopN int `toml:"orderbook_top_n"`
	// WsEnabled turns on the CLOB websocket feed that refreshes books
	// between REST scans.
	WsEnabled bool `toml:"ws_enabled"`
	// WsAssets caps how many assets the websocket subscribes to.
	WsAssets int `toml:"ws_assets"`
}

// DetectorConfig holds the detection cadence and every signal threshold.
// Thresholds are named here, never inlined in calculators, so boundary
// behavior can be probed from tests and tuned per deployment.
type DetectorConfig struct {
	Interval       duration `toml:"interval"`
	MarketLimit    int      `toml:"market_limit"`
	MaxConcurrency int      `toml:"max_concurrency"`
	CycleTimeout   duration `toml:"cycle_timeout"`
	OpportunityTTL duration `toml:"opportunity_ttl"`

	MinSpreadPct       float64 `toml:"min_spread_pct"`
	SpreadCaptureRatio float64 `toml:"spread_capture_ratio"`
	ArbitrageDeviation float64 `toml:"arbitrage_deviation"`
	NegRiskMaxCost     float64 `toml:"neg_risk_max_cost"`
	MomentumMinChange  float64 `toml:"momentum_min_change"`
	VelocityHigh       float64 `toml:"velocity_high"`
	VelocityExtreme    float64 `toml:"velocity_extreme"`
}

// StatsConfig holds the stats aggregation cadence and pressure band.
type StatsConfig struct {
	Interval     duration `toml:"interval"`
	PressureBand float64  `toml:"pressure_band"`
}

// ArchiveConfig holds retention parameters for expired opportunities.
type ArchiveConfig struct {
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:       "https://gamma-api.polymarket.com",
			ClobHost:        "https://clob.polymarket.com",
			WsHost:          "wss://ws-subscriptions-clob.polymarket.com",
			GammaRatePerSec: 20,
			ClobRatePerSec:  40,
			RequestTimeout:  duration{10 * time.Second},
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
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
			BookTTL:    duration{2 * time.Minute},
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			Bucket:         "predictum-archive",
			ForcePathStyle: true,
		},
		Scanner: ScannerConfig{
			MarketInterval:    duration{30 * time.Second},
			OrderbookInterval: duration{10 * time.Second},
			MarketPageSize:    100,
			OrderbookTopN:     50,
			WsEnabled:         false,
			WsAssets:          100,
		},
		Detector: DetectorConfig{
			Interval:       duration{60 * time.Second},
			MarketLimit:    100,
			MaxConcurrency: 8,
			CycleTimeout:   duration{45 * time.Second},
			OpportunityTTL: duration{24 * time.Hour},

			MinSpreadPct:       1.0,
			SpreadCaptureRatio: 0.5,
			ArbitrageDeviation: 0.02,
			NegRiskMaxCost:     0.99,
			MomentumMinChange:  0.05,
			VelocityHigh:       2.0,
			VelocityExtreme:    3.0,
		},
		Stats: StatsConfig{
			Interval:     duration{5 * time.Minute},
			PressureBand: 0.10,
		},
		Archive: ArchiveConfig{
			Interval:      duration{24 * time.Hour},
			RetentionDays: 7,
		},
		Mode:     ModeFull,
		LogLevel: "info",
	}
}

// Operating modes. Data collects, analysis detects, full does both, once
// runs a single pass of everything and exits.
const (
	ModeData     = "data"
	ModeAnalysis = "analysis"
	ModeFull     = "full"
	ModeOnce     = "once"
)

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	ModeData:     true,
	ModeAnalysis: true,
	ModeFull:     true,
	ModeOnce:     true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found. Configuration problems
// are fatal at startup only; nothing revalidates mid-cycle.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: data, analysis, full, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket endpoints
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaRatePerSec < 1 {
		errs = append(errs, "polymarket: gamma_rate_per_sec must be >= 1")
	}
	if c.Polymarket.ClobRatePerSec < 1 {
		errs = append(errs, "polymarket: clob_rate_per_sec must be >= 1")
	}
	if c.Polymarket.RequestTimeout.Duration <= 0 {
		errs = append(errs, "polymarket: request_timeout must be positive")
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.BookTTL.Duration <= 0 {
		errs = append(errs, "redis: book_ttl must be positive")
	}

	// S3 checks apply only when the archiver is on.
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1 when s3 is enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive when s3 is enabled")
		}
	}

	// Scanner
	if c.Scanner.MarketInterval.Duration <= 0 {
		errs = append(errs, "scanner: market_interval must be positive")
	}
	if c.Scanner.OrderbookInterval.Duration <= 0 {
		errs = append(errs, "scanner: orderbook_interval must be positive")
	}
	if c.Scanner.MarketPageSize < 1 {
		errs = append(errs, "scanner: market_page_size must be >= 1")
	}
	if c.Scanner.OrderbookTopN < 1 {
		errs = append(errs, "scanner: orderbook_top_n must be >= 1")
	}

	// Detector cadence
	if c.Detector.Interval.Duration <= 0 {
		errs = append(errs, "detector: interval must be positive")
	}
	if c.Detector.CycleTimeout.Duration <= 0 {
		errs = append(errs, "detector: cycle_timeout must be positive")
	}
	if c.Detector.OpportunityTTL.Duration <= 0 {
		errs = append(errs, "detector: opportunity_ttl must be positive")
	}
	if c.Detector.MarketLimit < 1 {
		errs = append(errs, "detector: market_limit must be >= 1")
	}
	if c.Detector.MaxConcurrency < 1 {
		errs = append(errs, "detector: max_concurrency must be >= 1")
	}

	// Signal thresholds
	if c.Detector.MinSpreadPct <= 0 {
		errs = append(errs, "detector: min_spread_pct must be > 0")
	}
	if c.Detector.SpreadCaptureRatio <= 0 || c.Detector.SpreadCaptureRatio > 1 {
		errs = append(errs, "detector: spread_capture_ratio must be in (0, 1]")
	}
	if c.Detector.ArbitrageDeviation <= 0 {
		errs = append(errs, "detector: arbitrage_deviation must be > 0")
	}
	if c.Detector.NegRiskMaxCost <= 0 || c.Detector.NegRiskMaxCost >= 1 {
		errs = append(errs, "detector: neg_risk_max_cost must be in (0, 1)")
	}
	if c.Detector.MomentumMinChange <= 0 {
		errs = append(errs, "detector: momentum_min_change must be > 0")
	}
	if c.Detector.VelocityHigh <= 1 {
		errs = append(errs, "detector: velocity_high must be > 1")
	}
	if c.Detector.VelocityExtreme <= c.Detector.VelocityHigh {
		errs = append(errs, "detector: velocity_extreme must exceed velocity_high")
	}

	// Stats
	if c.Stats.Interval.Duration <= 0 {
		errs = append(errs, "stats: interval must be positive")
	}
	if c.Stats.PressureBand <= 0 || c.Stats.PressureBand >= 1 {
		errs = append(errs, "stats: pressure_band must be in (0, 1)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
