package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from the TOML file at path (if it exists), layers
// PREDICTUM_* environment variables on top, and validates the result. A
// missing file is not an error; defaults plus environment are enough for
// container deployments.
func Load(path string) (Config, error) {
	// Best effort; a missing .env file is normal outside local dev.
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides cfg fields from PREDICTUM_* environment variables.
// Only the values an operator realistically changes per deployment are
// exposed; threshold tuning stays in the TOML file.
func applyEnv(cfg *Config) {
	setStr(&cfg.Mode, "PREDICTUM_MODE")
	setStr(&cfg.LogLevel, "PREDICTUM_LOG_LEVEL")

	setStr(&cfg.Polymarket.GammaHost, "PREDICTUM_GAMMA_HOST")
	setStr(&cfg.Polymarket.ClobHost, "PREDICTUM_CLOB_HOST")
	setStr(&cfg.Polymarket.WsHost, "PREDICTUM_WS_HOST")

	setStr(&cfg.Supabase.DSN, "PREDICTUM_SUPABASE_DSN")
	setStr(&cfg.Supabase.Host, "PREDICTUM_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "PREDICTUM_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "PREDICTUM_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "PREDICTUM_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "PREDICTUM_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "PREDICTUM_SUPABASE_SSL_MODE")
	setBool(&cfg.Supabase.RunMigrations, "PREDICTUM_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "PREDICTUM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PREDICTUM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PREDICTUM_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "PREDICTUM_REDIS_TLS")

	setBool(&cfg.S3.Enabled, "PREDICTUM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PREDICTUM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PREDICTUM_S3_REGION")
	setStr(&cfg.S3.Bucket, "PREDICTUM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PREDICTUM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PREDICTUM_S3_SECRET_KEY")

	setBool(&cfg.Scanner.WsEnabled, "PREDICTUM_WS_ENABLED")
	setDuration(&cfg.Scanner.MarketInterval, "PREDICTUM_MARKET_INTERVAL")
	setDuration(&cfg.Scanner.OrderbookInterval, "PREDICTUM_ORDERBOOK_INTERVAL")

	setDuration(&cfg.Detector.Interval, "PREDICTUM_DETECTOR_INTERVAL")
	setDuration(&cfg.Detector.OpportunityTTL, "PREDICTUM_OPPORTUNITY_TTL")
	setDuration(&cfg.Stats.Interval, "PREDICTUM_STATS_INTERVAL")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			dst.Duration = d
		}
	}
}

// PostgresDSN builds a pgx connection string. An explicit dsn wins over the
// discrete host fields.
func (c SupabaseConfig) PostgresDSN() string {
	if strings.TrimSpace(c.DSN) != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
		c.PoolMaxConns, c.PoolMinConns,
	)
}
