package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/predictumhq/predictum/internal/blob/s3"
	rediscache "github.com/predictumhq/predictum/internal/cache/redis"
	"github.com/predictumhq/predictum/internal/config"
	"github.com/predictumhq/predictum/internal/domain"
	"github.com/predictumhq/predictum/internal/platform/polymarket"
	"github.com/predictumhq/predictum/internal/store/postgres"
)

// Dependencies bundles every wired backend the operating modes draw from.
// Archiver is nil unless S3 archival is enabled.
type Dependencies struct {
	Postgres *postgres.Client
	Redis    *rediscache.Client

	Markets domain.MarketStore
	Opps    domain.OpportunityStore
	Stats   domain.MarketStatsStore

	MarketCache domain.MarketCache
	BookCache   domain.OrderBookCache
	Limiter     domain.RateLimiter
	Bus         domain.SignalBus

	Gamma *polymarket.GammaClient
	Clob  *polymarket.ClobClient

	Archiver *s3blob.Archiver
}

// Wire connects every backend the configuration names and returns the
// dependency set plus a cleanup that closes them in reverse order. On error
// everything already opened is closed before returning.
func Wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pg, err := postgres.New(ctx, cfg.Supabase.PostgresDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
	}
	closers = append(closers, pg.Close)
	if cfg.Supabase.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: run migrations: %w", err)
		}
	}

	rdb, err := rediscache.New(ctx, rediscache.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("app: connect redis: %w", err)
	}
	closers = append(closers, func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	})

	limiter := rediscache.NewRateLimiter(rdb)

	deps := &Dependencies{
		Postgres:    pg,
		Redis:       rdb,
		Markets:     postgres.NewMarketStore(pg.Pool()),
		Opps:        postgres.NewOpportunityStore(pg.Pool()),
		Stats:       postgres.NewMarketStatsStore(pg.Pool()),
		MarketCache: rediscache.NewMarketCache(rdb),
		BookCache:   rediscache.NewOrderBookCache(rdb, cfg.Redis.BookTTL.Duration),
		Limiter:     limiter,
		Bus:         rediscache.NewSignalBus(rdb),
		Gamma: polymarket.NewGammaClient(
			cfg.Polymarket.GammaHost,
			cfg.Polymarket.RequestTimeout.Duration,
			limiter,
			cfg.Polymarket.GammaRatePerSec,
		),
		Clob: polymarket.NewClobClient(
			cfg.Polymarket.ClobHost,
			cfg.Polymarket.RequestTimeout.Duration,
			limiter,
			cfg.Polymarket.ClobRatePerSec,
		),
	}

	if cfg.S3.Enabled {
		blob, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect s3: %w", err)
		}
		if err := blob.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: s3 health check: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(blob), deps.Opps)
	}

	return deps, cleanup, nil
}
