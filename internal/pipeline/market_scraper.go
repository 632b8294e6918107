// Package pipeline contains the data-collection workers: the market scraper,
// the order book scanner, and the retention archiver, coordinated by the
// Orchestrator.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// SnapshotSyncer persists a batch of market snapshots.
type SnapshotSyncer interface {
	SyncSnapshots(ctx context.Context, snaps []domain.MarketSnapshot) error
}

// MarketFetcher retrieves one page of markets from an external API.
type MarketFetcher interface {
	GetMarkets(ctx context.Context, limit, offset int) ([]domain.MarketSnapshot, error)
}

// MarketScraper pages market data out of the Gamma API and syncs each batch
// to the store.
type MarketScraper struct {
	syncer   SnapshotSyncer
	fetcher  MarketFetcher
	pageSize int
	logger   *slog.Logger
}

// NewMarketScraper creates a new MarketScraper.
func NewMarketScraper(syncer SnapshotSyncer, fetcher MarketFetcher, pageSize int, logger *slog.Logger) *MarketScraper {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &MarketScraper{
		syncer:   syncer,
		fetcher:  fetcher,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "market_scraper")),
	}
}

// Run executes a single scrape pass that paginates through all markets and
// syncs each batch to the store.
func (s *MarketScraper) Run(ctx context.Context) error {
	offset := 0
	totalSynced := 0

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("market scraper: %w: %w", domain.ErrContextDone, err)
		}

		snaps, err := s.fetcher.GetMarkets(ctx, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("fetching markets at offset %d: %w", offset, err)
		}
		if len(snaps) == 0 {
			break
		}

		if err := s.syncer.SyncSnapshots(ctx, snaps); err != nil {
			return fmt.Errorf("syncing %d markets at offset %d: %w", len(snaps), offset, err)
		}

		totalSynced += len(snaps)
		s.logger.Debug("synced market batch",
			slog.Int("batch_size", len(snaps)),
			slog.Int("total_synced", totalSynced),
			slog.Int("offset", offset),
		)

		if len(snaps) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	s.logger.Info("market scrape complete", slog.Int("total_synced", totalSynced))
	return nil
}

// RunLoop runs the scraper immediately and then on a repeating interval
// until the context is cancelled.
func (s *MarketScraper) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := s.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Error("market scrape failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("market scraper loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return err
				}
				s.logger.Error("market scrape failed", slog.String("error", err.Error()))
			}
		}
	}
}
