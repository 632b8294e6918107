// Package service wires stores, caches, and the signal bus behind the
// interfaces the workers consume.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictumhq/predictum/internal/domain"
)

// MarketService handles snapshot sync and lookups. It implements the
// detector's SnapshotSource.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	limit   int
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. limit caps how many markets
// ListSnapshots hands to a detection cycle.
func NewMarketService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	limit int,
	logger *slog.Logger,
) *MarketService {
	if limit <= 0 {
		limit = 100
	}
	return &MarketService{
		markets: markets,
		cache:   cache,
		limit:   limit,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// SyncSnapshots upserts a batch of snapshots into the persistent store and
// invalidates cached entries so subsequent reads pick up fresh data.
func (s *MarketService) SyncSnapshots(ctx context.Context, snaps []domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	if err := s.markets.UpsertBatch(ctx, snaps); err != nil {
		return fmt.Errorf("market_service: upsert batch: %w", err)
	}

	for _, snap := range snaps {
		if err := s.cache.Invalidate(ctx, snap.ID); err != nil {
			// Non-fatal: the cache entry expires on its own.
			s.logger.WarnContext(ctx, "cache invalidate failed",
				slog.String("market_id", snap.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "synced markets", slog.Int("count", len(snaps)))
	return nil
}

// GetSnapshot retrieves a snapshot by ID, cache first, store on a miss.
func (s *MarketService) GetSnapshot(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	snap, err := s.cache.Get(ctx, id)
	if err == nil {
		return snap, nil
	}

	snap, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	if cacheErr := s.cache.Set(ctx, snap); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return snap, nil
}

// ListSnapshots returns the market set a detection cycle operates on:
// order-accepting markets, highest 24h volume first, capped at the
// configured limit.
func (s *MarketService) ListSnapshots(ctx context.Context) ([]domain.MarketSnapshot, error) {
	snaps, err := s.markets.ListActive(ctx, domain.ListOpts{Limit: s.limit})
	if err != nil {
		return nil, fmt.Errorf("market_service: list snapshots: %w", err)
	}
	return snaps, nil
}

// Count returns the total number of markets in the persistent store.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}
