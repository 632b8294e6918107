package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// StatsConfig configures the stats aggregator.
type StatsConfig struct {
	Snapshots SnapshotSource
	Books     OrderBookSource
	Store     domain.MarketStatsStore
	// PressureBand is the fraction of the mid price within which depth
	// counts toward buy/sell pressure (default 0.10).
	PressureBand float64
	Logger       *slog.Logger
}

// Stats computes per-market statistics independent of opportunity
// thresholds: spread percentage and depth-weighted buy/sell pressure. It runs
// on its own cadence and never blocks the opportunity detector.
type Stats struct {
	snapshots SnapshotSource
	books     OrderBookSource
	store     domain.MarketStatsStore
	band      float64
	logger    *slog.Logger
	now       func() time.Time
}

// NewStats creates a Stats aggregator from cfg.
func NewStats(cfg StatsConfig) *Stats {
	band := cfg.PressureBand
	if band <= 0 {
		band = 0.10
	}
	return &Stats{
		snapshots: cfg.Snapshots,
		books:     cfg.Books,
		store:     cfg.Store,
		band:      band,
		logger:    cfg.Logger.With(slog.String("component", "stats_aggregator")),
		now:       time.Now,
	}
}

// RunStatsCycle recomputes statistics for every market that has an order
// book this cycle, overwriting the prior row per market. Markets without a
// book, with an empty side, or with no depth inside the band are skipped.
func (s *Stats) RunStatsCycle(ctx context.Context) (domain.StatsSummary, error) {
	var summary domain.StatsSummary
	cycleStart := s.now()

	snaps, err := s.snapshots.ListSnapshots(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
		s.logger.WarnContext(ctx, "snapshot fetch failed, degraded stats cycle",
			slog.String("error", err.Error()),
		)
		summary.Errors++
		return summary, nil
	}

	for _, snap := range snaps {
		book, err := s.books.GetOrderBook(ctx, snap.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "order book fetch failed",
				slog.String("market_id", snap.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if book == nil {
			continue
		}

		stats, ok := Compute(snap.ID, *book, s.band)
		if !ok {
			continue
		}
		stats.CalculatedAt = cycleStart

		if err := s.store.Overwrite(ctx, stats); err != nil {
			s.logger.WarnContext(ctx, "stats overwrite failed",
				slog.String("market_id", snap.ID),
				slog.String("error", err.Error()),
			)
			summary.Errors++
			continue
		}
		summary.Updated++
	}

	s.logger.InfoContext(ctx, "stats cycle complete",
		slog.Int("markets", len(snaps)),
		slog.Int("updated", summary.Updated),
		slog.Int("errors", summary.Errors),
		slog.Duration("elapsed", s.now().Sub(cycleStart)),
	)
	return summary, nil
}

// Compute derives MarketStats from a single order book. The second return is
// false when the book cannot support the calculation: crossed or one-sided
// markets, a zero best ask, or no depth inside the band.
func Compute(marketID string, book domain.OrderBookSnapshot, band float64) (domain.MarketStats, bool) {
	bid, ask := book.BestBid(), book.BestAsk()
	if ask <= 0 || bid <= 0 || ask <= bid {
		return domain.MarketStats{}, false
	}
	spreadPct := (ask - bid) / ask * 100

	bidDepth, askDepth := book.DepthWithin(band)
	total := bidDepth + askDepth
	if total == 0 {
		return domain.MarketStats{}, false
	}
	buy := bidDepth / total * 100

	return domain.MarketStats{
		MarketID:         marketID,
		SpreadPercentage: spreadPct,
		BuyPressure:      buy,
		SellPressure:     100 - buy,
	}, true
}

// RunLoop executes stats cycles on a fixed interval until ctx is cancelled,
// running once immediately on start.
func (s *Stats) RunLoop(ctx context.Context, interval time.Duration) error {
	if _, err := s.RunStatsCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.ErrorContext(ctx, "stats cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stats loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunStatsCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.ErrorContext(ctx, "stats cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}
