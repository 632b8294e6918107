package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

const bookBatchSize = 20

// SnapshotLister supplies the markets worth scanning, busiest first.
type SnapshotLister interface {
	ListSnapshots(ctx context.Context) ([]domain.MarketSnapshot, error)
}

// BookFetcher retrieves order books for a batch of CLOB tokens.
type BookFetcher interface {
	GetOrderBooks(ctx context.Context, tokenIDs []string) ([]domain.OrderBookSnapshot, error)
}

// OrderBookScanner refreshes the book cache for the top-N markets by volume.
// Between its passes the websocket feed (when enabled) keeps hot books
// fresher than the scan interval.
type OrderBookScanner struct {
	markets SnapshotLister
	fetcher BookFetcher
	cache   domain.OrderBookCache
	topN    int
	logger  *slog.Logger
}

// NewOrderBookScanner creates a new OrderBookScanner.
func NewOrderBookScanner(
	markets SnapshotLister,
	fetcher BookFetcher,
	cache domain.OrderBookCache,
	topN int,
	logger *slog.Logger,
) *OrderBookScanner {
	if topN <= 0 {
		topN = 50
	}
	return &OrderBookScanner{
		markets: markets,
		fetcher: fetcher,
		cache:   cache,
		topN:    topN,
		logger:  logger.With(slog.String("component", "orderbook_scanner")),
	}
}

// Run executes one scan pass: pick the busiest markets, fetch their books in
// batches, and cache each one keyed by market ID. A failed batch is logged
// and skipped so one bad token cannot starve the rest of the pass.
func (s *OrderBookScanner) Run(ctx context.Context) error {
	snaps, err := s.markets.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("orderbook scanner: list markets: %w", err)
	}

	// ListSnapshots is volume-ordered already; take the head.
	if len(snaps) > s.topN {
		snaps = snaps[:s.topN]
	}

	tokenToMarket := make(map[string]string, len(snaps))
	tokens := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		if snap.TokenID == "" {
			continue
		}
		tokenToMarket[snap.TokenID] = snap.ID
		tokens = append(tokens, snap.TokenID)
	}

	cached := 0
	for start := 0; start < len(tokens); start += bookBatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("orderbook scanner: %w: %w", domain.ErrContextDone, err)
		}

		end := start + bookBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}

		books, err := s.fetcher.GetOrderBooks(ctx, tokens[start:end])
		if err != nil {
			s.logger.Warn("book batch fetch failed",
				slog.Int("offset", start),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, book := range books {
			if book.MarketID == "" {
				book.MarketID = tokenToMarket[book.AssetID]
			}
			if book.MarketID == "" {
				continue
			}
			if err := s.cache.Set(ctx, book); err != nil {
				s.logger.Warn("book cache write failed",
					slog.String("market_id", book.MarketID),
					slog.String("error", err.Error()),
				)
				continue
			}
			cached++
		}
	}

	s.logger.Info("orderbook scan complete",
		slog.Int("markets", len(tokens)),
		slog.Int("cached", cached),
	)
	return nil
}

// RunLoop runs the scanner immediately and then on a repeating interval
// until the context is cancelled.
func (s *OrderBookScanner) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := s.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Error("orderbook scan failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("orderbook scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return err
				}
				s.logger.Error("orderbook scan failed", slog.String("error", err.Error()))
			}
		}
	}
}
