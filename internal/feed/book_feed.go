// Package feed bridges the CLOB websocket into the order book cache so hot
// markets carry books fresher than the REST scan interval.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
	"github.com/predictumhq/predictum/internal/platform/polymarket"
)

const cacheWriteTimeout = 2 * time.Second

// BookFeed subscribes to book events for a fixed asset set and writes every
// snapshot into the cache. Asset membership is decided at construction; a
// restart picks up newly hot markets.
type BookFeed struct {
	ws     *polymarket.WSClient
	logger *slog.Logger
}

// New creates a BookFeed for the given asset set. tokenToMarket maps CLOB
// token IDs to market IDs for events that omit the market field.
func New(
	wsHost string,
	assets []string,
	tokenToMarket map[string]string,
	cache domain.OrderBookCache,
	logger *slog.Logger,
) *BookFeed {
	log := logger.With(slog.String("component", "book_feed"))

	handler := func(book domain.OrderBookSnapshot) {
		if book.MarketID == "" {
			book.MarketID = tokenToMarket[book.AssetID]
		}
		if book.MarketID == "" {
			return
		}
		// Cache writes ride on a short background deadline; the websocket
		// read loop must not block on Redis.
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := cache.Set(ctx, book); err != nil {
			log.Warn("book cache write failed",
				slog.String("market_id", book.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &BookFeed{
		ws:     polymarket.NewWSClient(wsHost, assets, handler),
		logger: log,
	}
}

// Run streams until ctx is cancelled, reconnecting internally.
func (f *BookFeed) Run(ctx context.Context) error {
	f.logger.Info("book feed starting")
	if err := f.ws.Run(ctx); err != nil {
		if ctx.Err() != nil {
			f.logger.Info("book feed stopped")
			return err
		}
		return fmt.Errorf("feed: %w", err)
	}
	return nil
}
