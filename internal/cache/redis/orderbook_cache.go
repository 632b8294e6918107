package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predictumhq/predictum/internal/domain"
)

// OrderBookCache implements domain.OrderBookCache with one JSON value per
// market. The TTL makes staleness handling implicit: a book that outlives it
// simply disappears and detection falls back to Gamma top-of-book prices.
//
// Key schema:
//
//	book:{marketID} - JSON-serialized domain.OrderBookSnapshot
type OrderBookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderBookCache creates an OrderBookCache backed by the given Client.
// ttl bounds how long a snapshot stays readable.
func NewOrderBookCache(c *Client, ttl time.Duration) *OrderBookCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &OrderBookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(marketID string) string { return "book:" + marketID }

// Set stores the snapshot, replacing any previous book for the market.
func (oc *OrderBookCache) Set(ctx context.Context, book domain.OrderBookSnapshot) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", book.MarketID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(book.MarketID), data, oc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", book.MarketID, err)
	}
	return nil
}

// Get returns the cached book for a market. A missing or expired entry is
// domain.ErrNotFound.
func (oc *OrderBookCache) Get(ctx context.Context, marketID string) (domain.OrderBookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(marketID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: book %s: %w", marketID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: get book %s: %w", marketID, err)
	}

	var book domain.OrderBookSnapshot
	if err := json.Unmarshal(data, &book); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: unmarshal book %s: %w", marketID, err)
	}
	return book, nil
}
