package domain

import (
	"context"
	"time"
)

// OrderBookCache stores the most recent order-book ladder per market. Entries
// carry a TTL so a stalled scanner cannot feed stale books into detection
// forever; a missing or lapsed entry reads as ErrNotFound and the caller
// treats the market as book-less for that cycle.
type OrderBookCache interface {
	Set(ctx context.Context, book OrderBookSnapshot) error
	Get(ctx context.Context, marketID string) (OrderBookSnapshot, error)
}

// MarketCache provides fast snapshot lookups in front of the market store.
type MarketCache interface {
	Set(ctx context.Context, snap MarketSnapshot) error
	Get(ctx context.Context, id string) (MarketSnapshot, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter provides distributed rate limiting for upstream API calls.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// SignalBus publishes detection events for downstream consumers (the
// presentation layer subscribes; delivery beyond the bus is out of scope).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
