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

const marketTTL = 5 * time.Minute

// MarketCache implements domain.MarketCache with JSON-serialized snapshots.
//
// Key schema:
//
//	market:{id} - JSON-serialized domain.MarketSnapshot
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(id string) string { return "market:" + id }

// Set stores a snapshot with a 5-minute TTL.
func (mc *MarketCache) Set(ctx context.Context, snap domain.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", snap.ID, err)
	}
	if err := mc.rdb.Set(ctx, marketKey(snap.ID), data, marketTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", snap.ID, err)
	}
	return nil
}

// Get returns the cached snapshot, or domain.ErrNotFound when absent.
func (mc *MarketCache) Get(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	data, err := mc.rdb.Get(ctx, marketKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: market %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return snap, nil
}

// Invalidate removes a snapshot from the cache. Missing keys are fine.
func (mc *MarketCache) Invalidate(ctx context.Context, id string) error {
	if err := mc.rdb.Del(ctx, marketKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}
