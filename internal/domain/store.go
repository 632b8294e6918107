package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists normalized market snapshots.
type MarketStore interface {
	Upsert(ctx context.Context, snap MarketSnapshot) error
	UpsertBatch(ctx context.Context, snaps []MarketSnapshot) error
	GetByID(ctx context.Context, id string) (MarketSnapshot, error)
	// ListActive returns markets still accepting orders, highest 24h volume
	// first.
	ListActive(ctx context.Context, opts ListOpts) ([]MarketSnapshot, error)
	Count(ctx context.Context) (int64, error)
}

// OpportunityStore persists detected opportunities with one active row per
// (market, type). Upsert relies on the store's uniqueness constraint to
// serialize concurrent writers; a conflict means someone else already wrote
// this cycle's value and is not an error.
type OpportunityStore interface {
	Upsert(ctx context.Context, opp Opportunity) error
	ListActive(ctx context.Context) ([]Opportunity, error)
	// ExpireExcept marks every active opportunity whose key is absent from
	// keep as expired and returns how many rows changed.
	ExpireExcept(ctx context.Context, keep []OpportunityKey) (int64, error)
	// ExpireElapsed is the safety net for stalled aggregators: it expires
	// active rows whose ExpiresAt has passed.
	ExpireElapsed(ctx context.Context, now time.Time) (int64, error)
	// ListExpiredBefore returns expired rows last detected before the cutoff,
	// for archival.
	ListExpiredBefore(ctx context.Context, before time.Time) ([]Opportunity, error)
	// DeleteExpiredBefore prunes expired rows last detected before the cutoff.
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// MarketStatsStore persists per-market statistics, latest-wins.
type MarketStatsStore interface {
	Overwrite(ctx context.Context, stats MarketStats) error
	Get(ctx context.Context, marketID string) (MarketStats, error)
}
