package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

type fakeMarketStore struct {
	rows     map[string]domain.MarketSnapshot
	upserted int
	err      error
}

func (f *fakeMarketStore) Upsert(ctx context.Context, snap domain.MarketSnapshot) error {
	return f.storeBatch([]domain.MarketSnapshot{snap})
}

func (f *fakeMarketStore) UpsertBatch(ctx context.Context, snaps []domain.MarketSnapshot) error {
	return f.storeBatch(snaps)
}

func (f *fakeMarketStore) storeBatch(snaps []domain.MarketSnapshot) error {
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = make(map[string]domain.MarketSnapshot)
	}
	for _, snap := range snaps {
		f.rows[snap.ID] = snap
		f.upserted++
	}
	return nil
}

func (f *fakeMarketStore) GetByID(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	snap, ok := f.rows[id]
	if !ok {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeMarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.MarketSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.MarketSnapshot
	for _, snap := range f.rows {
		out = append(out, snap)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMarketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

type fakeMarketCache struct {
	entries     map[string]domain.MarketSnapshot
	invalidated []string
	getErr      error
}

func (f *fakeMarketCache) Set(ctx context.Context, snap domain.MarketSnapshot) error {
	if f.entries == nil {
		f.entries = make(map[string]domain.MarketSnapshot)
	}
	f.entries[snap.ID] = snap
	return nil
}

func (f *fakeMarketCache) Get(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	if f.getErr != nil {
		return domain.MarketSnapshot{}, f.getErr
	}
	snap, ok := f.entries[id]
	if !ok {
		return domain.MarketSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeMarketCache) Invalidate(ctx context.Context, id string) error {
	f.invalidated = append(f.invalidated, id)
	delete(f.entries, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMarketService_SyncSnapshots(t *testing.T) {
	ctx := context.Background()
	store := &fakeMarketStore{}
	cache := &fakeMarketCache{entries: map[string]domain.MarketSnapshot{
		"mkt-1": {ID: "mkt-1", Question: "stale"},
	}}
	svc := NewMarketService(store, cache, 100, testLogger())

	err := svc.SyncSnapshots(ctx, []domain.MarketSnapshot{
		{ID: "mkt-1", Question: "fresh"},
		{ID: "mkt-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.upserted)
	// Stale cache entries are dropped so the next read refills.
	assert.ElementsMatch(t, []string{"mkt-1", "mkt-2"}, cache.invalidated)
}

func TestMarketService_GetSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the store", func(t *testing.T) {
		cache := &fakeMarketCache{entries: map[string]domain.MarketSnapshot{
			"mkt-1": {ID: "mkt-1", Question: "cached"},
		}}
		svc := NewMarketService(&fakeMarketStore{}, cache, 100, testLogger())

		snap, err := svc.GetSnapshot(ctx, "mkt-1")
		require.NoError(t, err)
		assert.Equal(t, "cached", snap.Question)
	})

	t.Run("miss falls through and backfills", func(t *testing.T) {
		store := &fakeMarketStore{rows: map[string]domain.MarketSnapshot{
			"mkt-1": {ID: "mkt-1", Question: "from store", FetchedAt: time.Now()},
		}}
		cache := &fakeMarketCache{}
		svc := NewMarketService(store, cache, 100, testLogger())

		snap, err := svc.GetSnapshot(ctx, "mkt-1")
		require.NoError(t, err)
		assert.Equal(t, "from store", snap.Question)
		assert.Contains(t, cache.entries, "mkt-1")
	})

	t.Run("unknown market", func(t *testing.T) {
		svc := NewMarketService(&fakeMarketStore{}, &fakeMarketCache{}, 100, testLogger())
		_, err := svc.GetSnapshot(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cache error falls through to the store", func(t *testing.T) {
		store := &fakeMarketStore{rows: map[string]domain.MarketSnapshot{
			"mkt-1": {ID: "mkt-1"},
		}}
		cache := &fakeMarketCache{getErr: errors.New("redis down")}
		svc := NewMarketService(store, cache, 100, testLogger())

		snap, err := svc.GetSnapshot(ctx, "mkt-1")
		require.NoError(t, err)
		assert.Equal(t, "mkt-1", snap.ID)
	})
}
