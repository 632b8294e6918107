package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

type fakeFetcher struct {
	pages [][]domain.MarketSnapshot
	calls int
	err   error
}

func (f *fakeFetcher) GetMarkets(ctx context.Context, limit, offset int) ([]domain.MarketSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	page := offset / limit
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

type fakeSyncer struct {
	synced []domain.MarketSnapshot
	err    error
}

func (f *fakeSyncer) SyncSnapshots(ctx context.Context, snaps []domain.MarketSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.synced = append(f.synced, snaps...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapsN(ids ...string) []domain.MarketSnapshot {
	out := make([]domain.MarketSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.MarketSnapshot{ID: id})
	}
	return out
}

func TestMarketScraper_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("pages until a short page", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: [][]domain.MarketSnapshot{
			snapsN("a", "b"),
			snapsN("c"),
		}}
		syncer := &fakeSyncer{}
		s := NewMarketScraper(syncer, fetcher, 2, testLogger())

		require.NoError(t, s.Run(ctx))
		assert.Len(t, syncer.synced, 3)
		// Two full fetches; the short second page stops pagination.
		assert.Equal(t, 2, fetcher.calls)
	})

	t.Run("fetch failure aborts the pass", func(t *testing.T) {
		fetcher := &fakeFetcher{err: errors.New("gamma down")}
		s := NewMarketScraper(&fakeSyncer{}, fetcher, 2, testLogger())
		require.Error(t, s.Run(ctx))
	})

	t.Run("sync failure aborts the pass", func(t *testing.T) {
		fetcher := &fakeFetcher{pages: [][]domain.MarketSnapshot{snapsN("a")}}
		syncer := &fakeSyncer{err: errors.New("pg down")}
		s := NewMarketScraper(syncer, fetcher, 2, testLogger())
		require.Error(t, s.Run(ctx))
	})

	t.Run("cancelled context stops pagination", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		s := NewMarketScraper(&fakeSyncer{}, &fakeFetcher{}, 2, testLogger())

		err := s.Run(cancelled)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrContextDone)
	})
}
