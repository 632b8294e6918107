package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestCompute(t *testing.T) {
	book := func(bids, asks []domain.PriceLevel) domain.OrderBookSnapshot {
		return domain.OrderBookSnapshot{MarketID: "mkt-1", Bids: bids, Asks: asks}
	}

	t.Run("spread and pressure", func(t *testing.T) {
		b := book(
			[]domain.PriceLevel{{Price: 0.48, Size: 300}, {Price: 0.30, Size: 500}},
			[]domain.PriceLevel{{Price: 0.52, Size: 100}},
		)
		stats, ok := Compute("mkt-1", b, 0.10)
		require.True(t, ok)

		// (0.52 - 0.48) / 0.52 * 100
		assert.InDelta(t, 7.692, stats.SpreadPercentage, 0.001)
		// mid 0.50, band [0.45, 0.55]: the 0.30 bid is outside
		assert.InDelta(t, 75, stats.BuyPressure, 1e-9)
		assert.InDelta(t, 25, stats.SellPressure, 1e-9)
	})

	t.Run("pressures always sum to 100", func(t *testing.T) {
		b := book(
			[]domain.PriceLevel{{Price: 0.49, Size: 123}},
			[]domain.PriceLevel{{Price: 0.51, Size: 456}},
		)
		stats, ok := Compute("mkt-1", b, 0.10)
		require.True(t, ok)
		assert.InDelta(t, 100, stats.BuyPressure+stats.SellPressure, 1e-9)
	})

	t.Run("crossed book is rejected", func(t *testing.T) {
		b := book(
			[]domain.PriceLevel{{Price: 0.55, Size: 10}},
			[]domain.PriceLevel{{Price: 0.50, Size: 10}},
		)
		_, ok := Compute("mkt-1", b, 0.10)
		assert.False(t, ok)
	})

	t.Run("one sided book is rejected", func(t *testing.T) {
		_, ok := Compute("mkt-1", book([]domain.PriceLevel{{Price: 0.5, Size: 10}}, nil), 0.10)
		assert.False(t, ok)
	})

	t.Run("no depth inside the band is rejected", func(t *testing.T) {
		b := book(
			[]domain.PriceLevel{{Price: 0.10, Size: 10}},
			[]domain.PriceLevel{{Price: 0.90, Size: 10}},
		)
		_, ok := Compute("mkt-1", b, 0.10)
		assert.False(t, ok)
	})
}

type fakeStatsStore struct {
	rows map[string]domain.MarketStats
	err  error
}

func (f *fakeStatsStore) Overwrite(ctx context.Context, stats domain.MarketStats) error {
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = make(map[string]domain.MarketStats)
	}
	f.rows[stats.MarketID] = stats
	return nil
}

func (f *fakeStatsStore) Get(ctx context.Context, marketID string) (domain.MarketStats, error) {
	stats, ok := f.rows[marketID]
	if !ok {
		return domain.MarketStats{}, domain.ErrNotFound
	}
	return stats, nil
}

func TestStats_RunStatsCycle(t *testing.T) {
	ctx := context.Background()

	snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{
		{ID: "with-book"},
		{ID: "without-book"},
	}}
	books := &fakeBooks{books: map[string]domain.OrderBookSnapshot{
		"with-book": {
			MarketID: "with-book",
			Bids:     []domain.PriceLevel{{Price: 0.48, Size: 100}},
			Asks:     []domain.PriceLevel{{Price: 0.52, Size: 100}},
		},
	}}
	store := &fakeStatsStore{}

	s := NewStats(StatsConfig{
		Snapshots: snaps,
		Books:     books,
		Store:     store,
		Logger:    testLogger(),
	})
	cycleStart := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return cycleStart }

	summary, err := s.RunStatsCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Zero(t, summary.Errors)

	row, err := store.Get(ctx, "with-book")
	require.NoError(t, err)
	assert.Equal(t, cycleStart, row.CalculatedAt)

	_, err = store.Get(ctx, "without-book")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
