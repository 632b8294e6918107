package analysis

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
	"github.com/predictumhq/predictum/internal/signal"
)

type fakeSnapshots struct {
	snaps []domain.MarketSnapshot
	err   error
}

func (f *fakeSnapshots) ListSnapshots(ctx context.Context) ([]domain.MarketSnapshot, error) {
	return f.snaps, f.err
}

type fakeBooks struct {
	books map[string]domain.OrderBookSnapshot
}

func (f *fakeBooks) GetOrderBook(ctx context.Context, marketID string) (*domain.OrderBookSnapshot, error) {
	book, ok := f.books[marketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &book, nil
}

type fakeOpps struct {
	upserts    []domain.Opportunity
	upsertErrs map[domain.OpportunityKey]error
	keepSets   [][]domain.OpportunityKey
	expired    int64
}

func (f *fakeOpps) Upsert(ctx context.Context, opp domain.Opportunity) error {
	if err := f.upsertErrs[opp.Key()]; err != nil {
		return err
	}
	f.upserts = append(f.upserts, opp)
	return nil
}

func (f *fakeOpps) ExpireExcept(ctx context.Context, keep []domain.OpportunityKey) (int64, error) {
	f.keepSets = append(f.keepSets, keep)
	return f.expired, nil
}

func (f *fakeOpps) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeOpps) keysContain(key domain.OpportunityKey) bool {
	for _, set := range f.keepSets {
		for _, k := range set {
			if k == key {
				return true
			}
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDetector(snaps *fakeSnapshots, books *fakeBooks, opps *fakeOpps) *Detector {
	return NewDetector(DetectorConfig{
		Snapshots:  snaps,
		Books:      books,
		Opps:       opps,
		Thresholds: signal.Defaults(),
		TTL:        time.Hour,
		Logger:     testLogger(),
	})
}

// wideSpreadMarket qualifies for the spread signal and nothing else.
func wideSpreadMarket(id string) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		ID:              id,
		BestBid:         0.45,
		BestAsk:         0.55,
		OutcomePrices:   []float64{0.5, 0.5},
		Liquidity:       100_000,
		AcceptingOrders: true,
	}
}

func TestDetector_RunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("detects and stamps lifecycle fields", func(t *testing.T) {
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{wideSpreadMarket("mkt-1")}}
		opps := &fakeOpps{}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		cycleStart := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		d.now = func() time.Time { return cycleStart }

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Detected)
		assert.Zero(t, summary.Errors)

		require.Len(t, opps.upserts, 1)
		got := opps.upserts[0]
		assert.Equal(t, domain.OpportunityActive, got.Status)
		assert.Equal(t, cycleStart, got.DetectedAt)
		assert.Equal(t, cycleStart.Add(time.Hour), got.ExpiresAt)
	})

	t.Run("requalifying key stays in the keep set", func(t *testing.T) {
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{wideSpreadMarket("mkt-1")}}
		opps := &fakeOpps{}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		_, err := d.RunCycle(ctx)
		require.NoError(t, err)
		_, err = d.RunCycle(ctx)
		require.NoError(t, err)

		key := domain.OpportunityKey{MarketID: "mkt-1", Type: domain.OpportunitySpread}
		require.Len(t, opps.keepSets, 2)
		for _, set := range opps.keepSets {
			assert.Contains(t, set, key)
		}
		// Two detections, same key, refreshed not duplicated per cycle.
		assert.Len(t, opps.upserts, 2)
	})

	t.Run("non-requalifying markets are eagerly expired", func(t *testing.T) {
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{
			{ID: "quiet", BestBid: 0.50, BestAsk: 0.501, OutcomePrices: []float64{0.5, 0.5}, AcceptingOrders: true},
		}}
		opps := &fakeOpps{expired: 3}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Detected)
		assert.Equal(t, 3, summary.Expired)
		require.Len(t, opps.keepSets, 1)
		assert.Empty(t, opps.keepSets[0])
	})

	t.Run("failed upsert keeps the key so the row is not expired", func(t *testing.T) {
		key := domain.OpportunityKey{MarketID: "mkt-1", Type: domain.OpportunitySpread}
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{wideSpreadMarket("mkt-1")}}
		opps := &fakeOpps{upsertErrs: map[domain.OpportunityKey]error{key: errors.New("pool exhausted")}}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Detected)
		assert.Equal(t, 1, summary.Errors)
		assert.True(t, opps.keysContain(key))
	})

	t.Run("one failing upsert does not stop the other markets", func(t *testing.T) {
		badKey := domain.OpportunityKey{MarketID: "mkt-2", Type: domain.OpportunitySpread}
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{
			wideSpreadMarket("mkt-1"),
			wideSpreadMarket("mkt-2"),
			wideSpreadMarket("mkt-3"),
		}}
		opps := &fakeOpps{upsertErrs: map[domain.OpportunityKey]error{badKey: errors.New("pool exhausted")}}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Detected)
		assert.Equal(t, 1, summary.Errors)

		// The survivors were persisted and every key, failed one included,
		// stays in the keep set.
		require.Len(t, opps.upserts, 2)
		for _, id := range []string{"mkt-1", "mkt-2", "mkt-3"} {
			assert.True(t, opps.keysContain(domain.OpportunityKey{MarketID: id, Type: domain.OpportunitySpread}))
		}
	})

	t.Run("snapshot failure degrades the cycle", func(t *testing.T) {
		snaps := &fakeSnapshots{err: errors.New("gamma timeout")}
		opps := &fakeOpps{}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Errors)
		assert.Zero(t, summary.Detected)
	})

	t.Run("closed markets are skipped", func(t *testing.T) {
		closed := wideSpreadMarket("mkt-closed")
		closed.AcceptingOrders = false
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{closed}}
		opps := &fakeOpps{}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Detected)
		assert.Empty(t, opps.upserts)
	})

	t.Run("negative risk runs once per group", func(t *testing.T) {
		member := func(id string, yes float64) domain.MarketSnapshot {
			return domain.MarketSnapshot{
				ID:              id,
				NegRiskGroupID:  "grp-1",
				OutcomePrices:   []float64{yes, 1 - yes},
				BestBid:         yes - 0.001,
				BestAsk:         yes,
				AcceptingOrders: true,
			}
		}
		// total NO = 0.45 + 0.52 = 0.97
		snaps := &fakeSnapshots{snaps: []domain.MarketSnapshot{
			member("b-mkt", 0.55),
			member("a-mkt", 0.48),
		}}
		opps := &fakeOpps{}
		d := newTestDetector(snaps, &fakeBooks{}, opps)

		_, err := d.RunCycle(ctx)
		require.NoError(t, err)

		var negRisk []domain.Opportunity
		for _, opp := range opps.upserts {
			if opp.Type == domain.OpportunityNegativeRisk {
				negRisk = append(negRisk, opp)
			}
		}
		require.Len(t, negRisk, 1)
		assert.Equal(t, "a-mkt", negRisk[0].MarketID)
	})

	t.Run("order book feeds the spread calculator", func(t *testing.T) {
		snap := domain.MarketSnapshot{
			ID:              "mkt-1",
			OutcomePrices:   []float64{0.5, 0.5},
			AcceptingOrders: true,
		}
		books := &fakeBooks{books: map[string]domain.OrderBookSnapshot{
			"mkt-1": {
				MarketID: "mkt-1",
				Bids:     []domain.PriceLevel{{Price: 0.40, Size: 10}},
				Asks:     []domain.PriceLevel{{Price: 0.60, Size: 10}},
			},
		}}
		opps := &fakeOpps{}
		d := newTestDetector(&fakeSnapshots{snaps: []domain.MarketSnapshot{snap}}, books, opps)

		summary, err := d.RunCycle(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Detected)
		require.Len(t, opps.upserts, 1)
		assert.Equal(t, domain.OpportunitySpread, opps.upserts[0].Type)
	})
}
