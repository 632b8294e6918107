// Package analysis contains the detection core: the opportunity aggregator
// that runs every calculator across the market set each cycle, and the stats
// aggregator that derives per-market statistics on a slower cadence.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictumhq/predictum/internal/domain"
	"github.com/predictumhq/predictum/internal/signal"
)

// SnapshotSource supplies the market set a cycle operates on. It may return
// fewer markets than exist upstream on partial failure.
type SnapshotSource interface {
	ListSnapshots(ctx context.Context) ([]domain.MarketSnapshot, error)
}

// OrderBookSource supplies the latest order book for a market. A nil book
// with a nil error means no book is available this cycle; price-only
// calculators still run.
type OrderBookSource interface {
	GetOrderBook(ctx context.Context, marketID string) (*domain.OrderBookSnapshot, error)
}

// OpportunityWriter is the persistence surface the detector reconciles
// against. OpportunityService implements it over the Postgres store plus the
// signal bus.
type OpportunityWriter interface {
	Upsert(ctx context.Context, opp domain.Opportunity) error
	ExpireExcept(ctx context.Context, keep []domain.OpportunityKey) (int64, error)
	ExpireElapsed(ctx context.Context, now time.Time) (int64, error)
}

// DetectorConfig configures the opportunity aggregator.
type DetectorConfig struct {
	Snapshots SnapshotSource
	Books     OrderBookSource
	Opps      OpportunityWriter
	// Thresholds feed the calculators; validate before constructing.
	Thresholds signal.Thresholds
	// TTL extends ExpiresAt on every detection (default 24h).
	TTL time.Duration
	// MaxConcurrency bounds the per-market fan-out (default 8).
	MaxConcurrency int
	// CycleTimeout bounds one RunLoop cycle; zero means no per-cycle
	// deadline.
	CycleTimeout time.Duration
	Logger       *slog.Logger
}

// Detector runs one detection cycle at a time: calculators over every
// snapshot, negative risk once per group, then reconciliation of the active
// set (upsert re-qualifying keys, eagerly expire the rest).
type Detector struct {
	snapshots    SnapshotSource
	books        OrderBookSource
	opps         OpportunityWriter
	calcs        []signal.Calculator
	groupCalc    signal.GroupCalculator
	ttl          time.Duration
	maxConc      int
	cycleTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewDetector creates a Detector from cfg, applying defaults for TTL and
// concurrency.
func NewDetector(cfg DetectorConfig) *Detector {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	conc := cfg.MaxConcurrency
	if conc <= 0 {
		conc = 8
	}
	return &Detector{
		snapshots:    cfg.Snapshots,
		books:        cfg.Books,
		opps:         cfg.Opps,
		calcs:        signal.All(cfg.Thresholds),
		groupCalc:    signal.NewNegativeRisk(cfg.Thresholds),
		ttl:          ttl,
		maxConc:      conc,
		cycleTimeout: cfg.CycleTimeout,
		logger:       cfg.Logger.With(slog.String("component", "opportunity_detector")),
		now:          time.Now,
	}
}

// RunCycle executes one full detection cycle and reports detected, expired,
// and error counts. A failed snapshot fetch degrades the cycle (empty set,
// one error) instead of failing it; individual calculator or persistence
// problems never abort the remaining markets.
func (d *Detector) RunCycle(ctx context.Context) (domain.CycleSummary, error) {
	var summary domain.CycleSummary
	cycleStart := d.now()

	// Safety net first: rows whose ExpiresAt lapsed while the aggregator was
	// not running.
	if n, err := d.opps.ExpireElapsed(ctx, cycleStart); err != nil {
		d.logger.WarnContext(ctx, "expire elapsed failed", slog.String("error", err.Error()))
		summary.Errors++
	} else if n > 0 {
		summary.Expired += int(n)
	}

	snaps, err := d.snapshots.ListSnapshots(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return summary, err
		}
		d.logger.WarnContext(ctx, "snapshot fetch failed, degraded cycle",
			slog.String("error", err.Error()),
		)
		summary.Errors++
		snaps = nil
	}

	detected := d.evaluateAll(ctx, snaps, cycleStart, &summary)

	// Upsert everything that qualified this cycle.
	keep := make([]domain.OpportunityKey, 0, len(detected))
	for _, opp := range detected {
		keep = append(keep, opp.Key())
		if err := d.opps.Upsert(ctx, opp); err != nil {
			d.logger.WarnContext(ctx, "opportunity upsert failed",
				slog.String("market_id", opp.MarketID),
				slog.String("type", string(opp.Type)),
				slog.String("error", err.Error()),
			)
			summary.Errors++
			continue
		}
		summary.Detected++
	}

	// Eager expiry: anything active that did not re-qualify is stale by
	// definition of the fresh snapshot set. Keys that failed to upsert stay
	// in keep so a transient write error cannot expire a healthy row.
	if n, err := d.opps.ExpireExcept(ctx, keep); err != nil {
		d.logger.WarnContext(ctx, "expire reconciliation failed", slog.String("error", err.Error()))
		summary.Errors++
	} else {
		summary.Expired += int(n)
	}

	d.logger.InfoContext(ctx, "detection cycle complete",
		slog.Int("markets", len(snaps)),
		slog.Int("detected", summary.Detected),
		slog.Int("expired", summary.Expired),
		slog.Int("errors", summary.Errors),
		slog.Duration("elapsed", d.now().Sub(cycleStart)),
	)
	return summary, nil
}

// evaluateAll runs the per-market calculators in parallel and the group
// calculator once per negative-risk group, stamping lifecycle fields on every
// candidate.
func (d *Detector) evaluateAll(ctx context.Context, snaps []domain.MarketSnapshot, cycleStart time.Time, summary *domain.CycleSummary) []domain.Opportunity {
	var (
		mu         sync.Mutex
		candidates []domain.Opportunity
	)
	add := func(opp *domain.Opportunity) {
		opp.Status = domain.OpportunityActive
		opp.DetectedAt = cycleStart
		opp.ExpiresAt = cycleStart.Add(d.ttl)
		mu.Lock()
		candidates = append(candidates, *opp)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.maxConc)
	for _, snap := range snaps {
		if !snap.AcceptingOrders {
			continue
		}
		snap := snap
		g.Go(func() error {
			book := d.fetchBook(gctx, snap.ID)
			for _, calc := range d.calcs {
				opp, err := calc.Evaluate(snap, book)
				if err != nil {
					d.logSkip(gctx, snap.ID, calc.Type(), err)
					continue
				}
				if opp != nil {
					add(opp)
				}
			}
			return nil
		})
	}
	// Workers only report skips, never errors.
	_ = g.Wait()

	// Negative risk spans markets, so it runs after the fan-out, once per
	// group. Closed members are excluded above the calculator.
	for _, group := range domain.GroupByNegRisk(openOnly(snaps)) {
		opp, err := d.groupCalc.EvaluateGroup(group)
		if err != nil {
			d.logSkip(ctx, group.ID, d.groupCalc.Type(), err)
			continue
		}
		if opp != nil {
			add(opp)
		}
	}

	return candidates
}

// fetchBook returns the market's order book or nil when none is available.
// Cache errors degrade to a book-less evaluation.
func (d *Detector) fetchBook(ctx context.Context, marketID string) *domain.OrderBookSnapshot {
	if d.books == nil {
		return nil
	}
	book, err := d.books.GetOrderBook(ctx, marketID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.logger.WarnContext(ctx, "order book fetch failed, evaluating without book",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return book
}

func (d *Detector) logSkip(ctx context.Context, id string, typ domain.OpportunityType, err error) {
	var dq *domain.DataQualityError
	if errors.As(err, &dq) {
		d.logger.DebugContext(ctx, "calculator skipped market",
			slog.String("market_id", dq.MarketID),
			slog.String("type", string(typ)),
			slog.String("field", dq.Field),
			slog.String("reason", dq.Reason),
		)
		return
	}
	d.logger.WarnContext(ctx, "calculator failed",
		slog.String("id", id),
		slog.String("type", string(typ)),
		slog.String("error", fmt.Sprintf("%v", err)),
	)
}

func openOnly(snaps []domain.MarketSnapshot) []domain.MarketSnapshot {
	out := make([]domain.MarketSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if s.AcceptingOrders {
			out = append(out, s)
		}
	}
	return out
}

// RunLoop executes detection cycles on a fixed interval until ctx is
// cancelled, running once immediately on start. Each cycle runs under its
// own deadline so a hung backend cannot wedge the loop.
func (d *Detector) RunLoop(ctx context.Context, interval time.Duration) error {
	d.boundedCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("detection loop stopped")
			return ctx.Err()
		case <-ticker.C:
			d.boundedCycle(ctx)
		}
	}
}

func (d *Detector) boundedCycle(ctx context.Context) {
	cctx := ctx
	if d.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, d.cycleTimeout)
		defer cancel()
	}
	if _, err := d.RunCycle(cctx); err != nil && ctx.Err() == nil {
		d.logger.ErrorContext(ctx, "detection cycle failed", slog.String("error", err.Error()))
	}
}
