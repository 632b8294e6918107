package app

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/predictumhq/predictum/internal/analysis"
	"github.com/predictumhq/predictum/internal/domain"
	"github.com/predictumhq/predictum/internal/feed"
	"github.com/predictumhq/predictum/internal/pipeline"
	"github.com/predictumhq/predictum/internal/service"
	"github.com/predictumhq/predictum/internal/signal"
)

// runData starts the collection pipeline: market scraping, book scanning,
// the optional websocket feed, and retention when archival is enabled.
func (a *App) runData(ctx context.Context, deps *Dependencies) error {
	return a.dataOrchestrator(ctx, deps).Run(ctx)
}

// runAnalysis starts the opportunity detector and the stats aggregator, each
// on its own cadence.
func (a *App) runAnalysis(ctx context.Context, deps *Dependencies) error {
	detector, stats := a.buildAnalysis(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := detector.RunLoop(ctx, a.cfg.Detector.Interval.Duration)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := stats.RunLoop(ctx, a.cfg.Stats.Interval.Duration)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// runFull runs collection and analysis in one process.
func (a *App) runFull(ctx context.Context, deps *Dependencies) error {
	orch := a.dataOrchestrator(ctx, deps)
	detector, stats := a.buildAnalysis(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := detector.RunLoop(ctx, a.cfg.Detector.Interval.Duration)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := stats.RunLoop(ctx, a.cfg.Stats.Interval.Duration)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// runOnce executes one pass of every stage in order and exits: scrape
// markets, scan books, detect, compute stats. Useful for cron deployments
// and smoke tests.
func (a *App) runOnce(ctx context.Context, deps *Dependencies) error {
	marketSvc := a.buildMarketService(deps)
	scraper := pipeline.NewMarketScraper(marketSvc, deps.Gamma, a.cfg.Scanner.MarketPageSize, a.logger)
	scanner := pipeline.NewOrderBookScanner(marketSvc, deps.Clob, deps.BookCache, a.cfg.Scanner.OrderbookTopN, a.logger)

	if err := scraper.Run(ctx); err != nil {
		return err
	}
	if err := scanner.Run(ctx); err != nil {
		return err
	}

	detector, stats := a.buildAnalysis(deps)
	cycle, err := detector.RunCycle(ctx)
	if err != nil {
		return err
	}
	statsSum, err := stats.RunStatsCycle(ctx)
	if err != nil {
		return err
	}

	// Cron output: one record with the counts the run produced.
	a.logger.Info("single pass complete",
		slog.Int("detected", cycle.Detected),
		slog.Int("expired", cycle.Expired),
		slog.Int("stats_updated", statsSum.Updated),
		slog.Int("errors", cycle.Errors+statsSum.Errors),
	)
	return nil
}

// dataOrchestrator assembles the collection workers. The websocket feed
// subscribes to the busiest markets' tokens; a failed asset lookup at startup
// degrades to REST-only scanning.
func (a *App) dataOrchestrator(ctx context.Context, deps *Dependencies) *pipeline.Orchestrator {
	marketSvc := a.buildMarketService(deps)

	var bookFeed pipeline.Runner
	if a.cfg.Scanner.WsEnabled {
		assets, tokenToMarket, err := a.watchAssets(ctx, deps)
		switch {
		case err != nil:
			a.logger.Warn("websocket asset lookup failed, running without feed",
				slog.String("error", err.Error()),
			)
		case len(assets) == 0:
			a.logger.Info("no assets to watch yet, running without feed")
		default:
			bookFeed = feed.New(a.cfg.Polymarket.WsHost, assets, tokenToMarket, deps.BookCache, a.logger)
		}
	}

	var retention *pipeline.RetentionWorker
	if deps.Archiver != nil {
		retention = pipeline.NewRetentionWorker(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	}

	return pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		MarketScraper:     pipeline.NewMarketScraper(marketSvc, deps.Gamma, a.cfg.Scanner.MarketPageSize, a.logger),
		BookScanner:       pipeline.NewOrderBookScanner(marketSvc, deps.Clob, deps.BookCache, a.cfg.Scanner.OrderbookTopN, a.logger),
		Feed:              bookFeed,
		Retention:         retention,
		MarketInterval:    a.cfg.Scanner.MarketInterval.Duration,
		OrderbookInterval: a.cfg.Scanner.OrderbookInterval.Duration,
		RetentionInterval: a.cfg.Archive.Interval.Duration,
		Logger:            a.logger,
	})
}

// buildAnalysis constructs the detector and stats aggregator over shared
// sources.
func (a *App) buildAnalysis(deps *Dependencies) (*analysis.Detector, *analysis.Stats) {
	marketSvc := a.buildMarketService(deps)
	oppSvc := service.NewOpportunityService(deps.Opps, deps.Bus, a.logger)
	books := cachedBooks{cache: deps.BookCache}

	detector := analysis.NewDetector(analysis.DetectorConfig{
		Snapshots: marketSvc,
		Books:     books,
		Opps:      oppSvc,
		Thresholds: signal.Thresholds{
			MinSpreadPct:       a.cfg.Detector.MinSpreadPct,
			SpreadCaptureRatio: a.cfg.Detector.SpreadCaptureRatio,
			ArbitrageDeviation: a.cfg.Detector.ArbitrageDeviation,
			NegRiskMaxCost:     a.cfg.Detector.NegRiskMaxCost,
			MomentumMinChange:  a.cfg.Detector.MomentumMinChange,
			VelocityHigh:       a.cfg.Detector.VelocityHigh,
			VelocityExtreme:    a.cfg.Detector.VelocityExtreme,
		},
		TTL:            a.cfg.Detector.OpportunityTTL.Duration,
		MaxConcurrency: a.cfg.Detector.MaxConcurrency,
		CycleTimeout:   a.cfg.Detector.CycleTimeout.Duration,
		Logger:         a.logger,
	})

	stats := analysis.NewStats(analysis.StatsConfig{
		Snapshots:    marketSvc,
		Books:        books,
		Store:        deps.Stats,
		PressureBand: a.cfg.Stats.PressureBand,
		Logger:       a.logger,
	})

	return detector, stats
}

func (a *App) buildMarketService(deps *Dependencies) *service.MarketService {
	return service.NewMarketService(deps.Markets, deps.MarketCache, a.cfg.Detector.MarketLimit, a.logger)
}

// watchAssets picks the CLOB token IDs the websocket should subscribe to,
// ordered by volume, and the token-to-market mapping the feed needs to key
// cached books.
func (a *App) watchAssets(ctx context.Context, deps *Dependencies) ([]string, map[string]string, error) {
	snaps, err := deps.Markets.ListActive(ctx, domain.ListOpts{Limit: a.cfg.Scanner.WsAssets})
	if err != nil {
		return nil, nil, err
	}
	assets := make([]string, 0, len(snaps))
	tokenToMarket := make(map[string]string, len(snaps))
	for _, snap := range snaps {
		if snap.TokenID == "" {
			continue
		}
		assets = append(assets, snap.TokenID)
		tokenToMarket[snap.TokenID] = snap.ID
	}
	return assets, tokenToMarket, nil
}

// cachedBooks adapts the order-book cache to the value-or-nil contract the
// analysis sources expect.
type cachedBooks struct {
	cache domain.OrderBookCache
}

func (c cachedBooks) GetOrderBook(ctx context.Context, marketID string) (*domain.OrderBookSnapshot, error) {
	book, err := c.cache.Get(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &book, nil
}
