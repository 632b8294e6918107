package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner is a long-lived worker loop. Feed implementations (the CLOB
// websocket) satisfy it directly.
type Runner interface {
	Run(ctx context.Context) error
}

// Orchestrator supervises the data-collection goroutines: market scraping,
// order book scanning, the optional websocket feed, and retention archival.
// Nil workers are skipped, so each operating mode assembles only what it
// needs.
type Orchestrator struct {
	marketScraper     *MarketScraper
	bookScanner       *OrderBookScanner
	feed              Runner
	retention         *RetentionWorker
	marketInterval    time.Duration
	orderbookInterval time.Duration
	retentionInterval time.Duration
	logger            *slog.Logger
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	MarketScraper     *MarketScraper
	BookScanner       *OrderBookScanner
	Feed              Runner
	Retention         *RetentionWorker
	MarketInterval    time.Duration
	OrderbookInterval time.Duration
	RetentionInterval time.Duration
	Logger            *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		marketScraper:     cfg.MarketScraper,
		bookScanner:       cfg.BookScanner,
		feed:              cfg.Feed,
		retention:         cfg.Retention,
		marketInterval:    cfg.MarketInterval,
		orderbookInterval: cfg.OrderbookInterval,
		retentionInterval: cfg.RetentionInterval,
		logger:            cfg.Logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts every configured worker in an errgroup. A worker failing with a
// non-context error cancels the shared context and Run returns that error;
// cancellation of ctx is a clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("market_interval", o.marketInterval),
		slog.Duration("orderbook_interval", o.orderbookInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.marketScraper != nil {
		g.Go(func() error {
			err := o.marketScraper.RunLoop(ctx, o.marketInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("market scraper: %w", err)
		})
	}

	if o.bookScanner != nil {
		g.Go(func() error {
			err := o.bookScanner.RunLoop(ctx, o.orderbookInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("orderbook scanner: %w", err)
		})
	}

	if o.feed != nil {
		g.Go(func() error {
			err := o.feed.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket feed: %w", err)
		})
	}

	if o.retention != nil {
		g.Go(func() error {
			err := o.retention.RunLoop(ctx, o.retentionInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("retention: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
