// Package app wires configuration into running services and dispatches the
// selected operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predictumhq/predictum/internal/config"
)

// App owns the wired dependency graph for one process lifetime.
type App struct {
	cfg    config.Config
	logger *slog.Logger
}

// New creates an App from validated configuration.
func New(cfg config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run wires every backend the mode needs and blocks until ctx is cancelled
// or a worker fails. Backends are closed on the way out.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	a.logger.Info("starting",
		slog.String("mode", a.cfg.Mode),
		slog.Bool("ws_enabled", a.cfg.Scanner.WsEnabled),
		slog.Bool("archive_enabled", a.cfg.S3.Enabled),
	)

	switch a.cfg.Mode {
	case config.ModeData:
		return a.runData(ctx, deps)
	case config.ModeAnalysis:
		return a.runAnalysis(ctx, deps)
	case config.ModeFull:
		return a.runFull(ctx, deps)
	case config.ModeOnce:
		return a.runOnce(ctx, deps)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}
