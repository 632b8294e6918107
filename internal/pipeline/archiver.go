package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredArchiver uploads and prunes expired opportunities older than a
// cutoff, returning how many rows it moved.
type ExpiredArchiver interface {
	ArchiveExpired(ctx context.Context, before time.Time) (int64, error)
}

// RetentionWorker runs the archiver on a slow cadence, keeping the
// opportunities table bounded to the retention window.
type RetentionWorker struct {
	archiver      ExpiredArchiver
	retentionDays int
	logger        *slog.Logger
}

// NewRetentionWorker creates a new RetentionWorker.
func NewRetentionWorker(archiver ExpiredArchiver, retentionDays int, logger *slog.Logger) *RetentionWorker {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &RetentionWorker{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "retention")),
	}
}

// Run executes a single archive pass against the retention cutoff.
func (w *RetentionWorker) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(w.retentionDays) * 24 * time.Hour)

	archived, err := w.archiver.ArchiveExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving opportunities before %v: %w", cutoff, err)
	}

	w.logger.Info("archive run complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("archived", archived),
	)
	return nil
}

// RunLoop runs the archiver on a repeating interval until the context is
// cancelled. The first pass waits for one full interval; archival is never
// urgent at startup.
func (w *RetentionWorker) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retention loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				if ctx.Err() != nil {
					return err
				}
				w.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
