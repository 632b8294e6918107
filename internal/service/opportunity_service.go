package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// OpportunitiesChannel is the signal bus channel new and refreshed
// opportunities are announced on.
const OpportunitiesChannel = "opportunities"

// OpportunityService fronts the opportunity store and announces every
// successful write on the signal bus. It implements the detector's
// OpportunityWriter.
type OpportunityService struct {
	opps   domain.OpportunityStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewOpportunityService creates an OpportunityService. bus may be nil when
// no consumers want live announcements.
func NewOpportunityService(
	opps domain.OpportunityStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		opps:   opps,
		bus:    bus,
		logger: logger.With(slog.String("component", "opportunity_service")),
	}
}

// Upsert writes the opportunity and publishes it. Publish failures are
// logged, not returned; the row is already durable.
func (s *OpportunityService) Upsert(ctx context.Context, opp domain.Opportunity) error {
	if err := s.opps.Upsert(ctx, opp); err != nil {
		return fmt.Errorf("opportunity_service: upsert: %w", err)
	}

	if s.bus != nil {
		payload, err := json.Marshal(opp)
		if err == nil {
			err = s.bus.Publish(ctx, OpportunitiesChannel, payload)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "publish failed",
				slog.String("market_id", opp.MarketID),
				slog.String("type", string(opp.Type)),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// ExpireExcept passes through to the store.
func (s *OpportunityService) ExpireExcept(ctx context.Context, keep []domain.OpportunityKey) (int64, error) {
	n, err := s.opps.ExpireExcept(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("opportunity_service: expire except: %w", err)
	}
	return n, nil
}

// ExpireElapsed passes through to the store.
func (s *OpportunityService) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.opps.ExpireElapsed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("opportunity_service: expire elapsed: %w", err)
	}
	return n, nil
}

// ListActive returns the current active set, strongest first.
func (s *OpportunityService) ListActive(ctx context.Context) ([]domain.Opportunity, error) {
	opps, err := s.opps.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("opportunity_service: list active: %w", err)
	}
	return opps, nil
}
