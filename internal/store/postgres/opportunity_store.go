package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictumhq/predictum/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL. The
// partial unique index on (market_id, type) WHERE status = 'active' carries
// the dedup invariant; concurrent writers racing on the same key land on the
// DO UPDATE arm instead of erroring.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Upsert inserts a new active opportunity or refreshes the existing active
// row for the same (market, type). A refresh keeps the original row ID so
// downstream consumers see a stable identity across re-detections.
func (s *OpportunityStore) Upsert(ctx context.Context, opp domain.Opportunity) error {
	id := opp.ID
	if id == "" {
		id = uuid.NewString()
	}

	details, err := json.Marshal(opp.Details)
	if err != nil {
		return fmt.Errorf("postgres: marshal opportunity details %s/%s: %w", opp.MarketID, opp.Type, err)
	}

	const query = `
		INSERT INTO opportunities (
			id, market_id, type, profit_potential, confidence_score,
			details, status, detected_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $8)
		ON CONFLICT (market_id, type) WHERE status = 'active' DO UPDATE SET
			profit_potential = EXCLUDED.profit_potential,
			confidence_score = EXCLUDED.confidence_score,
			details          = EXCLUDED.details,
			detected_at      = EXCLUDED.detected_at,
			expires_at       = EXCLUDED.expires_at`

	_, err = s.pool.Exec(ctx, query,
		id, opp.MarketID, string(opp.Type),
		opp.ProfitPotential, opp.ConfidenceScore,
		details, opp.DetectedAt, opp.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert opportunity %s/%s: %w", opp.MarketID, opp.Type, err)
	}
	return nil
}

const opportunityCols = `id, market_id, type, profit_potential, confidence_score,
	details, status, detected_at, expires_at`

func scanOpportunity(row pgx.Row) (domain.Opportunity, error) {
	var opp domain.Opportunity
	var typ, status string
	var details []byte
	err := row.Scan(
		&opp.ID, &opp.MarketID, &typ,
		&opp.ProfitPotential, &opp.ConfidenceScore,
		&details, &status, &opp.DetectedAt, &opp.ExpiresAt,
	)
	if err != nil {
		return domain.Opportunity{}, err
	}
	opp.Type = domain.OpportunityType(typ)
	opp.Status = domain.OpportunityStatus(status)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &opp.Details); err != nil {
			return domain.Opportunity{}, fmt.Errorf("unmarshal details: %w", err)
		}
	}
	return opp, nil
}

// ListActive returns every active opportunity, strongest first.
func (s *OpportunityStore) ListActive(ctx context.Context) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+opportunityCols+` FROM opportunities
		 WHERE status = 'active'
		 ORDER BY confidence_score DESC, profit_potential DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active opportunities rows: %w", err)
	}
	return opps, nil
}

// ExpireExcept marks every active opportunity whose key is absent from keep
// as expired and returns the number of rows changed. An empty keep set
// expires the whole active set.
func (s *OpportunityStore) ExpireExcept(ctx context.Context, keep []domain.OpportunityKey) (int64, error) {
	marketIDs := make([]string, 0, len(keep))
	types := make([]string, 0, len(keep))
	for _, k := range keep {
		marketIDs = append(marketIDs, k.MarketID)
		types = append(types, string(k.Type))
	}

	const query = `
		UPDATE opportunities SET status = 'expired'
		WHERE status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM unnest($1::text[], $2::text[]) AS k(market_id, type)
			WHERE k.market_id = opportunities.market_id
			  AND k.type = opportunities.type
		  )`

	tag, err := s.pool.Exec(ctx, query, marketIDs, types)
	if err != nil {
		return 0, fmt.Errorf("postgres: expire opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExpireElapsed expires active rows whose expires_at has passed.
func (s *OpportunityStore) ExpireElapsed(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET status = 'expired'
		 WHERE status = 'active' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("postgres: expire elapsed opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListExpiredBefore returns expired rows last detected before the cutoff.
func (s *OpportunityStore) ListExpiredBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+opportunityCols+` FROM opportunities
		 WHERE status = 'expired' AND detected_at < $1
		 ORDER BY detected_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expired opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan expired opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list expired opportunities rows: %w", err)
	}
	return opps, nil
}

// DeleteExpiredBefore prunes expired rows last detected before the cutoff.
func (s *OpportunityStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM opportunities
		 WHERE status = 'expired' AND detected_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired opportunities: %w", err)
	}
	return tag.RowsAffected(), nil
}
