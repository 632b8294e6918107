package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictumhq/predictum/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketUpsertQuery = `
	INSERT INTO markets (
		id, question, slug, token_id,
		volume_24h, volume_7d, volume_30d, liquidity,
		best_bid, best_ask, outcome_prices, price_change_24h,
		neg_risk_group, accepting_orders, fetched_at, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12,
		$13, $14, $15, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		question         = EXCLUDED.question,
		slug             = EXCLUDED.slug,
		token_id         = EXCLUDED.token_id,
		volume_24h       = EXCLUDED.volume_24h,
		volume_7d        = EXCLUDED.volume_7d,
		volume_30d       = EXCLUDED.volume_30d,
		liquidity        = EXCLUDED.liquidity,
		best_bid         = EXCLUDED.best_bid,
		best_ask         = EXCLUDED.best_ask,
		outcome_prices   = EXCLUDED.outcome_prices,
		price_change_24h = EXCLUDED.price_change_24h,
		neg_risk_group   = EXCLUDED.neg_risk_group,
		accepting_orders = EXCLUDED.accepting_orders,
		fetched_at       = EXCLUDED.fetched_at,
		updated_at       = NOW()`

// Upsert inserts or refreshes a single snapshot.
func (s *MarketStore) Upsert(ctx context.Context, snap domain.MarketSnapshot) error {
	_, err := s.pool.Exec(ctx, marketUpsertQuery, marketArgs(snap)...)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", snap.ID, err)
	}
	return nil
}

// UpsertBatch inserts or refreshes multiple snapshots in one batch round trip.
func (s *MarketStore) UpsertBatch(ctx context.Context, snaps []domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(marketUpsertQuery, marketArgs(snap)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range snaps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d (%s): %w", i, snaps[i].ID, err)
		}
	}
	return nil
}

func marketArgs(snap domain.MarketSnapshot) []any {
	prices := snap.OutcomePrices
	if prices == nil {
		prices = []float64{}
	}
	return []any{
		snap.ID, snap.Question, snap.Slug, snap.TokenID,
		snap.Volume24h, snap.Volume7d, snap.Volume30d, snap.Liquidity,
		snap.BestBid, snap.BestAsk, prices, snap.PriceChange24h,
		snap.NegRiskGroupID, snap.AcceptingOrders, snap.FetchedAt,
	}
}

const marketCols = `id, question, slug, token_id,
	volume_24h, volume_7d, volume_30d, liquidity,
	best_bid, best_ask, outcome_prices, price_change_24h,
	neg_risk_group, accepting_orders, fetched_at, updated_at`

func scanMarket(row pgx.Row) (domain.MarketSnapshot, error) {
	var snap domain.MarketSnapshot
	err := row.Scan(
		&snap.ID, &snap.Question, &snap.Slug, &snap.TokenID,
		&snap.Volume24h, &snap.Volume7d, &snap.Volume30d, &snap.Liquidity,
		&snap.BestBid, &snap.BestAsk, &snap.OutcomePrices, &snap.PriceChange24h,
		&snap.NegRiskGroupID, &snap.AcceptingOrders, &snap.FetchedAt, &snap.UpdatedAt,
	)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return snap, nil
}

// GetByID retrieves a snapshot by its condition ID.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	snap, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return snap, nil
}

// ListActive returns markets still accepting orders, highest 24h volume first.
func (s *MarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.MarketSnapshot, error) {
	query := `SELECT ` + marketCols + ` FROM markets
		WHERE accepting_orders ORDER BY volume_24h DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active markets: %w", err)
	}
	defer rows.Close()

	var snaps []domain.MarketSnapshot
	for rows.Next() {
		snap, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan active market: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active markets rows: %w", err)
	}
	return snaps, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}
