package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictumhq/predictum/internal/domain"
)

// MarketStatsStore implements domain.MarketStatsStore using PostgreSQL, one
// row per market, latest write wins.
type MarketStatsStore struct {
	pool *pgxpool.Pool
}

// NewMarketStatsStore creates a new MarketStatsStore backed by the given pool.
func NewMarketStatsStore(pool *pgxpool.Pool) *MarketStatsStore {
	return &MarketStatsStore{pool: pool}
}

// Overwrite replaces the stats row for a market.
func (s *MarketStatsStore) Overwrite(ctx context.Context, stats domain.MarketStats) error {
	const query = `
		INSERT INTO market_stats (
			market_id, spread_percentage, buy_pressure, sell_pressure, calculated_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_id) DO UPDATE SET
			spread_percentage = EXCLUDED.spread_percentage,
			buy_pressure      = EXCLUDED.buy_pressure,
			sell_pressure     = EXCLUDED.sell_pressure,
			calculated_at     = EXCLUDED.calculated_at`

	_, err := s.pool.Exec(ctx, query,
		stats.MarketID, stats.SpreadPercentage,
		stats.BuyPressure, stats.SellPressure, stats.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: overwrite stats %s: %w", stats.MarketID, err)
	}
	return nil
}

// Get returns the stats row for a market, or domain.ErrNotFound.
func (s *MarketStatsStore) Get(ctx context.Context, marketID string) (domain.MarketStats, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT market_id, spread_percentage, buy_pressure, sell_pressure, calculated_at
		 FROM market_stats WHERE market_id = $1`, marketID)

	var stats domain.MarketStats
	err := row.Scan(
		&stats.MarketID, &stats.SpreadPercentage,
		&stats.BuyPressure, &stats.SellPressure, &stats.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketStats{}, domain.ErrNotFound
		}
		return domain.MarketStats{}, fmt.Errorf("postgres: get stats %s: %w", marketID, err)
	}
	return stats, nil
}
