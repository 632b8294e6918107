package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestMomentum_Evaluate(t *testing.T) {
	calc := NewMomentum(Defaults())

	t.Run("fires on upward move", func(t *testing.T) {
		snap := domain.MarketSnapshot{
			ID:             "mkt-1",
			PriceChange24h: 0.08,
			OutcomePrices:  []float64{0.62},
		}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)

		assert.Equal(t, domain.OpportunityMomentum, opp.Type)
		assert.Zero(t, opp.ProfitPotential)
		assert.InDelta(t, 46, opp.ConfidenceScore, 1e-9) // 30 + 0.08*200
		assert.Equal(t, "up", opp.Details["direction"])
	})

	t.Run("fires on downward move", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", PriceChange24h: -0.10}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)
		assert.Equal(t, "down", opp.Details["direction"])
	})

	t.Run("exact threshold does not fire", func(t *testing.T) {
		for _, change := range []float64{0.05, -0.05} {
			snap := domain.MarketSnapshot{ID: "mkt-1", PriceChange24h: change}
			opp, err := calc.Evaluate(snap, nil)
			require.NoError(t, err)
			assert.Nil(t, opp)
		}
	})

	t.Run("confidence caps at 60", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", PriceChange24h: 0.40}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)
		assert.Equal(t, 60.0, opp.ConfidenceScore)
	})
}
