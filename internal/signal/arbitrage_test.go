package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestArbitrage_Evaluate(t *testing.T) {
	calc := NewArbitrage(Defaults())

	t.Run("fires when prices sum above one", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", OutcomePrices: []float64{0.55, 0.50}}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)

		assert.Equal(t, domain.OpportunityArbitrage, opp.Type)
		assert.InDelta(t, 5.0, opp.ProfitPotential, 1e-9)
		// 60 + 0.05*1000 = 110, clamped to 100
		assert.InDelta(t, 100, opp.ConfidenceScore, 1e-9)
	})

	t.Run("fires when prices sum below one", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", OutcomePrices: []float64{0.45, 0.50}}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)
		assert.InDelta(t, 5.0, opp.ProfitPotential, 1e-9)
	})

	t.Run("exact deviation does not fire", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", OutcomePrices: []float64{0.52, 0.50}}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		assert.Nil(t, opp)
	})

	t.Run("single outcome is a data quality error", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", OutcomePrices: []float64{0.5}}
		_, err := calc.Evaluate(snap, nil)

		var dq *domain.DataQualityError
		require.ErrorAs(t, err, &dq)
		assert.Equal(t, "outcome_prices", dq.Field)
	})

	t.Run("negative price is a data quality error", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", OutcomePrices: []float64{1.2, -0.1}}
		_, err := calc.Evaluate(snap, nil)

		var dq *domain.DataQualityError
		require.ErrorAs(t, err, &dq)
	})

	t.Run("balanced prices do not fire", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", OutcomePrices: []float64{0.5, 0.5}}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		assert.Nil(t, opp)
	})
}
