package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestVolumeVelocity_Evaluate(t *testing.T) {
	calc := NewVolumeVelocity(Defaults())

	t.Run("extreme velocity", func(t *testing.T) {
		// daily avg 100, velocity 3.5
		snap := domain.MarketSnapshot{ID: "mkt-1", Volume24h: 350, Volume7d: 700}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)

		assert.Equal(t, domain.OpportunityVolumeSpike, opp.Type)
		assert.Equal(t, VelocityLevelExtreme, opp.Details["level"])
		assert.Equal(t, 75.0, opp.ConfidenceScore)
	})

	t.Run("high velocity", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", Volume24h: 250, Volume7d: 700}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)
		assert.Equal(t, VelocityLevelHigh, opp.Details["level"])
		assert.Equal(t, 55.0, opp.ConfidenceScore)
	})

	t.Run("exactly extreme boundary lands in high", func(t *testing.T) {
		// velocity exactly 3.0
		snap := domain.MarketSnapshot{ID: "mkt-1", Volume24h: 300, Volume7d: 700}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		require.NotNil(t, opp)
		assert.Equal(t, VelocityLevelHigh, opp.Details["level"])
	})

	t.Run("exactly high boundary does not fire", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", Volume24h: 200, Volume7d: 700}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		assert.Nil(t, opp)
	})

	t.Run("no trailing volume means no signal", func(t *testing.T) {
		snap := domain.MarketSnapshot{ID: "mkt-1", Volume24h: 500}
		opp, err := calc.Evaluate(snap, nil)
		require.NoError(t, err)
		assert.Nil(t, opp)
	})
}
