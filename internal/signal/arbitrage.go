package signal

import (
	"math"

	"github.com/predictumhq/predictum/internal/domain"
)

// Arbitrage detects internal mispricing: a single market whose own outcome
// prices fail to sum to 1.0. This is distinct from negative risk, which
// spans a group of markets.
type Arbitrage struct {
	t Thresholds
}

// NewArbitrage creates the arbitrage calculator.
func NewArbitrage(t Thresholds) *Arbitrage {
	return &Arbitrage{t: t}
}

func (a *Arbitrage) Type() domain.OpportunityType { return domain.OpportunityArbitrage }

func (a *Arbitrage) NeedsOrderBook() bool { return false }

// Evaluate fires when |sum(outcomePrices) - 1| strictly exceeds the deviation
// threshold. Fewer than two outcome prices is a data-quality gap.
func (a *Arbitrage) Evaluate(snap domain.MarketSnapshot, _ *domain.OrderBookSnapshot) (*domain.Opportunity, error) {
	if len(snap.OutcomePrices) < 2 {
		return nil, &domain.DataQualityError{MarketID: snap.ID, Field: "outcome_prices", Reason: "fewer than two outcomes"}
	}

	var sum float64
	for _, p := range snap.OutcomePrices {
		if p < 0 {
			return nil, &domain.DataQualityError{MarketID: snap.ID, Field: "outcome_prices", Reason: "negative price"}
		}
		sum += p
	}

	deviation := math.Abs(sum - 1.0)
	if deviation <= a.t.ArbitrageDeviation {
		return nil, nil
	}

	return &domain.Opportunity{
		MarketID:        snap.ID,
		Type:            domain.OpportunityArbitrage,
		ProfitPotential: deviation * 100,
		ConfidenceScore: clampScore(60 + deviation*1000),
		Details: map[string]any{
			"outcome_prices": snap.OutcomePrices,
			"price_sum":      sum,
			"deviation":      deviation,
		},
	}, nil
}
