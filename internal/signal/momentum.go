package signal

import (
	"math"

	"github.com/predictumhq/predictum/internal/domain"
)

// Momentum flags markets whose primary outcome moved sharply over the
// trailing 24h window. It is informational: profit potential stays 0 and
// confidence is deliberately capped below the arbitrage family.
type Momentum struct {
	t Thresholds
}

// NewMomentum creates the momentum calculator.
func NewMomentum(t Thresholds) *Momentum {
	return &Momentum{t: t}
}

func (m *Momentum) Type() domain.OpportunityType { return domain.OpportunityMomentum }

func (m *Momentum) NeedsOrderBook() bool { return false }

// Evaluate fires when |priceChange24h| strictly exceeds the threshold.
func (m *Momentum) Evaluate(snap domain.MarketSnapshot, _ *domain.OrderBookSnapshot) (*domain.Opportunity, error) {
	change := snap.PriceChange24h
	if math.Abs(change) <= m.t.MomentumMinChange {
		return nil, nil
	}

	direction := "up"
	if change < 0 {
		direction = "down"
	}

	// 30 base, 2 points per percentage point of movement, capped at 60 so a
	// momentum flag never outranks an arbitrage-family signal.
	confidence := 30 + math.Abs(change)*200
	if confidence > 60 {
		confidence = 60
	}

	return &domain.Opportunity{
		MarketID:        snap.ID,
		Type:            domain.OpportunityMomentum,
		ProfitPotential: 0,
		ConfidenceScore: confidence,
		Details: map[string]any{
			"price_change_24h": change,
			"direction":        direction,
			"current_price":    snap.YesPrice(),
		},
	}, nil
}
