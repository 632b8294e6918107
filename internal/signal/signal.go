// Package signal provides the pure calculators that map a market snapshot
// (plus an optional order book) to at most one candidate opportunity per
// signal type. Calculators are stateless and order-independent; thresholds
// come in through Thresholds so the aggregator and tests can probe boundary
// behavior without touching calculator logic.
package signal

import (
	"github.com/predictumhq/predictum/internal/domain"
)

// Calculator evaluates one signal type for a single market. A nil opportunity
// with a nil error means the market simply does not qualify; a
// *domain.DataQualityError means a required field was missing or malformed
// and the market should be logged and skipped.
type Calculator interface {
	Type() domain.OpportunityType
	// NeedsOrderBook reports whether the calculator wants the market's order
	// book. Book-less markets still run the calculator with a nil book.
	NeedsOrderBook() bool
	Evaluate(snap domain.MarketSnapshot, book *domain.OrderBookSnapshot) (*domain.Opportunity, error)
}

// GroupCalculator evaluates a signal that spans a whole negative-risk group
// rather than a single market.
type GroupCalculator interface {
	Type() domain.OpportunityType
	EvaluateGroup(group domain.NegRiskGroup) (*domain.Opportunity, error)
}

// Thresholds holds every named constant the calculators fire on. Zero values
// are not usable; build from config.Detector or use Defaults in tests.
type Thresholds struct {
	// MinSpreadPct is the bid/ask spread percentage above which the spread
	// calculator fires (strict).
	MinSpreadPct float64
	// SpreadCaptureRatio scales spread into profit potential; only part of
	// the quoted spread is realistically captured by a resting order.
	SpreadCaptureRatio float64
	// ArbitrageDeviation is the minimum |sum(outcomePrices) - 1| (strict).
	ArbitrageDeviation float64
	// NegRiskMaxCost is the total NO cost below which a group fires (strict);
	// the gap to 1.0 leaves margin for fees and slippage.
	NegRiskMaxCost float64
	// MomentumMinChange is the minimum |24h price change| (strict).
	MomentumMinChange float64
	// VelocityHigh and VelocityExtreme classify volume velocity (both
	// strict, so exactly VelocityExtreme lands in HIGH).
	VelocityHigh    float64
	VelocityExtreme float64
}

// Defaults returns the production thresholds.
func Defaults() Thresholds {
	return Thresholds{
		MinSpreadPct:       1.0,
		SpreadCaptureRatio: 0.5,
		ArbitrageDeviation: 0.02,
		NegRiskMaxCost:     0.99,
		MomentumMinChange:  0.05,
		VelocityHigh:       2.0,
		VelocityExtreme:    3.0,
	}
}

// All returns the per-market calculators in a stable order.
func All(t Thresholds) []Calculator {
	return []Calculator{
		NewSpread(t),
		NewArbitrage(t),
		NewMomentum(t),
		NewVolumeVelocity(t),
	}
}
