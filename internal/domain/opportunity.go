package domain

import "time"

// OpportunityType identifies which signal calculator produced an opportunity.
type OpportunityType string

const (
	OpportunitySpread       OpportunityType = "spread"
	OpportunityArbitrage    OpportunityType = "arbitrage"
	OpportunityNegativeRisk OpportunityType = "negative_risk"
	OpportunityMomentum     OpportunityType = "momentum"
	OpportunityVolumeSpike  OpportunityType = "volume_spike"
)

// OpportunityStatus is the lifecycle state of an opportunity row.
type OpportunityStatus string

const (
	OpportunityActive   OpportunityStatus = "active"
	OpportunityExpired  OpportunityStatus = "expired"
	OpportunityResolved OpportunityStatus = "resolved"
)

// Opportunity is a detected trading signal. At most one active row exists per
// (MarketID, Type); repeat detections refresh the existing row.
type Opportunity struct {
	ID              string
	MarketID        string
	Type            OpportunityType
	ProfitPotential float64 // percent, >= 0
	ConfidenceScore float64 // 0-100
	Details         map[string]any
	Status          OpportunityStatus
	DetectedAt      time.Time
	ExpiresAt       time.Time
}

// Key returns the dedup key for reconciliation against the active set.
func (o Opportunity) Key() OpportunityKey {
	return OpportunityKey{MarketID: o.MarketID, Type: o.Type}
}

// OpportunityKey is the (market, signal type) pair that uniqueness is
// enforced on.
type OpportunityKey struct {
	MarketID string
	Type     OpportunityType
}

// MarketStats holds derived per-market statistics, recalculated on a slower
// cadence than opportunities and always overwritten latest-wins.
type MarketStats struct {
	MarketID         string
	SpreadPercentage float64
	BuyPressure      float64 // 0-100
	SellPressure     float64 // 0-100
	CalculatedAt     time.Time
}

// CycleSummary reports the outcome of one detection cycle.
type CycleSummary struct {
	Detected int
	Expired  int
	Errors   int
}

// StatsSummary reports the outcome of one stats aggregation cycle.
type StatsSummary struct {
	Updated int
	Errors  int
}
