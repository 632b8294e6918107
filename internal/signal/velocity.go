package signal

import (
	"github.com/predictumhq/predictum/internal/domain"
)

// Velocity classification levels recorded in the opportunity details.
const (
	VelocityLevelHigh    = "HIGH"
	VelocityLevelExtreme = "EXTREME"
)

// Confidence assigned per classification. Informational like momentum.
const (
	velocityHighConfidence    = 55
	velocityExtremeConfidence = 75
)

// VolumeVelocity flags anomalous trading activity: 24h volume measured
// against the trailing 7-day daily average.
type VolumeVelocity struct {
	t Thresholds
}

// NewVolumeVelocity creates the volume-velocity calculator.
func NewVolumeVelocity(t Thresholds) *VolumeVelocity {
	return &VolumeVelocity{t: t}
}

func (v *VolumeVelocity) Type() domain.OpportunityType { return domain.OpportunityVolumeSpike }

func (v *VolumeVelocity) NeedsOrderBook() bool { return false }

// Evaluate computes velocity = volume24h / (volume7d / 7). A zero trailing
// average leaves velocity undefined, so no signal. Both classification
// boundaries are strict: exactly 3.0 is HIGH, not EXTREME.
func (v *VolumeVelocity) Evaluate(snap domain.MarketSnapshot, _ *domain.OrderBookSnapshot) (*domain.Opportunity, error) {
	dailyAvg := snap.Volume7d / 7
	if dailyAvg == 0 {
		return nil, nil
	}

	velocity := snap.Volume24h / dailyAvg

	var level string
	var confidence float64
	switch {
	case velocity > v.t.VelocityExtreme:
		level = VelocityLevelExtreme
		confidence = velocityExtremeConfidence
	case velocity > v.t.VelocityHigh:
		level = VelocityLevelHigh
		confidence = velocityHighConfidence
	default:
		return nil, nil
	}

	return &domain.Opportunity{
		MarketID:        snap.ID,
		Type:            domain.OpportunityVolumeSpike,
		ProfitPotential: 0,
		ConfidenceScore: confidence,
		Details: map[string]any{
			"velocity":     velocity,
			"level":        level,
			"volume_24h":   snap.Volume24h,
			"daily_avg_7d": dailyAvg,
		},
	}, nil
}
