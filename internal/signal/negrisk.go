package signal

import (
	"sort"

	"github.com/predictumhq/predictum/internal/domain"
)

// NegativeRisk detects groups of mutually exclusive markets where buying NO
// on every member costs less than the guaranteed $1 payout. It runs once per
// group, never per market.
type NegativeRisk struct {
	t Thresholds
}

// NewNegativeRisk creates the negative-risk group calculator.
func NewNegativeRisk(t Thresholds) *NegativeRisk {
	return &NegativeRisk{t: t}
}

func (n *NegativeRisk) Type() domain.OpportunityType { return domain.OpportunityNegativeRisk }

// EvaluateGroup fires when the group's total NO cost is strictly below the
// threshold. Singleton groups never fire; a member without a usable YES
// price is a data-quality gap for the whole group, since the combined cost
// cannot be trusted with a leg missing.
func (n *NegativeRisk) EvaluateGroup(group domain.NegRiskGroup) (*domain.Opportunity, error) {
	if len(group.Members) < 2 {
		return nil, nil
	}

	members := make([]map[string]any, 0, len(group.Members))
	var totalNoCost float64
	for _, m := range group.Members {
		yes := m.YesPrice()
		if yes <= 0 || yes >= 1 {
			return nil, &domain.DataQualityError{MarketID: m.ID, Field: "outcome_prices", Reason: "yes price outside (0,1)"}
		}
		no := 1 - yes
		totalNoCost += no
		members = append(members, map[string]any{
			"market_id": m.ID,
			"no_price":  no,
		})
	}

	if totalNoCost >= n.t.NegRiskMaxCost {
		return nil, nil
	}

	excess := 1 - totalNoCost

	// The row is keyed on a market ID like every other signal; the lowest
	// member ID keeps the key deterministic across cycles regardless of
	// snapshot ordering.
	ids := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	anchor := ids[0]

	return &domain.Opportunity{
		MarketID:        anchor,
		Type:            domain.OpportunityNegativeRisk,
		ProfitPotential: excess * 100,
		ConfidenceScore: clampScore(70 + excess*500),
		Details: map[string]any{
			"group_id":      group.ID,
			"members":       members,
			"total_no_cost": totalNoCost,
			"excess":        excess,
		},
	}, nil
}
