package domain

import "time"

// MarketSnapshot is the latest known state of a single prediction market,
// normalized from the Gamma API. Snapshots are immutable once produced; a
// detection cycle always operates on the set it was handed at the cycle
// boundary.
type MarketSnapshot struct {
	ID              string // condition ID, stable across refreshes
	Question        string
	Slug            string
	TokenID         string // CLOB token ID of the primary (YES) outcome
	Volume24h       float64
	Volume7d        float64
	Volume30d       float64
	Liquidity       float64
	BestBid         float64
	BestAsk         float64
	OutcomePrices   []float64 // one probability per outcome, ideally summing to 1.0
	PriceChange24h  float64   // absolute change of the primary outcome price
	NegRiskGroupID  string    // shared by mutually exclusive markets, empty otherwise
	AcceptingOrders bool
	FetchedAt       time.Time
	UpdatedAt       time.Time
}

// YesPrice returns the primary outcome probability, or 0 when the snapshot
// carries no outcome prices.
func (m MarketSnapshot) YesPrice() float64 {
	if len(m.OutcomePrices) == 0 {
		return 0
	}
	return m.OutcomePrices[0]
}

// NegRiskGroup is the set of mutually exclusive markets sharing a
// NegRiskGroupID. It is derived per cycle and never persisted on its own.
type NegRiskGroup struct {
	ID      string
	Members []MarketSnapshot
}

// GroupByNegRisk buckets snapshots by their NegRiskGroupID, dropping markets
// that do not belong to any group. Member order follows the input order.
func GroupByNegRisk(snapshots []MarketSnapshot) []NegRiskGroup {
	index := make(map[string]int)
	var groups []NegRiskGroup
	for _, snap := range snapshots {
		if snap.NegRiskGroupID == "" {
			continue
		}
		i, ok := index[snap.NegRiskGroupID]
		if !ok {
			i = len(groups)
			index[snap.NegRiskGroupID] = i
			groups = append(groups, NegRiskGroup{ID: snap.NegRiskGroupID})
		}
		groups[i].Members = append(groups[i].Members, snap)
	}
	return groups
}
