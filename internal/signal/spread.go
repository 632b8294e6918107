package signal

import (
	"github.com/predictumhq/predictum/internal/domain"
)

// Spread detects wide bid/ask spreads that a resting order could capture.
// Best bid/ask come from the order book when one is available, falling back
// to the snapshot's cached quotes.
type Spread struct {
	t Thresholds
}

// NewSpread creates the spread calculator.
func NewSpread(t Thresholds) *Spread {
	return &Spread{t: t}
}

func (s *Spread) Type() domain.OpportunityType { return domain.OpportunitySpread }

func (s *Spread) NeedsOrderBook() bool { return true }

// Evaluate fires when the spread percentage of the best ask exceeds the
// threshold. A zero ask is a data-quality gap, not an opportunity; a crossed
// or locked book (ask <= bid) never fires.
func (s *Spread) Evaluate(snap domain.MarketSnapshot, book *domain.OrderBookSnapshot) (*domain.Opportunity, error) {
	bid, ask := snap.BestBid, snap.BestAsk
	if book != nil {
		if b := book.BestBid(); b > 0 {
			bid = b
		}
		if a := book.BestAsk(); a > 0 {
			ask = a
		}
	}
	if ask == 0 {
		return nil, &domain.DataQualityError{MarketID: snap.ID, Field: "best_ask", Reason: "zero or missing"}
	}
	if ask <= bid || bid <= 0 {
		return nil, nil
	}

	spread := ask - bid
	spreadPct := spread / ask * 100
	if spreadPct <= s.t.MinSpreadPct {
		return nil, nil
	}

	return &domain.Opportunity{
		MarketID:        snap.ID,
		Type:            domain.OpportunitySpread,
		ProfitPotential: spreadPct * s.t.SpreadCaptureRatio,
		ConfidenceScore: liquidityConfidence(snap.Liquidity),
		Details: map[string]any{
			"best_bid":   bid,
			"best_ask":   ask,
			"spread":     spread,
			"spread_pct": spreadPct,
			"liquidity":  snap.Liquidity,
		},
	}, nil
}
