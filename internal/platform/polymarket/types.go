package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Gamma sends
// volume and liquidity both ways depending on endpoint version.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
// The API has shipped the same data under different field names across
// versions, so identity and volume fields exist in several spellings and
// are reconciled in ToSnapshot.
type APIMarket struct {
	ID             string   `json:"id"`
	ConditionID    string   `json:"conditionId"`
	ConditionIDAlt string   `json:"condition_id"`
	Question       string   `json:"question"`
	Slug           string   `json:"slug"`
	Active         flexBool `json:"active"`
	Closed         bool     `json:"closed"`

	// JSON-encoded arrays, e.g. "[\"0.52\",\"0.48\"]".
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`

	Volume     flexFloat `json:"volume"`
	Volume24h  flexFloat `json:"volume_24h"`
	Volume24hr flexFloat `json:"volume24hr"`
	Volume1wk  flexFloat `json:"volume1wk"`
	Volume1mo  flexFloat `json:"volume1mo"`
	Liquidity  flexFloat `json:"liquidity"`

	BestBid          flexFloat `json:"bestBid"`
	BestAsk          flexFloat `json:"bestAsk"`
	OneDayPriceChg   flexFloat `json:"oneDayPriceChange"`
	LastTradePrice   flexFloat `json:"lastTradePrice"`
	NegRisk          flexBool  `json:"negRisk"`
	NegRiskMarketID  string    `json:"negRiskMarketID"`
	AcceptingOrders  flexBool  `json:"acceptingOrders"`
	EnableOrderBook  flexBool  `json:"enableOrderBook"`
	EndDateISO       string    `json:"endDateIso"`
	UpdatedAt        string    `json:"updatedAt"`
	SpreadFromGamma  flexFloat `json:"spread"`
	UmaResolutionStx string    `json:"umaResolutionStatus"`
}

// marketID resolves the market identity with conditionId taking priority
// over condition_id, then the bare id.
func (m *APIMarket) marketID() string {
	if m.ConditionID != "" {
		return m.ConditionID
	}
	if m.ConditionIDAlt != "" {
		return m.ConditionIDAlt
	}
	return m.ID
}

// volume24h resolves the 24h volume with volume24hr taking priority over
// volume_24h, then lifetime volume as a last resort.
func (m *APIMarket) volume24h() float64 {
	if m.Volume24hr > 0 {
		return float64(m.Volume24hr)
	}
	if m.Volume24h > 0 {
		return float64(m.Volume24h)
	}
	return float64(m.Volume)
}

// parseJSONFloats decodes a Gamma JSON-encoded array of numeric strings.
func parseJSONFloats(raw string) []float64 {
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		v, err := strconv.ParseFloat(it, 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// parseJSONStrings decodes a Gamma JSON-encoded array of strings.
func parseJSONStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// ToSnapshot converts a Gamma APIMarket into a domain.MarketSnapshot,
// reconciling the duplicated field spellings. The first CLOB token is the
// YES asset used for order book lookups.
func (m *APIMarket) ToSnapshot(now time.Time) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		ID:              m.marketID(),
		Question:        m.Question,
		Slug:            m.Slug,
		Volume24h:       m.volume24h(),
		Volume7d:        float64(m.Volume1wk),
		Volume30d:       float64(m.Volume1mo),
		Liquidity:       float64(m.Liquidity),
		BestBid:         float64(m.BestBid),
		BestAsk:         float64(m.BestAsk),
		OutcomePrices:   parseJSONFloats(m.OutcomePrices),
		PriceChange24h:  float64(m.OneDayPriceChg),
		NegRiskGroupID:  m.NegRiskMarketID,
		AcceptingOrders: bool(m.AcceptingOrders) && !m.Closed,
		FetchedAt:       now,
	}
	if tokens := parseJSONStrings(m.ClobTokenIDs); len(tokens) > 0 {
		snap.TokenID = tokens[0]
	}
	if !bool(m.NegRisk) {
		snap.NegRiskGroupID = ""
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		snap.UpdatedAt = t
	} else {
		snap.UpdatedAt = now
	}
	return snap
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is an order book as returned by the CLOB /book endpoint.
type APIBook struct {
	Market    string       `json:"market"`
	AssetID   string       `json:"asset_id"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
	Bids      []APIBookLvl `json:"bids"`
	Asks      []APIBookLvl `json:"asks"`
}

// APIBookLvl is a single price level with string-encoded numerics.
type APIBookLvl struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToSnapshot converts an APIBook into a domain.OrderBookSnapshot with bids
// sorted best-first descending and asks best-first ascending.
func (b *APIBook) ToSnapshot() domain.OrderBookSnapshot {
	snap := domain.OrderBookSnapshot{
		MarketID: b.Market,
		AssetID:  b.AssetID,
	}
	snap.Bids = parseLevels(b.Bids)
	snap.Asks = parseLevels(b.Asks)
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })

	if ms, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		snap.Timestamp = time.UnixMilli(ms)
	} else {
		snap.Timestamp = time.Now()
	}
	return snap
}

func parseLevels(in []APIBookLvl) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lvl := range in {
		p, perr := strconv.ParseFloat(lvl.Price, 64)
		s, serr := strconv.ParseFloat(lvl.Size, 64)
		if perr != nil || serr != nil || p <= 0 || s <= 0 {
			continue
		}
		out = append(out, domain.PriceLevel{Price: p, Size: s})
	}
	return out
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSBookEvent is a full book snapshot delivered over the CLOB market channel.
type WSBookEvent struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
	Bids      []APIBookLvl `json:"bids"`
	Asks      []APIBookLvl `json:"asks"`
}

// ToSnapshot converts a WSBookEvent to a domain.OrderBookSnapshot.
func (e *WSBookEvent) ToSnapshot() domain.OrderBookSnapshot {
	book := APIBook{
		Market:    e.Market,
		AssetID:   e.AssetID,
		Timestamp: e.Timestamp,
		Bids:      e.Bids,
		Asks:      e.Asks,
	}
	return book.ToSnapshot()
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe to the
// market channel for a set of assets.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}
