package domain

import "time"

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBookSnapshot is the most recent bid/ask ladder for a market. Bids are
// ordered descending by price, asks ascending.
type OrderBookSnapshot struct {
	MarketID  string
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid price, or 0 when the bid side is empty.
func (b OrderBookSnapshot) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 when the ask side is empty.
func (b OrderBookSnapshot) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// MidPrice returns the midpoint between best bid and best ask, or 0 when
// either side is empty.
func (b OrderBookSnapshot) MidPrice() float64 {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (bid + ask) / 2
}

// DepthWithin sums each side's size for levels within band (a fraction, e.g.
// 0.10) of the mid price. Levels outside the band carry no weight.
func (b OrderBookSnapshot) DepthWithin(band float64) (bidDepth, askDepth float64) {
	mid := b.MidPrice()
	if mid <= 0 {
		return 0, 0
	}
	lo := mid * (1 - band)
	hi := mid * (1 + band)
	for _, lvl := range b.Bids {
		if lvl.Price >= lo {
			bidDepth += lvl.Size
		}
	}
	for _, lvl := range b.Asks {
		if lvl.Price <= hi {
			askDepth += lvl.Size
		}
	}
	return bidDepth, askDepth
}
