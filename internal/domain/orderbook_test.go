package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderBookSnapshot_DepthWithin(t *testing.T) {
	book := OrderBookSnapshot{
		Bids: []PriceLevel{{Price: 0.48, Size: 100}, {Price: 0.30, Size: 500}},
		Asks: []PriceLevel{{Price: 0.52, Size: 40}, {Price: 0.70, Size: 900}},
	}

	// mid 0.50, band [0.45, 0.55]
	bidDepth, askDepth := book.DepthWithin(0.10)
	assert.Equal(t, 100.0, bidDepth)
	assert.Equal(t, 40.0, askDepth)
}

func TestOrderBookSnapshot_BestQuotes(t *testing.T) {
	var empty OrderBookSnapshot
	assert.Zero(t, empty.BestBid())
	assert.Zero(t, empty.BestAsk())
	assert.Zero(t, empty.MidPrice())
}
