package signal

// clampScore bounds a confidence score to [0, 100]. The source heuristics are
// unclipped for out-of-range inputs, so every calculator clamps explicitly.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// liquidityConfidence is the spread calculator's confidence heuristic: a 50
// base plus 5 points per $100k of liquidity, clamped.
func liquidityConfidence(liquidity float64) float64 {
	return clampScore(50 + liquidity/100_000*5)
}
