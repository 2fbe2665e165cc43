package agent

// Data-quality scoring: each style weighs the inputs it actually trades on.
// A swing decision without fundamentals is near-blind; a scalp decision only
// needs fresh candles, technicals, and news flow.

const minCandleHistory = 20

// swingDataQuality scores 0-100: candles 30, fundamental 25, macro 25,
// news 20.
func swingDataQuality(c Context) float64 {
	score := 0.0
	if len(c.Candles) >= minCandleHistory && c.PriceOK {
		score += 30
	}
	if c.Fundamental != nil {
		score += 25
	}
	if c.Macro != nil {
		score += 25
	}
	if c.News != nil {
		score += 20
	}
	return score
}

// scalpDataQuality scores 0-100: candles 30, technical 30, news 40.
func scalpDataQuality(c Context) float64 {
	score := 0.0
	if len(c.Candles) >= minCandleHistory && c.PriceOK {
		score += 30
	}
	if c.Technical != nil {
		score += 30
	}
	if c.News != nil {
		score += 40
	}
	return score
}
