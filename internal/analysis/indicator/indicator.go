// Package indicator wraps the talib calls the agents rely on.
package indicator

import (
	talib "github.com/markcheno/go-talib"

	"arbiter/internal/types"
)

// ATR returns the latest average true range over period, or 0 when the
// candle history is too short.
func ATR(candles []types.Candle, period int) float64 {
	if period <= 0 || len(candles) <= period {
		return 0
	}
	high, low, closes := split(candles)
	out := talib.Atr(high, low, closes, period)
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}

// EMA returns the latest exponential moving average of closes over period.
func EMA(candles []types.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	_, _, closes := split(candles)
	out := talib.Ema(closes, period)
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}

// TrailingStop derives a stop level below the high-water mark: the wider of
// the percentage drop and one ATR.
func TrailingStop(highWater, dropPct, atr float64) float64 {
	if highWater <= 0 {
		return 0
	}
	stop := highWater * (1 - dropPct/100)
	if atr > 0 && highWater-atr < stop {
		stop = highWater - atr
	}
	if stop < 0 {
		return 0
	}
	return stop
}

func split(candles []types.Candle) (high, low, closes []float64) {
	high = make([]float64, len(candles))
	low = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	for i, c := range candles {
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
	}
	return high, low, closes
}
