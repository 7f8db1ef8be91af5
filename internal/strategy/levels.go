package strategy

import (
	"github.com/jwtly10/smartbreakout/internal/types"
)

// Level is a price that may not be known yet, e.g. when there is not enough
// history to derive it. The zero value is unknown.
type Level struct {
	price float64
	known bool
}

func KnownLevel(price float64) Level {
	return Level{price: price, known: true}
}

func (l Level) Price() (float64, bool) {
	return l.price, l.known
}

func (l Level) Known() bool {
	return l.known
}

// Value returns the price, or nil when unknown. Used for diagnostics.
func (l Level) Value() any {
	if !l.known {
		return nil
	}
	return l.price
}

// Levels is the prior structure a breakout is measured against.
type Levels struct {
	HighestHigh float64
	LowestLow   float64
}

// lookbackWindow returns the lookback candles that precede the last closed
// candle. Both the in-progress candle (series[n-1]) and the last closed candle
// (series[n-2]) are excluded. The series needs at least lookback+2 candles;
// the check is written against n so a huge lookback cannot overflow it.
func lookbackWindow(series []types.Candle, lookback int) ([]types.Candle, bool) {
	n := len(series)
	if lookback < 1 || lookback > n-2 {
		return nil, false
	}
	return series[n-lookback-2 : n-2], true
}

// BreakoutLevels returns the highest high and lowest low of the lookback window.
// ok is false when the series is shorter than lookback+2.
func BreakoutLevels(series []types.Candle, lookback int) (levels Levels, ok bool) {
	window, ok := lookbackWindow(series, lookback)
	if !ok {
		return Levels{}, false
	}

	levels = Levels{HighestHigh: window[0].High, LowestLow: window[0].Low}
	for _, c := range window[1:] {
		if c.High > levels.HighestHigh {
			levels.HighestHigh = c.High
		}
		if c.Low < levels.LowestLow {
			levels.LowestLow = c.Low
		}
	}
	return levels, true
}

// IsBullishBreakout reports whether the last closed candle closed strictly above
// the highest high of the lookback window. The in-progress candle is ignored.
func IsBullishBreakout(series []types.Candle, lookback int) (bool, Level) {
	levels, ok := BreakoutLevels(series, lookback)
	if !ok {
		return false, Level{}
	}

	lastClosed := series[len(series)-2].Close
	return lastClosed > levels.HighestHigh, KnownLevel(levels.HighestHigh)
}

// IsRetest reports whether price is within a symmetric tolerance band around
// level. tolerance is a fraction, 0.001 = 0.1%.
func IsRetest(price float64, level Level, tolerance float64) bool {
	lvl, ok := level.Price()
	if !ok {
		return false
	}
	lower := lvl * (1 - tolerance)
	upper := lvl * (1 + tolerance)
	return lower <= price && price <= upper
}
