package strategy

import (
	"math"

	"github.com/jwtly10/smartbreakout/internal/types"
)

// RMA - Wilder's moving average. Seeded with the simple mean of the first
// period values, then value += (x - value) / period.
type RMA struct {
	period int
	value  float64
	sum    float64
	count  int
}

func NewRMA(period int) *RMA {
	return &RMA{period: period}
}

func (r *RMA) Update(x float64) {
	if r.count < r.period {
		r.sum += x
		r.count++
		if r.count == r.period {
			r.value = r.sum / float64(r.period)
		}
		return
	}
	r.value += (x - r.value) / float64(r.period)
}

func (r *RMA) Value() float64 {
	return r.value
}

func (r *RMA) Ready() bool {
	return r.period > 0 && r.count >= r.period
}

// ATR - Average True Range, Wilder smoothed
type ATR struct {
	avg  *RMA
	prev *types.Candle
}

func NewATR(period int) *ATR {
	return &ATR{
		avg: NewRMA(period),
	}
}

func (a *ATR) Update(c types.Candle) {
	// The first candle has no previous close; its range is its true range.
	tr := c.High - c.Low
	if a.prev != nil {
		// True Range = max of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr = math.Max(tr, math.Max(math.Abs(c.High-a.prev.Close), math.Abs(c.Low-a.prev.Close)))
	}

	a.avg.Update(tr)
	a.prev = &c
}

func (a *ATR) Value() float64 {
	return a.avg.Value()
}

func (a *ATR) Ready() bool {
	return a.avg.Ready()
}

// AverageTrueRange runs an ATR over the whole series and returns its final
// value. ok is false until period candles have been seen.
func AverageTrueRange(series []types.Candle, period int) (value float64, ok bool) {
	if period < 1 {
		return 0, false
	}
	atr := NewATR(period)
	for _, c := range series {
		atr.Update(c)
	}
	if !atr.Ready() {
		return 0, false
	}
	return atr.Value(), true
}
