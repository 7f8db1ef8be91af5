package strategy

import (
	"github.com/jwtly10/smartbreakout/internal/types"
)

const (
	ReasonInsufficientData = "insufficient_data"

	// extra candles required on top of the lookback before a signal is considered
	warmupMargin = 5
)

// BreakoutRetest emits BUY when the last closed candle broke above the prior
// lookback high and the current price has pulled back to that level.
type BreakoutRetest struct {
	cfg Config
}

func NewBreakoutRetest(cfg Config) *BreakoutRetest {
	return &BreakoutRetest{cfg: cfg}
}

func (s *BreakoutRetest) Config() Config {
	return s.cfg
}

// GenerateSignal evaluates the series once. It holds no state between calls.
func (s *BreakoutRetest) GenerateSignal(series []types.Candle) types.Signal {
	if s.cfg.Lookback < 1 || len(series)-warmupMargin < s.cfg.Lookback {
		return types.Signal{
			Side: types.NONE,
			Meta: map[string]any{"reason": ReasonInsufficientData},
		}
	}

	breakout, level := IsBullishBreakout(series, s.cfg.Lookback)
	// The in-progress candle's close is the live price.
	currentPrice := series[len(series)-1].Close

	if breakout && IsRetest(currentPrice, level, s.cfg.RetestTolerance) {
		entry := currentPrice
		stopLoss, takeProfit, _ := RiskBounds(entry, types.BUY, s.cfg.StopLossPercent, s.cfg.RiskRewardRatio)
		return types.Signal{
			Side:       types.BUY,
			EntryPrice: &entry,
			StopLoss:   &stopLoss,
			TakeProfit: &takeProfit,
			Meta: map[string]any{
				"breakout_level":   level.Value(),
				"lookback":         s.cfg.Lookback,
				"retest_tolerance": s.cfg.RetestTolerance,
			},
		}
	}

	return types.Signal{
		Side: types.NONE,
		Meta: map[string]any{
			"breakout":       breakout,
			"breakout_level": level.Value(),
		},
	}
}
