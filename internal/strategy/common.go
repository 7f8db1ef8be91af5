package strategy

import (
	"errors"
	"fmt"

	"github.com/jwtly10/smartbreakout/internal/types"
)

var ErrInvalidConfig = errors.New("invalid strategy config")

// Config holds the risk settings a strategy is built with. It is not modified
// after construction.
type Config struct {
	StopLossPercent float64 // fraction, e.g. 0.003 = 0.3%
	RiskRewardRatio float64
	Lookback        int
	RetestTolerance float64 // fraction of the breakout level
}

type Strategy interface {
	GenerateSignal(series []types.Candle) types.Signal
}

func (c Config) Validate() error {
	if !(c.StopLossPercent > 0 && c.StopLossPercent < 1) {
		return fmt.Errorf("%w: stop loss percent must be in (0,1), got %v", ErrInvalidConfig, c.StopLossPercent)
	}
	if !(c.RiskRewardRatio > 0) {
		return fmt.Errorf("%w: risk reward ratio must be > 0, got %v", ErrInvalidConfig, c.RiskRewardRatio)
	}
	if c.Lookback < 1 {
		return fmt.Errorf("%w: lookback must be >= 1, got %d", ErrInvalidConfig, c.Lookback)
	}
	if !(c.RetestTolerance >= 0) {
		return fmt.Errorf("%w: retest tolerance must be >= 0, got %v", ErrInvalidConfig, c.RetestTolerance)
	}
	return nil
}

// RiskBounds returns the stop loss and take profit for an entry. The stop sits
// stopLossPercent away from the entry and the take profit sits the same distance
// scaled by riskRewardRatio on the other side.
//
// This is the only place SL/TP are derived; signal generation and order
// execution both call it.
func RiskBounds(entry float64, side types.Side, stopLossPercent, riskRewardRatio float64) (stopLoss, takeProfit float64, err error) {
	switch side {
	case types.BUY:
		stopLoss = entry * (1 - stopLossPercent)
		takeProfit = entry + (entry-stopLoss)*riskRewardRatio
	case types.SELL:
		stopLoss = entry * (1 + stopLossPercent)
		takeProfit = entry - (stopLoss-entry)*riskRewardRatio
	default:
		return 0, 0, fmt.Errorf("unsupported side: %s", side)
	}
	return stopLoss, takeProfit, nil
}
