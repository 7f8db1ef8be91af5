package types

import (
	"context"
	"time"
)

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
	NONE Side = "NONE"
)

// Candle is one fixed-interval OHLCV bar. A series is ordered oldest first and
// its last element may still be in progress.
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

type Side string

// Signal is the outcome of one strategy evaluation.
// EntryPrice, StopLoss and TakeProfit are set only when Side is BUY.
type Signal struct {
	Side       Side
	EntryPrice *float64
	StopLoss   *float64
	TakeProfit *float64
	Meta       map[string]any // diagnostics only
}

func (s Signal) IsBuy() bool {
	return s.Side == BUY && s.EntryPrice != nil && s.StopLoss != nil && s.TakeProfit != nil
}

// CandleRequest asks a market-data source for the most recent Limit candles.
type CandleRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"` // 1m, 5m, 1h, ...
	Limit    int    `json:"limit"`
}

// CandleSource supplies candles oldest first. The last candle may still be open.
type CandleSource interface {
	FetchCandles(ctx context.Context, req CandleRequest) ([]Candle, error)
}
