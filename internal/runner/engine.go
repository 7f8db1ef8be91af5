package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwtly10/smartbreakout/internal/binance"
	"github.com/jwtly10/smartbreakout/internal/execution"
	"github.com/jwtly10/smartbreakout/internal/metrics"
	"github.com/jwtly10/smartbreakout/internal/notify"
	"github.com/jwtly10/smartbreakout/internal/strategy"
	"github.com/jwtly10/smartbreakout/internal/tradingview"
	"github.com/jwtly10/smartbreakout/internal/types"
)

const atrPeriod = 14

type Executor interface {
	Execute(ctx context.Context, o execution.Order) (*binance.OrderResponse, error)
	Mode() binance.Mode
}

type Notifier interface {
	Configured() bool
	Send(ctx context.Context, text string) error
}

type Config struct {
	Symbol   string
	Interval string
	Limit    int
	Quantity float64
}

// Engine runs one evaluation: fetch candles, generate a signal, and act on it.
type Engine struct {
	cfg      Config
	source   types.CandleSource
	strategy strategy.Strategy
	executor Executor
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func NewEngine(cfg Config, source types.CandleSource, strat strategy.Strategy, executor Executor, notifier Notifier, m *metrics.Metrics, log *slog.Logger) *Engine {
	if cfg.Limit <= 0 {
		cfg.Limit = binance.DefaultCandleLimit
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		strategy: strat,
		executor: executor,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Run evaluates the strategy once. Only a market data failure is returned as an
// error; order and notification failures are logged and the signal is still
// returned.
func (e *Engine) Run(ctx context.Context) (types.Signal, error) {
	candles, err := e.source.FetchCandles(ctx, types.CandleRequest{
		Symbol:   e.cfg.Symbol,
		Interval: e.cfg.Interval,
		Limit:    e.cfg.Limit,
	})
	if err != nil {
		return types.Signal{}, fmt.Errorf("failed to fetch klines: %w", err)
	}

	e.log.Info("Loaded candles", "symbol", e.cfg.Symbol, "interval", e.cfg.Interval, "count", len(candles))
	e.logCurrentCandle(candles)

	sig := e.strategy.GenerateSignal(candles)

	if atr, ok := strategy.AverageTrueRange(candles, atrPeriod); ok {
		e.log.Info("Volatility", "atr", atr, "period", atrPeriod)
	}

	if sig.IsBuy() {
		e.act(ctx, candles, sig)
	} else {
		e.log.Info("No actionable signal", "meta", sig.Meta)
	}

	e.metrics.ObserveSignal(sig)
	e.metrics.MarkRun(e.now())

	return sig, nil
}

// logCurrentCandle reports how far into its interval the in-progress candle is,
// since its close is the price the retest is checked against.
func (e *Engine) logCurrentCandle(candles []types.Candle) {
	if len(candles) == 0 {
		return
	}
	period, err := binance.IntervalDuration(e.cfg.Interval)
	if err != nil {
		return
	}
	current := candles[len(candles)-1]
	e.log.Info("Current candle",
		"open_time", current.OpenTime,
		"age", e.now().Sub(current.OpenTime).Truncate(time.Second),
		"interval", period,
		"close", current.Close)
}

func (e *Engine) act(ctx context.Context, candles []types.Candle, sig types.Signal) {
	mode := e.executor.Mode()

	e.log.Info(fmt.Sprintf("Signal %s %s qty=%v entry≈%.2f SL=%.2f TP=%.2f",
		sig.Side, e.cfg.Symbol, e.cfg.Quantity, *sig.EntryPrice, *sig.StopLoss, *sig.TakeProfit))

	_, err := e.executor.Execute(ctx, execution.Order{
		Symbol:     e.cfg.Symbol,
		Side:       sig.Side,
		Quantity:   e.cfg.Quantity,
		EntryPrice: *sig.EntryPrice,
	})
	e.metrics.ObserveOrder(string(mode), err)
	if err != nil {
		e.log.Error("Order submission failed", "error", err)
	}

	e.notify(ctx, notify.FormatSignal(sig, mode))

	tradingview.DumpPineScript(e.cfg.Symbol, candles[len(candles)-1].OpenTime, sig)
}

func (e *Engine) notify(ctx context.Context, text string) {
	if !e.notifier.Configured() {
		e.metrics.ObserveNotification(metrics.ResultSkipped)
		return
	}

	err := e.notifier.Send(ctx, text)
	switch {
	case err == nil:
		e.metrics.ObserveNotification(metrics.ResultSent)
	case errors.Is(err, notify.ErrNotConfigured):
		e.metrics.ObserveNotification(metrics.ResultSkipped)
	default:
		e.metrics.ObserveNotification(metrics.ResultError)
		e.log.Error("Failed to send Telegram message", "error", err)
	}
}
