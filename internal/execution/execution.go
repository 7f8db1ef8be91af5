package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jwtly10/smartbreakout/internal/binance"
	"github.com/jwtly10/smartbreakout/internal/strategy"
	"github.com/jwtly10/smartbreakout/internal/types"
)

// OrderPlacer submits market orders. *binance.Client implements it.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, req binance.OrderRequest) (*binance.OrderResponse, error)
}

type Order struct {
	Symbol     string
	Side       types.Side
	Quantity   float64
	EntryPrice float64
}

// Executor turns signals into exchange orders. In demo mode every order is
// sent to the validation endpoint; in testnet mode orders are live.
type Executor struct {
	placer OrderPlacer
	mode   binance.Mode
	risk   strategy.Config
	log    *slog.Logger
}

func NewExecutor(placer OrderPlacer, mode binance.Mode, risk strategy.Config, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		placer: placer,
		mode:   mode,
		risk:   risk,
		log:    log,
	}
}

func (e *Executor) Mode() binance.Mode {
	return e.mode
}

// Execute places a market order for o. The stop loss and take profit are only
// reported; the exchange order itself carries no brackets.
func (e *Executor) Execute(ctx context.Context, o Order) (*binance.OrderResponse, error) {
	side := types.Side(strings.ToUpper(string(o.Side)))
	if side != types.BUY && side != types.SELL {
		return nil, fmt.Errorf("unsupported side: %s", o.Side)
	}

	sl, tp, err := strategy.RiskBounds(o.EntryPrice, side, e.risk.StopLossPercent, e.risk.RiskRewardRatio)
	if err != nil {
		return nil, err
	}

	test := e.mode != binance.ModeTestnet
	prefix := ""
	if test {
		prefix = "TEST "
	}

	e.log.Info(fmt.Sprintf("Placing %s%s %s %s qty=%v entry≈%.6f SL=%.6f TP=%.6f",
		prefix, binance.OrderTypeMarket, side, o.Symbol, o.Quantity, o.EntryPrice, sl, tp),
		"mode", e.mode)

	resp, err := e.placer.PlaceMarketOrder(ctx, binance.OrderRequest{
		Symbol:   o.Symbol,
		Side:     side,
		Quantity: o.Quantity,
		Test:     test,
	})
	if err != nil {
		return nil, fmt.Errorf("order submission failed: %w", err)
	}

	e.log.Info("Order submitted successfully", "client_order_id", resp.ClientOrderId, "order_id", resp.OrderId, "status", resp.Status)
	return resp, nil
}
