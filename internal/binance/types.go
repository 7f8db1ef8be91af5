package binance

import (
	"net/http"
	"time"

	"github.com/jwtly10/smartbreakout/internal/types"
)

const (
	DefaultBaseUrl = "https://api.binance.com"
	TestnetBaseUrl = "https://testnet.binance.vision"

	DefaultCandleLimit = 300
	MaxCandleLimit     = 1000

	DefaultRecvWindow = 5000 // ms

	// demo trades against production data but only submits test orders
	ModeDemo Mode = "demo"
	// testnet submits real orders to the spot testnet
	ModeTestnet Mode = "testnet"

	OrderTypeMarket = "MARKET"
)

// Supported kline intervals
var intervals = map[string]time.Duration{
	"1m":  1 * time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  1 * time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

type Mode string

type Client struct {
	ApiKey     string
	ApiSecret  string
	ApiUrl     string
	RecvWindow int64

	hc  *http.Client
	now func() time.Time
}

type OrderRequest struct {
	Symbol   string
	Side     types.Side
	Quantity float64
	Test     bool // validate only, nothing is executed
}

// https://developers.binance.com/docs/binance-spot-api-docs/rest-api/trading-endpoints

type OrderResponse struct {
	Symbol        string `json:"symbol"`
	OrderId       int64  `json:"orderId"`
	ClientOrderId string `json:"clientOrderId"`
	TransactTime  int64  `json:"transactTime"`
	Status        string `json:"status"`
	Type          string `json:"type"`
	Side          string `json:"side"`
	ExecutedQty   string `json:"executedQty"`
	Test          bool   `json:"-"`
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
