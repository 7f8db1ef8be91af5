package oanda

import (
	"net/http"
)

// https://developer.oanda.com/rest-live-v20/instrument-ep/
// Only midpoint prices are requested (price=M).

type InstrumentName string
type CandlestickGranularity string
type PriceValue string

type midpoint struct {
	O PriceValue `json:"o"`
	H PriceValue `json:"h"`
	L PriceValue `json:"l"`
	C PriceValue `json:"c"`
}

type Candlestick struct {
	Time   string   `json:"time"`
	Mid    midpoint `json:"mid"`
	Volume int      `json:"volume"`
	// the last candle is usually incomplete; it is kept as the in-progress candle
	Complete bool `json:"complete"`
}

type CandlestickResponse struct {
	Instrument  InstrumentName         `json:"instrument"`
	Granularity CandlestickGranularity `json:"granularity"`
	Candles     []Candlestick          `json:"candles"`
}

type OandaService struct {
	AccountId string
	ApiKey    string
	ApiUrl    string

	hc *http.Client
}

// CandleRequest asks for the most recent Count candles.
type CandleRequest struct {
	Instrument  InstrumentName
	Granularity CandlestickGranularity
	Count       int // max 5000
}
