package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwtly10/smartbreakout/internal/logging"
	"github.com/jwtly10/smartbreakout/internal/types"
)

const (
	DefaultBaseUrl = "https://api-fxpractice.oanda.com"
	MaxCount       = 5000

	// Oanda granularities
	M1  CandlestickGranularity = "M1"
	M5  CandlestickGranularity = "M5"
	M15 CandlestickGranularity = "M15"
	M30 CandlestickGranularity = "M30"
	H1  CandlestickGranularity = "H1"
	H2  CandlestickGranularity = "H2"
	H4  CandlestickGranularity = "H4"
	D   CandlestickGranularity = "D"
)

var oandaLog = logging.New("oanda")

var granularityToDuration = map[CandlestickGranularity]time.Duration{
	M1:  1 * time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  1 * time.Hour,
	H2:  2 * time.Hour,
	H4:  4 * time.Hour,
	D:   24 * time.Hour,
}

// timeframe as used in settings -> oanda granularity
var timeframeToGranularity = map[string]CandlestickGranularity{
	"1m":  M1,
	"5m":  M5,
	"15m": M15,
	"30m": M30,
	"1h":  H1,
	"2h":  H2,
	"4h":  H4,
	"1d":  D,
}

func (g CandlestickGranularity) ToDuration() (time.Duration, error) {
	duration, ok := granularityToDuration[g]
	if !ok {
		return 0, fmt.Errorf("invalid granularity: %s", g)
	}
	return duration, nil
}

func (g CandlestickGranularity) String() string {
	return string(g)
}

// GranularityFor maps a timeframe such as "1h" onto the oanda granularity.
func GranularityFor(timeframe string) (CandlestickGranularity, error) {
	g, ok := timeframeToGranularity[strings.TrimSpace(timeframe)]
	if !ok {
		return "", fmt.Errorf("unsupported timeframe for oanda: %s", timeframe)
	}
	return g, nil
}

func NewOandaService(accountId, apiKey, apiUrl string) *OandaService {
	if apiUrl == "" {
		apiUrl = DefaultBaseUrl
	}

	return &OandaService{
		AccountId: accountId,
		ApiKey:    apiKey,
		ApiUrl:    apiUrl,
		hc:        &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchCandles returns the last req.Limit candles for an instrument. Oanda
// includes the incomplete candle last, which is what the strategy expects.
func (s *OandaService) FetchCandles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	granularity, err := GranularityFor(req.Interval)
	if err != nil {
		return nil, err
	}

	count := req.Limit
	if count <= 0 || count > MaxCount {
		count = MaxCount
	}

	resp, err := s.fetchHistoricCandles(ctx, CandleRequest{
		Instrument:  InstrumentName(req.Symbol),
		Granularity: granularity,
		Count:       count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", req.Symbol, err)
	}

	candles, err := s.toCandles(resp.Candles, granularity)
	if err != nil {
		return nil, fmt.Errorf("failed to convert candles: %w", err)
	}

	oandaLog.Debug("Fetched candles", "instrument", req.Symbol, "granularity", granularity, "count", len(candles))
	return candles, nil
}

func (s *OandaService) toCandles(candles []Candlestick, granularity CandlestickGranularity) ([]types.Candle, error) {
	period, err := granularity.ToDuration()
	if err != nil {
		return nil, err
	}

	out := make([]types.Candle, 0, len(candles))
	for _, candle := range candles {
		timestamp, err := time.Parse(time.RFC3339, candle.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle time %s: %w", candle.Time, err)
		}

		o, err := strconv.ParseFloat(string(candle.Mid.O), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle open price %s: %w", candle.Mid.O, err)
		}
		h, err := strconv.ParseFloat(string(candle.Mid.H), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle high price %s: %w", candle.Mid.H, err)
		}
		l, err := strconv.ParseFloat(string(candle.Mid.L), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle low price %s: %w", candle.Mid.L, err)
		}
		c, err := strconv.ParseFloat(string(candle.Mid.C), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle close price %s: %w", candle.Mid.C, err)
		}

		out = append(out, types.Candle{
			OpenTime:  timestamp.UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    float64(candle.Volume),
			CloseTime: timestamp.UTC().Add(period),
		})
	}
	return out, nil
}

func (s *OandaService) fetchHistoricCandles(ctx context.Context, req CandleRequest) (*CandlestickResponse, error) {
	endpoint := s.ApiUrl + "/v3/accounts/" + s.AccountId + "/instruments/" + string(req.Instrument) + "/candles"

	params := url.Values{}
	params.Add("price", "M")
	if req.Granularity != "" {
		params.Add("granularity", string(req.Granularity))
	}
	if req.Count != 0 {
		params.Add("count", strconv.Itoa(req.Count))
	}

	fullURL := endpoint + "?" + params.Encode()
	oandaLog.Debug("Request URL", "url", fullURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Authorization", "Bearer "+s.ApiKey)
	httpReq.Header.Set("Accept-Datetime-Format", "RFC3339")

	hc := s.hc
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("status code %d, could not read error body: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("status code %d, API Response: %s", resp.StatusCode, string(bodyBytes))
	}

	var candleResp CandlestickResponse
	if err := json.NewDecoder(resp.Body).Decode(&candleResp); err != nil {
		return nil, fmt.Errorf("failed to decode candle response: %w", err)
	}

	return &candleResp, nil
}
