package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwtly10/smartbreakout/internal/logging"
	"github.com/jwtly10/smartbreakout/internal/types"
)

var binanceLog = logging.New("binance")

// Interval validates a timeframe such as "15m" or "1h" against the kline
// intervals this client supports.
func Interval(timeframe string) (string, error) {
	tf := strings.TrimSpace(timeframe)
	if _, ok := intervals[tf]; !ok {
		return "", fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return tf, nil
}

// IntervalDuration returns the length of one candle for a supported timeframe.
func IntervalDuration(timeframe string) (time.Duration, error) {
	d, ok := intervals[strings.TrimSpace(timeframe)]
	if !ok {
		return 0, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	return d, nil
}

// ParseMode maps a configured mode onto Mode. Anything that is not testnet is demo.
func ParseMode(mode string) Mode {
	if strings.EqualFold(strings.TrimSpace(mode), string(ModeTestnet)) {
		return ModeTestnet
	}
	return ModeDemo
}

func NewClient(apiKey, apiSecret string, mode Mode) *Client {
	apiUrl := DefaultBaseUrl
	if mode == ModeTestnet {
		apiUrl = TestnetBaseUrl
	}

	return &Client{
		ApiKey:     apiKey,
		ApiSecret:  apiSecret,
		ApiUrl:     apiUrl,
		RecvWindow: DefaultRecvWindow,
		hc:         &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// FetchCandles returns the most recent klines for a symbol, oldest first.
// The final kline is the one currently forming.
func (c *Client) FetchCandles(ctx context.Context, req types.CandleRequest) ([]types.Candle, error) {
	interval, err := Interval(req.Interval)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultCandleLimit
	}
	if limit > MaxCandleLimit {
		limit = MaxCandleLimit
	}

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(req.Symbol))
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, http.MethodGet, "/api/v3/klines", params, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines for %s: %w", req.Symbol, err)
	}

	// kline: [ openTime, open, high, low, close, volume, closeTime, ... ]
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode klines response: %w", err)
	}

	candles, err := rowsToCandles(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to convert klines to candles: %w", err)
	}

	binanceLog.Debug("Fetched klines", "symbol", req.Symbol, "interval", interval, "count", len(candles))
	return candles, nil
}

func rowsToCandles(rows [][]json.RawMessage) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("kline %d has %d fields, want at least 7", i, len(row))
		}

		var openTime, closeTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("failed to parse kline %d open time: %w", i, err)
		}
		if err := json.Unmarshal(row[6], &closeTime); err != nil {
			return nil, fmt.Errorf("failed to parse kline %d close time: %w", i, err)
		}

		var prices [5]float64
		for j := range prices {
			var s string
			if err := json.Unmarshal(row[j+1], &s); err != nil {
				return nil, fmt.Errorf("failed to parse kline %d field %d: %w", i, j+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse kline %d field %d value %q: %w", i, j+1, s, err)
			}
			prices[j] = v
		}

		candles = append(candles, types.Candle{
			OpenTime:  time.UnixMilli(openTime).UTC(),
			Open:      prices[0],
			High:      prices[1],
			Low:       prices[2],
			Close:     prices[3],
			Volume:    prices[4],
			CloseTime: time.UnixMilli(closeTime).UTC(),
		})
	}
	return candles, nil
}

// PlaceMarketOrder submits a signed MARKET order. When req.Test is set the
// order goes to the test endpoint, which validates it without executing.
func (c *Client) PlaceMarketOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if req.Side != types.BUY && req.Side != types.SELL {
		return nil, fmt.Errorf("unsupported side: %s", req.Side)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be > 0, got %v", req.Quantity)
	}

	clientOrderId := uuid.New().String()

	params := url.Values{}
	params.Set("symbol", strings.ToUpper(req.Symbol))
	params.Set("side", string(req.Side))
	params.Set("type", OrderTypeMarket)
	params.Set("quantity", decimal.NewFromFloat(req.Quantity).String())
	params.Set("newClientOrderId", clientOrderId)

	path := "/api/v3/order"
	if req.Test {
		path = "/api/v3/order/test"
	}

	body, err := c.do(ctx, http.MethodPost, path, params, true)
	if err != nil {
		return nil, fmt.Errorf("failed to place %s order for %s: %w", req.Side, req.Symbol, err)
	}

	// The test endpoint answers with an empty object.
	order := OrderResponse{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &order); err != nil {
			return nil, fmt.Errorf("failed to decode order response: %w", err)
		}
	}
	if order.ClientOrderId == "" {
		order.ClientOrderId = clientOrderId
	}
	if order.Symbol == "" {
		order.Symbol = strings.ToUpper(req.Symbol)
	}
	if order.Side == "" {
		order.Side = string(req.Side)
	}
	if order.Type == "" {
		order.Type = OrderTypeMarket
	}
	order.Test = req.Test

	return &order, nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.ApiSecret))
	_, _ = io.WriteString(mac, payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	payload := params.Encode()
	if signed {
		if c.ApiKey == "" || c.ApiSecret == "" {
			return nil, fmt.Errorf("api key and secret are required for %s", path)
		}
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		if c.RecvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.RecvWindow, 10))
		}
		payload = params.Encode()
		payload += "&signature=" + c.sign(payload)
	}

	fullURL := strings.TrimRight(c.ApiUrl, "/") + path
	var reqBody io.Reader
	if method == http.MethodGet {
		fullURL += "?" + payload
	} else {
		reqBody = strings.NewReader(payload)
	}

	binanceLog.Debug("Request", "method", method, "path", path)

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, err
	}
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.ApiKey != "" {
		httpReq.Header.Set("X-MBX-APIKEY", c.ApiKey)
	}

	hc := c.hc
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: status code %d: %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("status code %d, code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("status code %d, API Response: %s", resp.StatusCode, string(bodyBytes))
	}

	return bodyBytes, nil
}
