package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jwtly10/smartbreakout/internal/binance"
	"github.com/jwtly10/smartbreakout/internal/logging"
	"github.com/jwtly10/smartbreakout/internal/strategy"
)

const (
	DefaultPath    = "config/settings.json"
	DefaultEnvFile = ".env"

	DefaultSymbol          = "BTCUSDT"
	DefaultTimeframe       = "1h"
	DefaultRiskReward      = 2.0
	DefaultStopLossPercent = 0.003
	DefaultQuantity        = 0.001
	DefaultMode            = "demo"
	DefaultLookback        = 20
	DefaultCacheTTL        = 10 * time.Second

	SourceBinance = "binance"
	SourceOanda   = "oanda"
)

var ErrInvalid = errors.New("invalid settings")

var configLog = logging.New("config")

// Process environment variables that take precedence over the settings file.
var envOverrides = map[string]string{
	"BINANCE_API_KEY":    "API_KEY",
	"BINANCE_API_SECRET": "API_SECRET",
	"TELEGRAM_BOT_TOKEN": "telegram.bot_token",
	"TELEGRAM_CHANNEL":   "telegram.channel_username",
	"REDIS_ADDR":         "redis.addr",
	"PUSHGATEWAY_URL":    "pushgateway_url",
	"OANDA_ACCOUNT_ID":   "oanda.account_id",
	"OANDA_API_KEY":      "oanda.api_key",
}

type Telegram struct {
	BotToken        string
	ChannelUsername string
}

type Redis struct {
	Addr string
	TTL  time.Duration
}

type Oanda struct {
	AccountId string
	ApiKey    string
}

// Settings is one invocation's configuration after defaults, .env and
// environment overrides have been applied.
type Settings struct {
	ApiKey          string
	ApiSecret       string
	Symbol          string
	Timeframe       string
	RiskRewardRatio float64
	StopLossPercent float64
	Quantity        float64
	Mode            string
	Lookback        int
	RetestTolerance float64
	Source          string
	PushgatewayUrl  string

	Telegram Telegram
	Redis    Redis
	Oanda    Oanda
}

// Load reads the settings file at path. The optional envFile is loaded first;
// values it holds never replace variables already set in the process.
func Load(path, envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s, nil
}

// Parse builds Settings from a JSON or YAML document, then applies the
// environment overrides.
func Parse(data []byte) (*Settings, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	for env, key := range envOverrides {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			configLog.Debug("Applying environment override", "env", env, "key", key)
			set(raw, key, v)
		}
	}

	return fromMap(raw), nil
}

func fromMap(raw map[string]any) *Settings {
	slPct := floatOr(lookup(raw, "stop_loss_percent"), DefaultStopLossPercent)

	s := &Settings{
		ApiKey:          stringOr(lookup(raw, "API_KEY"), ""),
		ApiSecret:       stringOr(lookup(raw, "API_SECRET"), ""),
		Symbol:          stringOr(lookup(raw, "symbol"), DefaultSymbol),
		Timeframe:       stringOr(lookup(raw, "timeframe"), DefaultTimeframe),
		RiskRewardRatio: floatOr(lookup(raw, "risk_reward_ratio"), DefaultRiskReward),
		StopLossPercent: slPct,
		Quantity:        floatOr(lookup(raw, "quantity"), DefaultQuantity),
		Mode:            strings.ToLower(stringOr(lookup(raw, "mode"), DefaultMode)),
		Lookback:        intOr(lookup(raw, "lookback"), DefaultLookback),
		// the stop distance doubles as the retest band unless set explicitly
		RetestTolerance: floatOr(lookup(raw, "retest_tolerance"), slPct),
		Source:          strings.ToLower(stringOr(lookup(raw, "source"), SourceBinance)),
		PushgatewayUrl:  stringOr(lookup(raw, "pushgateway_url"), ""),
		Telegram: Telegram{
			BotToken:        stringOr(lookup(raw, "telegram.bot_token"), ""),
			ChannelUsername: stringOr(lookup(raw, "telegram.channel_username"), ""),
		},
		Redis: Redis{
			Addr: stringOr(lookup(raw, "redis.addr"), ""),
			TTL:  time.Duration(floatOr(lookup(raw, "redis.ttl_seconds"), DefaultCacheTTL.Seconds()) * float64(time.Second)),
		},
		Oanda: Oanda{
			AccountId: stringOr(lookup(raw, "oanda.account_id"), ""),
			ApiKey:    stringOr(lookup(raw, "oanda.api_key"), ""),
		},
	}
	return s
}

// Validate checks the ranges the strategy and the order path depend on.
func (s *Settings) Validate() error {
	if err := s.Strategy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !(s.Quantity > 0) {
		return fmt.Errorf("%w: quantity must be > 0, got %v", ErrInvalid, s.Quantity)
	}
	if s.Mode != string(binance.ModeDemo) && s.Mode != string(binance.ModeTestnet) {
		return fmt.Errorf("%w: mode must be demo or testnet, got %q", ErrInvalid, s.Mode)
	}
	if s.Source != SourceBinance && s.Source != SourceOanda {
		return fmt.Errorf("%w: source must be binance or oanda, got %q", ErrInvalid, s.Source)
	}
	if s.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	if s.Redis.Addr != "" && s.Redis.TTL <= 0 {
		return fmt.Errorf("%w: redis ttl must be > 0, got %s", ErrInvalid, s.Redis.TTL)
	}
	return nil
}

func (s *Settings) Strategy() strategy.Config {
	return strategy.Config{
		StopLossPercent: s.StopLossPercent,
		RiskRewardRatio: s.RiskRewardRatio,
		Lookback:        s.Lookback,
		RetestTolerance: s.RetestTolerance,
	}
}

// lookup resolves a dotted key through nested sections, e.g. "telegram.bot_token".
func lookup(raw map[string]any, key string) any {
	parts := strings.Split(key, ".")
	var cur any = raw
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

func set(raw map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	m := raw
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func stringOr(v any, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		if strings.TrimSpace(t) == "" {
			return def
		}
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}

// floatOr parses numbers and numeric strings, returning def for anything else.
func floatOr(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			configLog.Debug("Ignoring unparsable number", "value", t)
			return def
		}
		return f
	default:
		return def
	}
}

func intOr(v any, def int) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}
