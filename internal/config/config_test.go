package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwtly10/smartbreakout/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsJSON = `{
  "API_KEY": "file-key",
  "API_SECRET": "file-secret",
  "symbol": "ETHUSDT",
  "timeframe": "15m",
  "risk_reward_ratio": 3,
  "stop_loss_percent": 0.005,
  "quantity": "0.01",
  "mode": "TestNet",
  "lookback": 30,
  "telegram": {
    "bot_token": "123:abc",
    "channel_username": "https://t.me/signals"
  }
}`

// clearOverrides blanks every override variable so the host environment
// does not leak into a test.
func clearOverrides(t *testing.T) {
	t.Helper()
	for env := range envOverrides {
		t.Setenv(env, "")
	}
}

func TestParse_ReadsSettings(t *testing.T) {
	clearOverrides(t)

	s, err := Parse([]byte(settingsJSON))
	require.NoError(t, err)

	assert.Equal(t, "file-key", s.ApiKey)
	assert.Equal(t, "file-secret", s.ApiSecret)
	assert.Equal(t, "ETHUSDT", s.Symbol)
	assert.Equal(t, "15m", s.Timeframe)
	assert.Equal(t, 3.0, s.RiskRewardRatio)
	assert.Equal(t, 0.005, s.StopLossPercent)
	assert.Equal(t, 0.01, s.Quantity, "numeric strings are accepted")
	assert.Equal(t, "testnet", s.Mode, "mode is case-insensitive")
	assert.Equal(t, 30, s.Lookback)
	assert.Equal(t, 0.005, s.RetestTolerance, "retest tolerance defaults to the stop loss percent")
	assert.Equal(t, "123:abc", s.Telegram.BotToken)
	assert.Equal(t, "https://t.me/signals", s.Telegram.ChannelUsername)
	assert.Equal(t, SourceBinance, s.Source)
	assert.Equal(t, DefaultCacheTTL, s.Redis.TTL)

	assert.NoError(t, s.Validate())
}

func TestParse_Defaults(t *testing.T) {
	clearOverrides(t)

	s, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultSymbol, s.Symbol)
	assert.Equal(t, DefaultTimeframe, s.Timeframe)
	assert.Equal(t, DefaultRiskReward, s.RiskRewardRatio)
	assert.Equal(t, DefaultStopLossPercent, s.StopLossPercent)
	assert.Equal(t, DefaultQuantity, s.Quantity)
	assert.Equal(t, DefaultMode, s.Mode)
	assert.Equal(t, DefaultLookback, s.Lookback)
	assert.Equal(t, DefaultStopLossPercent, s.RetestTolerance)
	assert.Empty(t, s.Telegram.BotToken)

	assert.NoError(t, s.Validate())
}

func TestParse_UnparsableNumbersFallBack(t *testing.T) {
	clearOverrides(t)

	s, err := Parse([]byte(`{"risk_reward_ratio": "lots", "stop_loss_percent": "", "lookback": "x", "quantity": null}`))
	require.NoError(t, err)

	assert.Equal(t, DefaultRiskReward, s.RiskRewardRatio)
	assert.Equal(t, DefaultStopLossPercent, s.StopLossPercent)
	assert.Equal(t, DefaultLookback, s.Lookback)
	assert.Equal(t, DefaultQuantity, s.Quantity)
}

func TestParse_ExplicitRetestTolerance(t *testing.T) {
	clearOverrides(t)

	s, err := Parse([]byte(`{"stop_loss_percent": 0.01, "retest_tolerance": 0.002}`))
	require.NoError(t, err)

	assert.Equal(t, 0.002, s.RetestTolerance)
	assert.Equal(t, strategy.Config{
		StopLossPercent: 0.01,
		RiskRewardRatio: DefaultRiskReward,
		Lookback:        DefaultLookback,
		RetestTolerance: 0.002,
	}, s.Strategy())
}

func TestParse_YAML(t *testing.T) {
	clearOverrides(t)

	s, err := Parse([]byte("symbol: SOLUSDT\nsource: oanda\nredis:\n  addr: localhost:6379\n  ttl_seconds: 30\noanda:\n  account_id: acc\n"))
	require.NoError(t, err)

	assert.Equal(t, "SOLUSDT", s.Symbol)
	assert.Equal(t, SourceOanda, s.Source)
	assert.Equal(t, "localhost:6379", s.Redis.Addr)
	assert.Equal(t, 30*time.Second, s.Redis.TTL)
	assert.Equal(t, "acc", s.Oanda.AccountId)
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")

	s, err := Parse([]byte(settingsJSON))
	require.NoError(t, err)

	assert.Equal(t, "env-key", s.ApiKey)
	assert.Equal(t, "file-secret", s.ApiSecret, "unset overrides keep the file value")
	assert.Equal(t, "env-token", s.Telegram.BotToken)
	assert.Equal(t, "https://t.me/signals", s.Telegram.ChannelUsername)
	assert.Equal(t, "redis:6379", s.Redis.Addr)
	assert.Equal(t, "http://pushgateway:9091", s.PushgatewayUrl)
}

func TestParse_InvalidDocument(t *testing.T) {
	_, err := Parse([]byte(`{"symbol": [`))
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	clearOverrides(t)
	// godotenv only fills variables that are unset
	require.NoError(t, os.Unsetenv("OANDA_API_KEY"))
	t.Cleanup(func() { _ = os.Unsetenv("OANDA_API_KEY") })

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(settingsPath, []byte(settingsJSON), 0o644))
	require.NoError(t, os.WriteFile(envPath, []byte("OANDA_API_KEY=from-dotenv\n"), 0o644))

	s, err := Load(settingsPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", s.Symbol)
	assert.Equal(t, "from-dotenv", s.Oanda.ApiKey)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearOverrides(t)

	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(settingsPath, []byte(`{}`), 0o644))

	_, err := Load(settingsPath, filepath.Join(dir, "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_MissingSettings(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")
	assert.ErrorContains(t, err, "failed to read settings")
}

func TestValidate(t *testing.T) {
	clearOverrides(t)

	tests := []struct {
		name string
		doc  string
	}{
		{"stop loss out of range", `{"stop_loss_percent": 1.5}`},
		{"zero risk reward", `{"risk_reward_ratio": 0}`},
		{"zero lookback", `{"lookback": 0}`},
		{"negative quantity", `{"quantity": -1}`},
		{"unknown mode", `{"mode": "live"}`},
		{"unknown source", `{"source": "kraken"}`},
		{"negative retest tolerance", `{"retest_tolerance": -0.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.doc))
			require.NoError(t, err)

			err = s.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
