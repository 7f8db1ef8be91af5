package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwtly10/smartbreakout/internal/binance"
	"github.com/jwtly10/smartbreakout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func ptr(v float64) *float64 { return &v }

func TestNormalizeChannel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://t.me/smartsignals", "@smartsignals"},
		{"t.me/smartsignals/", "@smartsignals"},
		{"https://t.me/@smartsignals", "@smartsignals"},
		{"  @smartsignals  ", "@smartsignals"},
		{"-1001234567890", "-1001234567890"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeChannel(tt.in))
		})
	}
}

func TestFormatSignal(t *testing.T) {
	sig := types.Signal{
		Side:       types.BUY,
		EntryPrice: ptr(101.2),
		StopLoss:   ptr(100.8952),
		TakeProfit: ptr(101.81),
	}

	assert.Equal(t,
		"🚀 Smart Breakout Strategy\nSignal: BUY\nEntry: 101.20\nSL: 100.90\nTP: 101.81\nMode: Demo",
		FormatSignal(sig, binance.ModeDemo))
	assert.Contains(t, FormatSignal(sig, binance.ModeTestnet), "Mode: Testnet")
}

func TestTestMessage(t *testing.T) {
	assert.Equal(t, "🚀 Smart Breakout Strategy TEST\nSignal: BUY\nEntry: 100000\nSL: 99500\nTP: 102000\nMode: Test", TestMessage())
}

func TestSend_PostsMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	tg := NewTelegram("123:abc", "https://t.me/smartsignals", quiet)
	tg.ApiUrl = srv.URL

	require.NoError(t, tg.Send(context.Background(), "hello"))

	assert.Equal(t, "@smartsignals", got.ChatId)
	assert.Equal(t, "hello", got.Text)
	assert.True(t, got.DisableWebPagePreview)
}

func TestSend_ApiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg := NewTelegram("123:abc", "@missing", quiet)
	tg.ApiUrl = srv.URL

	err := tg.Send(context.Background(), "hello")

	assert.EqualError(t, err, "telegram API error 400: Bad Request: chat not found")
}

func TestSend_NotConfigured(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	for _, tg := range []*Telegram{
		NewTelegram("", "@channel", quiet),
		NewTelegram("123:abc", "  ", quiet),
	} {
		tg.ApiUrl = srv.URL
		assert.False(t, tg.Configured())
		assert.ErrorIs(t, tg.Send(context.Background(), "hello"), ErrNotConfigured)
	}
	assert.False(t, called)
}

func TestSend_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	tg := NewTelegram("123:secret-token", "@channel", quiet)
	tg.ApiUrl = srv.URL

	err := tg.Send(context.Background(), "hello")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}
