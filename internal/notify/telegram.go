package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwtly10/smartbreakout/internal/binance"
	"github.com/jwtly10/smartbreakout/internal/types"
)

const DefaultApiUrl = "https://api.telegram.org"

// ErrNotConfigured is returned by Send when no bot token or channel is set.
var ErrNotConfigured = errors.New("telegram not configured")

// https://core.telegram.org/bots/api#sendmessage

type sendMessageRequest struct {
	ChatId                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type Telegram struct {
	BotToken string
	Channel  string
	ApiUrl   string

	hc  *http.Client
	log *slog.Logger
}

func NewTelegram(botToken, channel string, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}
	return &Telegram{
		BotToken: strings.TrimSpace(botToken),
		Channel:  NormalizeChannel(channel),
		ApiUrl:   DefaultApiUrl,
		hc:       &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

func (t *Telegram) Configured() bool {
	return t.BotToken != "" && t.Channel != ""
}

// Send posts text to the configured channel.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatId:                t.Channel,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(t.ApiUrl, "/") + "/bot" + t.BotToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	hc := t.hc
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		// the url carries the token, keep it out of the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("status code %d, failed to parse telegram response: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !apiResp.Ok {
		return fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}

	t.log.Info("Telegram message sent", "target", t.Channel)
	return nil
}

// NormalizeChannel turns a t.me link into an @channel handle. Anything else is
// returned trimmed.
func NormalizeChannel(channel string) string {
	raw := strings.TrimSpace(channel)
	idx := strings.LastIndex(raw, "t.me/")
	if idx < 0 {
		return raw
	}
	segment := strings.Trim(strings.TrimSpace(raw[idx+len("t.me/"):]), "/")
	if !strings.HasPrefix(segment, "@") {
		return "@" + segment
	}
	return segment
}

// FormatSignal renders the channel message for an actionable signal.
func FormatSignal(sig types.Signal, mode binance.Mode) string {
	modeLabel := "Demo"
	if mode == binance.ModeTestnet {
		modeLabel = "Testnet"
	}
	return fmt.Sprintf("🚀 Smart Breakout Strategy\nSignal: %s\nEntry: %.2f\nSL: %.2f\nTP: %.2f\nMode: %s",
		sig.Side, deref(sig.EntryPrice), deref(sig.StopLoss), deref(sig.TakeProfit), modeLabel)
}

// TestMessage is the fixed message used to check the channel wiring.
func TestMessage() string {
	return "🚀 Smart Breakout Strategy TEST\n" +
		"Signal: BUY\n" +
		"Entry: 100000\n" +
		"SL: 99500\n" +
		"TP: 102000\n" +
		"Mode: Test"
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
