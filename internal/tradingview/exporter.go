package tradingview

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jwtly10/smartbreakout/internal/types"
)

func allowDump() bool {
	// Get OS Env for dump DEBUG_DUMP=1 etc
	debugDump := os.Getenv("DEBUG_DUMP")
	if debugDump == "1" {
		slog.Info("DEBUG_DUMP=1, dumping to stdout")
		return true
	}

	return false
}

// DumpPineScript prints an overlay for sig when DEBUG_DUMP=1. at is the open
// time of the candle the signal was generated on.
func DumpPineScript(symbol string, at time.Time, sig types.Signal) {
	if !allowDump() {
		return
	}

	pineCode := generateSignalPinescript(symbol, at, sig)
	fmt.Println(pineCode)
}

// generateSignalPinescript renders horizontal lines for the breakout level and
// the entry, stop loss and take profit, plus a marker on the signal candle, so a
// signal can be checked by eye on a TradingView chart.
func generateSignalPinescript(symbol string, at time.Time, sig types.Signal) string {
	var sb strings.Builder

	sb.WriteString("// ============================================\n")
	sb.WriteString(fmt.Sprintf("// SIGNAL VALIDATION: %s\n", symbol))
	sb.WriteString("// ============================================\n\n")

	if lvl, ok := sig.Meta["breakout_level"].(float64); ok {
		sb.WriteString(fmt.Sprintf("hline(%.5f, title=\"Breakout level\", color=color.orange, linestyle=hline.style_dashed)\n", lvl))
	}
	if sig.EntryPrice != nil {
		sb.WriteString(fmt.Sprintf("hline(%.5f, title=\"Entry\", color=color.blue, linestyle=hline.style_solid)\n", *sig.EntryPrice))
	}
	if sig.StopLoss != nil {
		sb.WriteString(fmt.Sprintf("hline(%.5f, title=\"SL\", color=color.red, linestyle=hline.style_dotted)\n", *sig.StopLoss))
	}
	if sig.TakeProfit != nil {
		sb.WriteString(fmt.Sprintf("hline(%.5f, title=\"TP\", color=color.green, linestyle=hline.style_dotted)\n", *sig.TakeProfit))
	}
	sb.WriteString("\n")

	if sig.EntryPrice != nil {
		text := fmt.Sprintf("%s\\nEntry: %.5f", sig.Side, *sig.EntryPrice)
		if sig.StopLoss != nil && sig.TakeProfit != nil {
			text += fmt.Sprintf("\\nTP: %.5f\\nSL: %.5f", *sig.TakeProfit, *sig.StopLoss)
		}
		sb.WriteString(fmt.Sprintf("signal_bar = time == %s\n", formatPineTimestamp(at)))
		sb.WriteString(fmt.Sprintf("plotshape(signal_bar, title=\"%s Signal\", location=location.belowbar, color=color.blue, style=shape.labelup, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			sig.Side, text))
	}

	return sb.String()
}

func formatPineTimestamp(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("timestamp(\"UTC\", %d, %d, %d, %d, %d)",
		utc.Year(), int(utc.Month()), utc.Day(), utc.Hour(), utc.Minute())
}
