package tradingview

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jwtly10/insightflow/internal/account"
	"github.com/jwtly10/insightflow/internal/types"
)

// DumpEnabled reports whether DEBUG_DUMP=1 is set.
func DumpEnabled() bool {
	return os.Getenv("DEBUG_DUMP") == "1"
}

// DumpPineScript writes the trade markers to w when DEBUG_DUMP=1.
func DumpPineScript(w io.Writer, candles []types.Candle, trades []types.Trade) {
	if !DumpEnabled() {
		return
	}
	slog.Info("DEBUG_DUMP=1, dumping pine script", "trades", len(trades))
	fmt.Fprint(w, GeneratePineScript(candles, trades))
}

// GeneratePineScript renders Pine Script plotshape markers for each trade's
// entry and exit, resolving candle indices to bar times. Trades pointing
// outside the candle series are skipped.
func GeneratePineScript(candles []types.Candle, trades []types.Trade) string {
	var sb strings.Builder

	sb.WriteString("// ============================================\n")
	sb.WriteString("// TRADE VALIDATION MARKERS\n")
	sb.WriteString("// ============================================\n\n")

	for _, trade := range trades {
		if trade.EntryIndex < 0 || trade.ExitIndex >= len(candles) || trade.EntryIndex > trade.ExitIndex {
			slog.Warn("Skipping pine marker for trade outside candle range", "id", trade.ID, "entry", trade.EntryIndex, "exit", trade.ExitIndex)
			continue
		}

		entryText := fmt.Sprintf("#%d %s\\nEntry: %.5f\\nTP: %.5f\\nSL: %.5f",
			trade.ID, trade.Direction, trade.EntryPrice, trade.TakeProfit, trade.StopLoss)
		fmt.Fprintf(&sb, "t%d_entry = time == %s\n", trade.ID, formatPineTimestamp(candles[trade.EntryIndex].Timestamp()))
		fmt.Fprintf(&sb, "plotshape(t%d_entry, title=\"#%d %s Entry\", location=location.bottom, color=color.blue, style=shape.labelup, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			trade.ID, trade.ID, trade.Direction, entryText)

		exitColor := "color.green"
		if trade.Outcome() == types.LOSS {
			exitColor = "color.red"
		}
		exitText := fmt.Sprintf("#%d EXIT\\nExit: %.5f\\nP&L: %.2f\\n%s",
			trade.ID, trade.ExitPrice, trade.PnL, exitReason(trade))
		fmt.Fprintf(&sb, "t%d_exit = time == %s\n", trade.ID, formatPineTimestamp(candles[trade.ExitIndex].Timestamp()))
		fmt.Fprintf(&sb, "plotshape(t%d_exit, title=\"#%d EXIT\", location=location.top, color=%s, style=shape.labeldown, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			trade.ID, trade.ID, exitColor, exitText)
	}

	return sb.String()
}

func exitReason(t types.Trade) string {
	if t.ExitReason == "" {
		return account.ReasonEndOfTest
	}
	return t.ExitReason
}

func formatPineTimestamp(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("timestamp(\"UTC\", %d, %d, %d, %d, %d)",
		utc.Year(), int(utc.Month()), utc.Day(), utc.Hour(), utc.Minute())
}
