package backtest

import (
	"fmt"
	"io"

	"github.com/jwtly10/insightflow/internal/account"
	"github.com/jwtly10/insightflow/internal/types"
)

type Results struct {
	InitialBalance float64
	FinalBalance   float64
	Candles        []types.Candle
	Trades         []types.Trade

	stats *Statistics
}

// EquityCurve charts the run with each trade booked once at its exit.
func (r *Results) EquityCurve() []EquityPoint {
	return BuildEquityCurve(r.Candles, r.Trades, EquityOptions{InitialBalance: r.InitialBalance, Mode: ModeRealized})
}

// PrintTradesBetween prints trades in [from, to), clamped to the trade list.
func (r *Results) PrintTradesBetween(w io.Writer, from, to int) {
	from = max(from, 0)
	to = min(to, len(r.Trades))

	fmt.Fprintln(w, "\n=== Trade List ===")
	for i := from; i < to; i++ {
		account.PrintTrade(w, r.Trades[i])
	}
}
