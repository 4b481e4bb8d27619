package backtest

import (
	"fmt"
	"io"

	"github.com/jwtly10/insightflow/internal/logging"
	"github.com/jwtly10/insightflow/internal/types"
)

var statsLog = logging.New("stats")

// Stats is the headline summary shown next to a backtest chart.
type Stats struct {
	WinRate  float64 `json:"winRate"`
	TotalPnL float64 `json:"totalPnL"`
	AvgRR    float64 `json:"avgRR"`
}

// CalculateStats reduces closed trades to win rate (percent), total P&L and
// mean R:R, each rounded to 2 places with Round. A trade with zero P&L is not
// a win. An empty slice yields the zero Stats. Malformed values are not
// checked here: a NaN P&L or R:R comes out as NaN.
func CalculateStats(trades []types.Trade) Stats {
	if len(trades) == 0 {
		return Stats{}
	}

	var wins int
	var pnl, rr float64
	for _, t := range trades {
		if t.Outcome() == types.WIN {
			wins++
		}
		pnl += t.PnL
		rr += t.RR
	}

	n := float64(len(trades))
	stats := Stats{
		WinRate:  Round(100*float64(wins)/n, 2),
		TotalPnL: Round(pnl, 2),
		AvgRR:    Round(rr/n, 2),
	}
	statsLog.Debug("Calculated stats", "trades", len(trades), "wins", wins, "winRate", stats.WinRate, "totalPnL", stats.TotalPnL, "avgRR", stats.AvgRR)
	return stats
}

// Statistics is the detailed report for a simulated run.
type Statistics struct {
	// Basic
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	// P&L
	TotalPnL        float64
	TotalPnLPercent float64
	GrossProfit     float64
	GrossLoss       float64
	ProfitFactor    float64

	// Averages
	AvgWin        float64
	AvgLoss       float64
	AvgRR         float64
	ExpectedValue float64

	// Risk
	MaxDrawdown        float64
	MaxDrawdownPercent float64

	// Duration
	AvgBarsHeld float64
}

func (r *Results) Calculate() *Statistics {
	// Return cached if already calculated
	if r.stats != nil {
		return r.stats
	}

	stats := &Statistics{
		TotalTrades: len(r.Trades),
	}

	if len(r.Trades) == 0 {
		r.stats = stats
		return stats
	}

	var totalWin, totalLoss, totalRR float64
	var totalBars int
	peak := r.InitialBalance
	var maxDD float64
	runningBalance := r.InitialBalance

	for _, trade := range r.Trades {
		if trade.PnL > 0 {
			stats.WinningTrades++
			totalWin += trade.PnL
		} else if trade.PnL < 0 {
			stats.LosingTrades++
			totalLoss += trade.PnL // Already negative
		}

		runningBalance += trade.PnL
		if runningBalance > peak {
			peak = runningBalance
		}
		if dd := peak - runningBalance; dd > maxDD {
			maxDD = dd
		}

		totalRR += trade.RR
		totalBars += trade.BarsHeld()
	}

	n := float64(stats.TotalTrades)
	stats.WinRate = float64(stats.WinningTrades) / n * 100

	stats.GrossProfit = totalWin
	stats.GrossLoss = totalLoss
	stats.TotalPnL = totalWin + totalLoss
	if r.InitialBalance != 0 {
		stats.TotalPnLPercent = stats.TotalPnL / r.InitialBalance * 100
	}

	if totalLoss != 0 {
		stats.ProfitFactor = totalWin / -totalLoss
	}

	if stats.WinningTrades > 0 {
		stats.AvgWin = totalWin / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = totalLoss / float64(stats.LosingTrades)
	}
	stats.AvgRR = totalRR / n
	stats.ExpectedValue = stats.TotalPnL / n

	stats.MaxDrawdown = maxDD
	if peak > 0 {
		stats.MaxDrawdownPercent = maxDD / peak * 100
	}

	stats.AvgBarsHeld = float64(totalBars) / n

	r.stats = stats
	return stats
}

func (s *Statistics) Print(w io.Writer) {
	fmt.Fprintln(w, "\n=== Backtest Results ===")
	fmt.Fprintf(w, "Total Trades:     %d\n", s.TotalTrades)
	fmt.Fprintf(w, "Winning Trades:   %d (%.2f%%)\n", s.WinningTrades, s.WinRate)
	fmt.Fprintf(w, "Losing Trades:    %d\n\n", s.LosingTrades)

	fmt.Fprintf(w, "Total P&L:        £%.2f (%.2f%%)\n", s.TotalPnL, s.TotalPnLPercent)
	fmt.Fprintf(w, "Gross Profit:     £%.2f\n", s.GrossProfit)
	fmt.Fprintf(w, "Gross Loss:       £%.2f\n", s.GrossLoss)
	fmt.Fprintf(w, "Profit Factor:    %.2f\n\n", s.ProfitFactor)

	fmt.Fprintf(w, "Avg Win:          £%.2f\n", s.AvgWin)
	fmt.Fprintf(w, "Avg Loss:         £%.2f\n", s.AvgLoss)
	fmt.Fprintf(w, "Avg R:R:          %.2f\n", s.AvgRR)
	fmt.Fprintf(w, "Expected Value:   £%.2f per trade\n\n", s.ExpectedValue)

	fmt.Fprintf(w, "Max Drawdown:     £%.2f (%.2f%%)\n", s.MaxDrawdown, s.MaxDrawdownPercent)
	fmt.Fprintf(w, "Avg Bars Held:    %.1f\n", s.AvgBarsHeld)
}
