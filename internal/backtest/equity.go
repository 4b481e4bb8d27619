package backtest

import (
	"fmt"
	"strings"

	"github.com/jwtly10/insightflow/internal/logging"
	"github.com/jwtly10/insightflow/internal/types"
)

var equityLog = logging.New("equity")

const DefaultInitialBalance = 10000.0

// Mode selects how trade P&L is booked onto the candle series.
type Mode int

const (
	// ModeFirstMatch books, at each candle, the P&L of the first trade (in
	// slice order) that enters or exits there. Co-indexed trades beyond the
	// first are dropped, and a trade spanning several candles is booked at
	// both its entry and its exit. This matches the charts users already have.
	ModeFirstMatch Mode = iota
	// ModeRealized books every trade once, at its exit candle, summing all
	// trades that exit on the same candle.
	ModeRealized
)

func (m Mode) String() string {
	switch m {
	case ModeFirstMatch:
		return "first-match"
	case ModeRealized:
		return "realized"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-match", "firstmatch", "compat":
		return ModeFirstMatch, nil
	case "realized", "realised":
		return ModeRealized, nil
	default:
		return 0, fmt.Errorf("unknown equity mode %q", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type EquityOptions struct {
	// InitialBalance defaults to DefaultInitialBalance when zero.
	InitialBalance float64
	Mode           Mode
}

// EquityPoint is one chart sample aligned with a candle. Drawdown is a
// percentage and never positive. Trades is 1 when a trade event happened on
// the candle, else 0.
type EquityPoint struct {
	Time     int64   `json:"time"`
	Equity   float64 `json:"equity"`
	Drawdown float64 `json:"drawdown"`
	Trades   int     `json:"trades"`
}

// candleEvents is what happens on a single candle.
type candleEvents struct {
	pnl   float64
	touch bool
}

// BuildEquityCurve walks candles once and returns one point per candle with
// the running balance and the drawdown from its high-water mark. Trades whose
// indices fall outside the series are ignored.
func BuildEquityCurve(candles []types.Candle, trades []types.Trade, opts EquityOptions) []EquityPoint {
	initial := opts.InitialBalance
	if initial == 0 {
		initial = DefaultInitialBalance
	}

	events := indexTrades(len(candles), trades, opts.Mode)

	points := make([]EquityPoint, len(candles))
	balance, peak := initial, initial
	for i, c := range candles {
		ev := events[i]
		if ev.touch {
			balance += ev.pnl
			if balance > peak {
				peak = balance
			}
		}

		points[i] = EquityPoint{
			Time:     c.Time,
			Equity:   balance,
			Drawdown: drawdown(balance, peak),
		}
		if ev.touch {
			points[i].Trades = 1
		}
	}

	equityLog.Debug("Built equity curve", "candles", len(candles), "trades", len(trades), "mode", opts.Mode, "final", balance, "peak", peak)
	return points
}

// indexTrades resolves the per-candle events in a single pass over trades.
func indexTrades(n int, trades []types.Trade, mode Mode) []candleEvents {
	events := make([]candleEvents, n)
	inRange := func(i int) bool { return i >= 0 && i < n }

	for _, t := range trades {
		switch mode {
		case ModeRealized:
			if inRange(t.ExitIndex) {
				events[t.ExitIndex].pnl += t.PnL
				events[t.ExitIndex].touch = true
			}
			if inRange(t.EntryIndex) {
				events[t.EntryIndex].touch = true
			}
		default:
			for _, i := range []int{t.EntryIndex, t.ExitIndex} {
				if inRange(i) && !events[i].touch {
					events[i] = candleEvents{pnl: t.PnL, touch: true}
				}
			}
		}
	}
	return events
}

// drawdown is 0 at a high-water mark and for a non-positive peak, where the
// percentage is undefined.
func drawdown(balance, peak float64) float64 {
	if peak <= 0 || balance >= peak {
		return 0
	}
	return -100 * (peak - balance) / peak
}

// MaxDrawdown returns the deepest drawdown in points, 0 for an empty curve.
func MaxDrawdown(points []EquityPoint) float64 {
	var worst float64
	for _, p := range points {
		if p.Drawdown < worst {
			worst = p.Drawdown
		}
	}
	return worst
}
