package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/types"
)

// TradeHeader is the column order downloaded trade files have always used.
var TradeHeader = []string{"Entry Index", "Exit Index", "Entry Price", "Exit Price", "PNL", "Outcome"}

var EquityHeader = []string{"Time", "Equity", "Drawdown", "Trades"}

// WriteTradesCSV writes one row per trade under TradeHeader.
func WriteTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TradeHeader); err != nil {
		return fmt.Errorf("write trade header: %w", err)
	}
	for i, t := range trades {
		row := []string{
			strconv.Itoa(t.EntryIndex),
			strconv.Itoa(t.ExitIndex),
			ftoa(t.EntryPrice),
			ftoa(t.ExitPrice),
			ftoa(t.PnL),
			string(t.Outcome()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write trade %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteEquityCSV(w io.Writer, points []backtest.EquityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EquityHeader); err != nil {
		return fmt.Errorf("write equity header: %w", err)
	}
	for i, p := range points {
		row := []string{strconv.FormatInt(p.Time, 10), ftoa(p.Equity), ftoa(p.Drawdown), strconv.Itoa(p.Trades)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write equity point %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ftoa uses the shortest representation that round-trips.
func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }
