package account

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/jwtly10/insightflow/internal/types"
)

const (
	ReasonStopLoss   = "STOP_LOSS"
	ReasonTakeProfit = "TAKE_PROFIT"
	ReasonEndOfTest  = "END_OF_BACKTEST"
)

type Account struct {
	Balance        float64
	openPositions  []*Position
	nextPositionID int
}

type Position struct {
	ID         int
	EntryIndex int
	Direction  types.Direction
	EntryPrice float64
	Size       float64
	StopLoss   float64
	TakeProfit float64
}

func PrintTrade(w io.Writer, t types.Trade) {
	fmt.Fprintf(w, "#%d | %s | Entry: %.5f @ bar %d | Exit: %.5f @ bar %d | P&L: £%.2f | R:R %.2f | %s\n",
		t.ID,
		t.Direction,
		t.EntryPrice,
		t.EntryIndex,
		t.ExitPrice,
		t.ExitIndex,
		t.PnL,
		t.RR,
		t.ExitReason,
	)
}

func NewAccount(initialBalance float64) *Account {
	return &Account{
		Balance:        initialBalance,
		openPositions:  []*Position{},
		nextPositionID: 1,
	}
}

// OpenTrade opens a position at the candle with the given index.
func (a *Account) OpenTrade(signal types.Signal, index int) *Position {
	slog.Info("Opening trade", "action", signal.Action, "id", a.nextPositionID, "price", signal.Price, "size", signal.Size, "tp", signal.TP, "sl", signal.SL, "index", index)

	var dir types.Direction
	switch signal.Action {
	case types.BUY:
		dir = types.LONG
	case types.SELL:
		dir = types.SHORT
	}

	pos := &Position{
		ID:         a.nextPositionID,
		EntryIndex: index,
		Direction:  dir,
		EntryPrice: signal.Price,
		Size:       signal.Size,
		StopLoss:   signal.SL,
		TakeProfit: signal.TP,
	}

	a.nextPositionID++
	a.openPositions = append(a.openPositions, pos)

	return pos
}

// CheckExits checks all open positions against the candle at index for stop loss
// or take profit hits. When both levels sit inside the candle the stop wins.
func (a *Account) CheckExits(bar types.Candle, index int) []types.Trade {
	var closedTrades []types.Trade
	remainingPositions := []*Position{}

	for _, pos := range a.openPositions {
		var (
			exitPrice float64
			reason    string
		)

		if pos.Direction == types.LONG {
			switch {
			case bar.Low <= pos.StopLoss:
				exitPrice, reason = pos.StopLoss, ReasonStopLoss
			case bar.High >= pos.TakeProfit:
				exitPrice, reason = pos.TakeProfit, ReasonTakeProfit
			}
		} else {
			switch {
			case bar.High >= pos.StopLoss:
				exitPrice, reason = pos.StopLoss, ReasonStopLoss
			case bar.Low <= pos.TakeProfit:
				exitPrice, reason = pos.TakeProfit, ReasonTakeProfit
			}
		}

		if reason == "" {
			remainingPositions = append(remainingPositions, pos)
			continue
		}

		slog.Debug("Exit level hit", "position_id", pos.ID, "reason", reason, "bar_low", bar.Low, "bar_high", bar.High, "index", index)
		closedTrades = append(closedTrades, a.closePosition(pos, exitPrice, index, reason))
	}

	a.openPositions = remainingPositions
	return closedTrades
}

func (a *Account) closePosition(pos *Position, exitPrice float64, exitIndex int, reason string) types.Trade {
	var pnl float64

	if pos.Direction == types.LONG {
		pnl = (exitPrice - pos.EntryPrice) * pos.Size
	} else {
		pnl = (pos.EntryPrice - exitPrice) * pos.Size
	}

	a.Balance += pnl

	rr := realizedRR(pos, exitPrice)
	slog.Info("Closed position", "id", pos.ID, "exit_price", exitPrice, "pnl", pnl, "rr", rr, "reason", reason, "index", exitIndex)

	return types.Trade{
		ID:         pos.ID,
		EntryIndex: pos.EntryIndex,
		ExitIndex:  exitIndex,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       pos.Size,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		PnL:        pnl,
		RR:         rr,
		ExitReason: reason,
	}
}

// realizedRR is the price move captured, measured in units of the initial risk.
// A position opened without a stop distance has no defined risk and reports 0.
func realizedRR(pos *Position, exitPrice float64) float64 {
	risk := math.Abs(pos.EntryPrice - pos.StopLoss)
	if risk == 0 {
		return 0
	}
	return math.Abs(exitPrice-pos.EntryPrice) / risk
}

func (a *Account) CloseAll(lastBar types.Candle, lastIndex int) []types.Trade {
	var trades []types.Trade

	for _, pos := range a.openPositions {
		trades = append(trades, a.closePosition(pos, lastBar.Close, lastIndex, ReasonEndOfTest))
	}

	a.openPositions = []*Position{}
	return trades
}

func (a *Account) OpenPositions() []*Position {
	return a.openPositions
}

func (a *Account) PositionCount() int {
	return len(a.openPositions)
}
