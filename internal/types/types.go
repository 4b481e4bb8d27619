package types

import "time"

const (
	BUY  Action = "BUY"
	SELL Action = "SELL"

	OPEN Type = "OPEN_TRADE"

	LONG  Direction = "LONG"
	SHORT Direction = "SHORT"

	WIN  Outcome = "win"
	LOSS Outcome = "loss"
)

type Action string
type Type string
type Direction string
type Outcome string

// Candle is one OHLCV bar. Time is epoch seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (c Candle) Timestamp() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// Trade is a closed position. EntryIndex and ExitIndex point into the candle
// series the trade was simulated on.
type Trade struct {
	ID         int       `json:"id,omitempty"`
	EntryIndex int       `json:"entryIndex"`
	ExitIndex  int       `json:"exitIndex"`
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  float64   `json:"exitPrice"`
	PnL        float64   `json:"pnl"`
	RR         float64   `json:"rr"`
	Direction  Direction `json:"direction,omitempty"`
	Size       float64   `json:"size,omitempty"`
	StopLoss   float64   `json:"stopLoss,omitempty"`
	TakeProfit float64   `json:"takeProfit,omitempty"`
	ExitReason string    `json:"exitReason,omitempty"`
}

// Outcome is WIN only for strictly positive P&L.
func (t Trade) Outcome() Outcome {
	if t.PnL > 0 {
		return WIN
	}
	return LOSS
}

// BarsHeld is the number of candles between entry and exit.
func (t Trade) BarsHeld() int {
	return t.ExitIndex - t.EntryIndex
}

type Signal struct {
	Type   Type   // OPEN_TRADE
	Action Action // "BUY", "SELL"
	Price  float64
	TP     float64
	SL     float64
	Size   float64 // Lot size
}
