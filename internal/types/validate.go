package types

import (
	"fmt"
	"math"
)

const KindValidation = "validation"

// ValidationError describes the first malformed record found in an input slice.
type ValidationError struct {
	Kind   string `json:"kind"`
	Record string `json:"record"`
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s at index %d: %s %s", e.Record, e.Index, e.Field, e.Reason)
}

func invalid(record string, index int, field, reason string) *ValidationError {
	return &ValidationError{Kind: KindValidation, Record: record, Index: index, Field: field, Reason: reason}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateTrades checks trades the simulator or a client produced. The
// aggregators never call this; it guards the API and CLI boundaries.
func ValidateTrades(trades []Trade) error {
	for i, t := range trades {
		switch {
		case t.EntryIndex < 0:
			return invalid("trade", i, "entryIndex", "must not be negative")
		case t.EntryIndex > t.ExitIndex:
			return invalid("trade", i, "exitIndex", "must not precede entryIndex")
		case !finite(t.EntryPrice) || t.EntryPrice <= 0:
			return invalid("trade", i, "entryPrice", "must be a positive number")
		case !finite(t.ExitPrice) || t.ExitPrice <= 0:
			return invalid("trade", i, "exitPrice", "must be a positive number")
		case !finite(t.PnL):
			return invalid("trade", i, "pnl", "must be a finite number")
		case !finite(t.RR) || t.RR < 0:
			return invalid("trade", i, "rr", "must be a non-negative number")
		}
	}
	return nil
}

func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		if i > 0 && c.Time <= candles[i-1].Time {
			return invalid("candle", i, "time", "must be strictly increasing")
		}
		for _, f := range []struct {
			name string
			v    float64
		}{{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}} {
			if !finite(f.v) || f.v <= 0 {
				return invalid("candle", i, f.name, "must be a positive number")
			}
		}
		if !finite(c.Volume) || c.Volume < 0 {
			return invalid("candle", i, "volume", "must be a non-negative number")
		}
		if c.Low > math.Min(c.Open, c.Close) || c.High < math.Max(c.Open, c.Close) {
			return invalid("candle", i, "high/low", "must bound open and close")
		}
	}
	return nil
}

func ValidateStrategies(strategies []Strategy) error {
	for i, s := range strategies {
		if !finite(s.WinRate) || s.WinRate < 0 || s.WinRate > 1 {
			return invalid("strategy", i, "winRate", "must be within [0,1]")
		}
		if !s.Emotion.Valid() {
			return invalid("strategy", i, "emotion", fmt.Sprintf("unknown value %q", s.Emotion))
		}
	}
	return nil
}
