package storage

import "github.com/jwtly10/insightflow/internal/types"

// NumberTrades returns a copy of trades in which every trade without an ID
// takes its 1-based position in the run. Explicit IDs are kept as given.
func NumberTrades(trades []types.Trade) []types.Trade {
	out := make([]types.Trade, len(trades))
	for i, t := range trades {
		if t.ID == 0 {
			t.ID = i + 1
		}
		out[i] = t
	}
	return out
}
