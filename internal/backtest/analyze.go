package backtest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jwtly10/insightflow/internal/types"
)

// Analysis bundles the stats and the equity curve for one trade list.
type Analysis struct {
	Stats       Stats         `json:"stats"`
	Equity      []EquityPoint `json:"equity"`
	MaxDrawdown float64       `json:"maxDrawdown"`
}

// Analyze runs CalculateStats and BuildEquityCurve concurrently. Both only
// read their inputs, so no locking is needed; the context is checked before
// either starts.
func Analyze(ctx context.Context, candles []types.Candle, trades []types.Trade, opts EquityOptions) (*Analysis, error) {
	g, ctx := errgroup.WithContext(ctx)
	var out Analysis

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Stats = CalculateStats(trades)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Equity = BuildEquityCurve(candles, trades, opts)
		out.MaxDrawdown = MaxDrawdown(out.Equity)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
