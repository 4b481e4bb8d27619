package backtest

import (
	"log/slog"

	"github.com/jwtly10/insightflow/internal/account"
	"github.com/jwtly10/insightflow/internal/types"
)

type Engine struct {
	Candles        []types.Candle
	initialBalance float64
}

func NewEngine(candles []types.Candle, initialBalance float64) *Engine {
	if initialBalance == 0 {
		initialBalance = DefaultInitialBalance
	}
	return &Engine{
		Candles:        candles,
		initialBalance: initialBalance,
	}
}

type Strategy interface {
	OnBar(bars []types.Candle, currentIndex int, account *account.Account) []types.Signal
}

// Run replays the candles through strategy. Exits are checked before the
// strategy sees a candle, so a position can never close on its entry candle
// except at the end of the series.
func (e *Engine) Run(strategy Strategy) *Results {
	acc := account.NewAccount(e.initialBalance)
	results := &Results{
		InitialBalance: e.initialBalance,
		Candles:        e.Candles,
		Trades:         []types.Trade{},
	}

	slog.Debug("Starting backtest", "initial_balance", e.initialBalance, "total_candles", len(e.Candles))

	for i, bar := range e.Candles {
		results.Trades = append(results.Trades, acc.CheckExits(bar, i)...)

		for _, signal := range strategy.OnBar(e.Candles, i, acc) {
			if signal.Type == types.OPEN {
				acc.OpenTrade(signal, i)
			}
		}
	}

	if n := len(e.Candles); n > 0 {
		results.Trades = append(results.Trades, acc.CloseAll(e.Candles[n-1], n-1)...)
	}

	results.FinalBalance = acc.Balance
	return results
}
