package strategy

import (
	"log/slog"

	"github.com/jwtly10/insightflow/internal/account"
	"github.com/jwtly10/insightflow/internal/oanda"
	"github.com/jwtly10/insightflow/internal/types"
)

// DJATR trades in the direction of an outsized ATR candle when it agrees with
// the EMA trend. Only one position is held at a time.
type DJATR struct {
	*Base

	trend     *EMA
	atrCandle *ATRCandle
	processed int
}

func NewDJATRStrategy() *DJATR {
	return &DJATR{
		Base:      NewBaseStrategy(string(oanda.NAS100), string(oanda.M15), 1, 2, 10000, 150),
		trend:     NewEMA(50),
		atrCandle: NewATRCandle(14, 1.5, 1.2, true),
	}
}

func (s *DJATR) OnBar(bars []types.Candle, currentIndex int, acc *account.Account) []types.Signal {
	// Indicators are fed each bar exactly once, whatever the caller's replay.
	for ; s.processed <= currentIndex; s.processed++ {
		bar := bars[s.processed]
		s.atrCandle.Update(bar)
		s.trend.Update(bar.Close)
	}

	if !IndicatorsReady(s.trend, s.atrCandle) || acc.PositionCount() > 0 {
		return nil
	}

	bar := bars[currentIndex]
	var (
		signal types.Signal
		err    error
	)
	switch {
	case s.atrCandle.Direction() == types.LONG && bar.Close > s.trend.Value():
		signal, err = OpenLong(s, bar, acc)
	case s.atrCandle.Direction() == types.SHORT && bar.Close < s.trend.Value():
		signal, err = OpenShort(s, bar, acc)
	default:
		return nil
	}
	if err != nil {
		slog.Error("Failed to build signal", "error", err, "index", currentIndex)
		return nil
	}

	return []types.Signal{signal}
}
