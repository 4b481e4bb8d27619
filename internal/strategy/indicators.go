package strategy

import (
	"math"

	"github.com/jwtly10/insightflow/internal/logging"
	"github.com/jwtly10/insightflow/internal/types"
)

var (
	atrLog       = logging.New("atr")
	atrCandleLog = logging.New("atrcandle")
	emaLog       = logging.New("ema")
	smaLog       = logging.New("sma")
)

// EMA - Exponential Moving Average, seeded with the first price.
type EMA struct {
	period int
	value  float64
	alpha  float64
	init   bool
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EMA) Update(price float64) {
	if !e.init {
		e.value = price
		e.init = true
	} else {
		e.value = price*e.alpha + e.value*(1-e.alpha)
	}
	emaLog.Debug("EMA updated", "period", e.period, "price", price, "value", e.value)
}

func (e *EMA) Value() float64 { return e.value }
func (e *EMA) Ready() bool    { return e.init }

// SMA - Simple Moving Average over a fixed window, kept as a running sum.
type SMA struct {
	period int
	window []float64
	sum    float64
}

func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (s *SMA) Update(price float64) {
	s.window = append(s.window, price)
	s.sum += price
	if len(s.window) > s.period {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
	smaLog.Debug("SMA updated", "period", s.period, "price", price, "value", s.Value(), "ready", s.Ready())
}

func (s *SMA) Value() float64 {
	if len(s.window) == 0 {
		return 0
	}
	return s.sum / float64(len(s.window))
}

func (s *SMA) Ready() bool {
	return len(s.window) >= s.period
}

// ATR - Average True Range smoothed with an EMA.
type ATR struct {
	period    int
	ema       *EMA
	prevClose float64
	seen      int
}

func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		ema:    NewEMA(period),
	}
}

func (a *ATR) Update(bar types.Candle) {
	a.seen++
	if a.seen == 1 {
		a.prevClose = bar.Close
		return
	}

	tr := math.Max(bar.High-bar.Low, math.Max(math.Abs(bar.High-a.prevClose), math.Abs(bar.Low-a.prevClose)))
	a.ema.Update(tr)
	a.prevClose = bar.Close

	atrLog.Debug("ATR updated", "time", bar.Time, "trueRange", tr, "value", a.Value(), "ready", a.Ready())
}

func (a *ATR) Value() float64 { return a.ema.Value() }

// Ready once period true ranges have been folded in.
func (a *ATR) Ready() bool { return a.seen > a.period }

// ATRCandle flags candles whose body exceeds a multiple of the ATR and,
// optionally, a multiple of the previous body.
type ATRCandle struct {
	atrMultiplier    float64
	withRelativeSize bool
	relativeSize     float64
	atr              *ATR
	prevBar          *types.Candle
	direction        types.Direction
}

func NewATRCandle(atrPeriod int, atrMultiplier, relativeSize float64, withRelativeSize bool) *ATRCandle {
	return &ATRCandle{
		atrMultiplier:    atrMultiplier,
		withRelativeSize: withRelativeSize,
		relativeSize:     relativeSize,
		atr:              NewATR(atrPeriod),
	}
}

func (a *ATRCandle) Update(bar types.Candle) {
	// Threshold uses the ATR before this bar is folded in.
	a.direction = ""
	if a.atr.Ready() && a.violates(bar) {
		a.direction = types.LONG
		if bar.Close < bar.Open {
			a.direction = types.SHORT
		}
		atrCandleLog.Info("ATRCandle violation detected", "time", bar.Time, "open", bar.Open, "close", bar.Close, "direction", a.direction)
	}

	a.atr.Update(bar)
	a.prevBar = &bar
}

func (a *ATRCandle) violates(bar types.Candle) bool {
	body := math.Abs(bar.Close - bar.Open)
	threshold := a.atr.Value() * a.atrMultiplier

	atrCandleLog.Debug("ATRCandle check", "time", bar.Time, "body", body, "atr", a.atr.Value(), "threshold", threshold)

	if body <= threshold {
		return false
	}
	if !a.withRelativeSize || a.prevBar == nil {
		return true
	}
	return body > math.Abs(a.prevBar.Close-a.prevBar.Open)*a.relativeSize
}

// Direction is LONG for a bullish violation, SHORT for a bearish one and empty
// when the last bar was not a violation.
func (a *ATRCandle) Direction() types.Direction { return a.direction }

func (a *ATRCandle) Value() float64 {
	if a.direction != "" {
		return 1.0
	}
	return 0.0
}

func (a *ATRCandle) Ready() bool {
	return a.atr.Ready() && a.prevBar != nil
}
