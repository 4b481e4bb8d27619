package strategy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/jwtly10/insightflow/internal/account"
	"github.com/jwtly10/insightflow/internal/oanda"
	"github.com/jwtly10/insightflow/internal/types"
)

type Base struct {
	symbol string
	period string

	riskPercentage float64
	riskRatio      float64
	balanceToRisk  float64
	stopLossPips   int
}

type Strategy interface {
	OnBar(bars []types.Candle, currentIndex int, account *account.Account) []types.Signal

	GetRiskPercentage() float64
	GetRiskRatio() float64
	GetBalanceToRisk() float64
	GetStopLossPips() int
	GetSymbol() string
	GetPeriod() string
}

// Indicator is anything that needs a warmup before its value can be trusted.
type Indicator interface {
	Ready() bool
}

func NewBaseStrategy(symbol, period string, riskPercentage, riskRatio, balanceToRisk float64, stopLossPips int) *Base {
	return &Base{
		symbol,
		period,
		riskPercentage,
		riskRatio,
		balanceToRisk,
		stopLossPips,
	}
}

func (b *Base) GetRiskPercentage() float64 { return b.riskPercentage }
func (b *Base) GetRiskRatio() float64      { return b.riskRatio }
func (b *Base) GetBalanceToRisk() float64  { return b.balanceToRisk }
func (b *Base) GetStopLossPips() int       { return b.stopLossPips }
func (b *Base) GetSymbol() string          { return b.symbol }
func (b *Base) GetPeriod() string          { return b.period }

// IndicatorsReady calls .Ready() on all indicators and returns true if all are ready
func IndicatorsReady(indicators ...Indicator) bool {
	for _, ind := range indicators {
		if !ind.Ready() {
			return false
		}
	}
	return true
}

var pipSizes = map[oanda.InstrumentName]float64{
	oanda.NAS100: 0.1,
	oanda.GBPUSD: 0.0001,
	oanda.EURUSD: 0.0001,
}

// PipSize returns the pip size for a given instrument
func PipSize(ins string) (float64, error) {
	size, ok := pipSizes[oanda.InstrumentName(ins)]
	if !ok {
		return 0, fmt.Errorf("unsupported instrument %q", ins)
	}
	return size, nil
}

func PipsToPrice(pips int, pipSize float64) float64 {
	return float64(pips) * pipSize
}

// OpenLong creates a long trade signal based on the strategy configuration and current bar
func OpenLong(s Strategy, bar types.Candle, acc *account.Account) (types.Signal, error) {
	stop, err := stopDistance(s)
	if err != nil {
		return types.Signal{}, err
	}

	entryPrice := bar.Close
	stopLoss := entryPrice - stop
	takeProfit := entryPrice + stop*s.GetRiskRatio()

	return types.Signal{
		Type:   types.OPEN,
		Action: types.BUY,
		Price:  entryPrice,
		SL:     stopLoss,
		TP:     takeProfit,
		Size:   calculatePositionSize(s, acc, entryPrice, stopLoss),
	}, nil
}

// OpenShort creates a short trade signal based on the strategy configuration and current bar
func OpenShort(s Strategy, bar types.Candle, acc *account.Account) (types.Signal, error) {
	stop, err := stopDistance(s)
	if err != nil {
		return types.Signal{}, err
	}

	entryPrice := bar.Close
	stopLoss := entryPrice + stop
	takeProfit := entryPrice - stop*s.GetRiskRatio()

	return types.Signal{
		Type:   types.OPEN,
		Action: types.SELL,
		Price:  entryPrice,
		SL:     stopLoss,
		TP:     takeProfit,
		Size:   calculatePositionSize(s, acc, entryPrice, stopLoss),
	}, nil
}

func stopDistance(s Strategy) (float64, error) {
	pip, err := PipSize(s.GetSymbol())
	if err != nil {
		return 0, err
	}
	return PipsToPrice(s.GetStopLossPips(), pip), nil
}

// calculatePositionSize sizes the position so that hitting the stop loses
// riskPercentage of the balance. A fixed balanceToRisk keeps every trade's risk
// identical regardless of account growth.
func calculatePositionSize(s Strategy, acc *account.Account, entryPrice, stopLoss float64) float64 {
	balanceToUse := s.GetBalanceToRisk()
	if balanceToUse == 0 {
		balanceToUse = acc.Balance
	}

	riskAmount := balanceToUse * (s.GetRiskPercentage() / 100)
	stopDistance := math.Abs(entryPrice - stopLoss)
	if stopDistance == 0 {
		return 0
	}
	size := riskAmount / stopDistance
	slog.Debug("Calculated position size", "size", size, "riskAmount", riskAmount, "entryPrice", entryPrice, "stopLoss", stopLoss, "stopDistance", stopDistance)

	return size
}
