package oanda

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// https://developer.oanda.com/rest-live-v20/instrument-ep/

type Candlestick struct {
	Time     string          `json:"time"`
	Bid      CandleStickData `json:"bid"`
	Ask      CandleStickData `json:"ask"`
	Mid      CandleStickData `json:"mid"`
	Volume   int             `json:"volume"`
	Complete bool            `json:"complete"`
}

type CandleStickData struct {
	O PriceValue `json:"o"`
	H PriceValue `json:"h"`
	L PriceValue `json:"l"`
	C PriceValue `json:"c"`
}

// PriceValue is a decimal price as OANDA sends it, quoted.
type PriceValue string

func (p PriceValue) Float() (float64, error) {
	f, err := strconv.ParseFloat(string(p), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", string(p), err)
	}
	return f, nil
}

// OHLC returns the four prices in open, high, low, close order.
func (d CandleStickData) OHLC() ([4]float64, error) {
	var out [4]float64
	for i, p := range []PriceValue{d.O, d.H, d.L, d.C} {
		f, err := p.Float()
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}

type InstrumentName string

type CandlestickGranularity string

type CandlestickResponse struct {
	Candles     []Candlestick          `json:"candles"`
	Instrument  InstrumentName         `json:"instrument"`
	Granularity CandlestickGranularity `json:"granularity"`
}

type OandaService struct {
	AccountId string
	ApiKey    string
	ApiUrl    string

	client *http.Client
}

type CandleRequest struct {
	Instrument  InstrumentName         `json:"instrument"`
	Granularity CandlestickGranularity `json:"granularity,omitempty"` // Default S5
	Count       int                    `json:"count,omitempty"`       // Default 500, max 5000
	From        time.Time              `json:"from"`                  // RFC 3339
	To          time.Time              `json:"to"`                    // RFC 3339
}
