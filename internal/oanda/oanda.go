package oanda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jwtly10/insightflow/internal/types"
)

const (
	DefaultBaseUrl       = "https://api-fxpractice.oanda.com"
	MaxCandlesPerRequest = 4000 // Limit is 5000 but we maintain a buffer

	M1  CandlestickGranularity = "M1"
	M5  CandlestickGranularity = "M5"
	M15 CandlestickGranularity = "M15"
	M30 CandlestickGranularity = "M30"
	H1  CandlestickGranularity = "H1"
	H6  CandlestickGranularity = "H6"
	D   CandlestickGranularity = "D"
	W   CandlestickGranularity = "W"
	M   CandlestickGranularity = "M"

	GBPUSD InstrumentName = "GBP_USD"
	EURUSD InstrumentName = "EUR_USD"
	NAS100 InstrumentName = "NAS100_USD"
)

var granularityToDuration = map[CandlestickGranularity]time.Duration{
	M1:  1 * time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	M30: 30 * time.Minute,
	H1:  1 * time.Hour,
	H6:  6 * time.Hour,
	D:   24 * time.Hour,
	W:   7 * 24 * time.Hour,
	M:   30 * 24 * time.Hour, // Approx
}

func (g CandlestickGranularity) ToDuration() (time.Duration, error) {
	duration, ok := granularityToDuration[g]
	if !ok {
		return 0, fmt.Errorf("invalid granularity: %s", g)
	}
	return duration, nil
}

func (g CandlestickGranularity) String() string {
	return string(g)
}

// NewOandaService builds a client. A nil httpClient falls back to http.DefaultClient.
func NewOandaService(accountId, apiKey, apiUrl string, httpClient *http.Client) *OandaService {
	if apiUrl == "" {
		apiUrl = DefaultBaseUrl
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OandaService{
		AccountId: accountId,
		ApiKey:    apiKey,
		ApiUrl:    apiUrl,
		client:    httpClient,
	}
}

// FetchCandles fetches every candle between req.From and req.To in batches of
// MaxCandlesPerRequest. Incomplete candles are dropped so the series only holds
// closed bars.
//
// Note: the result is not capped, so a wide range on a small granularity can
// use a lot of memory.
func (s *OandaService) FetchCandles(ctx context.Context, req CandleRequest) ([]types.Candle, error) {
	slog.Info("Initiating batched Oanda fetch", "instrument", req.Instrument, "from", req.From, "to", req.To, "period", req.Granularity.String())
	period, err := req.Granularity.ToDuration()
	if err != nil {
		return nil, err
	}

	if now := time.Now(); req.To.After(now) {
		req.To = now
		slog.Warn("Adjusted 'To' time to current time as it was in the future", "newTo", req.To)
	}

	var all []types.Candle
	currentFrom := req.From

	for currentFrom.Before(req.To) {
		batchTo := currentFrom.Add(period * time.Duration(MaxCandlesPerRequest))
		if batchTo.After(req.To) {
			batchTo = req.To
		}

		batch, err := s.fetchHistoricCandles(ctx, CandleRequest{
			Instrument:  req.Instrument,
			Granularity: req.Granularity,
			From:        currentFrom,
			To:          batchTo,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch candles between %s and %s: %w", currentFrom, batchTo, err)
		}

		slog.Info("Found candles in latest fetch", "count", len(batch.Candles), "from", currentFrom, "to", batchTo)
		if len(batch.Candles) == 0 {
			break
		}

		converted, err := toCandles(batch.Candles)
		if err != nil {
			return nil, fmt.Errorf("failed to convert candles: %w", err)
		}
		if len(converted) == 0 {
			break
		}
		all = append(all, converted...)

		currentFrom = time.Unix(converted[len(converted)-1].Time, 0).Add(period)
	}

	slog.Info("Completed fetching all oanda candles", "total", len(all))
	return all, nil
}

func toCandles(raw []Candlestick) ([]types.Candle, error) {
	out := make([]types.Candle, 0, len(raw))
	for _, c := range raw {
		if !c.Complete {
			continue
		}
		ts, err := time.Parse(time.RFC3339, c.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle time %s: %w", c.Time, err)
		}

		prices, err := c.Mid.OHLC()
		if err != nil {
			return nil, fmt.Errorf("failed to parse mid prices at %s: %w", c.Time, err)
		}

		out = append(out, types.Candle{
			Time:   ts.Unix(),
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
			Volume: float64(c.Volume),
		})
	}
	return out, nil
}

func (s *OandaService) fetchHistoricCandles(ctx context.Context, req CandleRequest) (*CandlestickResponse, error) {
	endpoint := s.ApiUrl + "/v3/accounts/" + s.AccountId + "/instruments/" + string(req.Instrument) + "/candles"

	params := url.Values{}
	if req.Granularity != "" {
		params.Add("granularity", string(req.Granularity))
	}
	if req.Count != 0 {
		params.Add("count", strconv.Itoa(req.Count))
	}
	params.Add("price", "M")
	params.Add("from", strconv.FormatInt(req.From.Unix(), 10))
	params.Add("to", strconv.FormatInt(req.To.Unix(), 10))
	params.Add("includeFirst", "false")

	fullURL := endpoint + "?" + params.Encode()
	slog.Debug("Fetching historic candles", "url", fullURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.ApiKey)
	httpReq.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch candles: status code %d, could not read error body: %w", resp.StatusCode, err)
		}
		slog.Error("Failed to fetch candles: API returned an error status", "statusCode", resp.StatusCode, "rawResponse", string(body))
		return nil, fmt.Errorf("failed to fetch candles: status code %d, API Response: %s", resp.StatusCode, body)
	}

	var candleResp CandlestickResponse
	if err := json.NewDecoder(resp.Body).Decode(&candleResp); err != nil {
		return nil, fmt.Errorf("failed to decode candle response: %w", err)
	}

	return &candleResp, nil
}
