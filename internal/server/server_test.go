package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwtly10/insightflow/internal/auth"
	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/recorder"
	"github.com/jwtly10/insightflow/internal/scheduler"
	"github.com/jwtly10/insightflow/internal/storage/memory"
	"github.com/jwtly10/insightflow/internal/types"
)

type captureRecorder struct {
	recorder.NoopRecorder
	runs []*recorder.StatsRun
}

func (c *captureRecorder) RecordStats(run *recorder.StatsRun) error {
	c.runs = append(c.runs, run)
	return nil
}

func newTestServer(t *testing.T) (*Server, *captureRecorder) {
	t.Helper()
	strategies := memory.NewStrategyStore()
	rec := &captureRecorder{}
	srv := New(Deps{
		Strategies: strategies,
		Trades:     memory.NewTradeStore(),
		Heatmaps:   scheduler.NewScheduler(context.Background(), strategies, nil),
		Auth:       auth.NewService(auth.NewMemoryUserRepository(), bcrypt.MinCost),
		Recorder:   rec,
		Metrics:    NewMetrics("insightflow"),
	})
	return srv, rec
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func trade(entry, exit int, pnl, rr float64) types.Trade {
	return types.Trade{EntryIndex: entry, ExitIndex: exit, EntryPrice: 100, ExitPrice: 101, PnL: pnl, RR: rr}
}

func flatCandles(n int) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		candles[i] = types.Candle{Time: int64(i + 1), Open: 100, High: 100, Low: 100, Close: 100}
	}
	return candles
}

func TestStats(t *testing.T) {
	srv, rec := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/stats", tradesRequest{
		Trades: []types.Trade{trade(0, 1, 100, 2), trade(1, 2, -50, 1)},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	stats := decodeBody[backtest.Stats](t, rr)
	assert.Equal(t, backtest.Stats{WinRate: 50, TotalPnL: 50, AvgRR: 1.5}, stats)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "api", rec.runs[0].Source)
	assert.Equal(t, 2, rec.runs[0].Trades)
}

func TestStats_EmptyTrades(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/stats", `{"trades": []}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"winRate":0,"totalPnL":0,"avgRR":0}`, rr.Body.String())
}

func TestStats_ValidationError(t *testing.T) {
	srv, rec := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/stats", tradesRequest{
		Trades: []types.Trade{trade(3, 1, 10, 1)},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body := decodeBody[errorResponse](t, rr)
	assert.Equal(t, types.KindValidation, body.Kind)
	assert.Equal(t, "trade", body.Record)
	assert.Equal(t, "exitIndex", body.Field)
	require.NotNil(t, body.Index)
	assert.Equal(t, 0, *body.Index)
	assert.Empty(t, rec.runs)
}

func TestStats_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/stats", `{"trades": [`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "bad_request", decodeBody[errorResponse](t, rr).Kind)
}

func TestEquity_SingleCandleScenario(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/equity", map[string]any{
		"candles": flatCandles(1),
		"trades":  []types.Trade{trade(0, 0, 500, 1)},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	points := decodeBody[[]backtest.EquityPoint](t, rr)
	assert.Equal(t, []backtest.EquityPoint{{Time: 1, Equity: 10500, Drawdown: 0, Trades: 1}}, points)
}

func TestEquity_EmptyCandlesIsEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/equity", `{"candles": [], "trades": []}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestEquity_RejectsUnknownModeAndBadCandles(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/equity", `{"candles": [], "trades": [], "mode": "fifo"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	candles := flatCandles(2)
	candles[1].Time = candles[0].Time
	rr = doJSON(t, srv, http.MethodPost, "/api/equity", map[string]any{"candles": candles})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody[errorResponse](t, rr)
	assert.Equal(t, "candle", body.Record)
	assert.Equal(t, "time", body.Field)
}

func TestAnalyze_RealizedMode(t *testing.T) {
	srv, rec := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/analyze", map[string]any{
		"candles":        flatCandles(3),
		"trades":         []types.Trade{trade(0, 2, 100, 2)},
		"initialBalance": 1000,
		"mode":           "realized",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	analysis := decodeBody[backtest.Analysis](t, rr)
	assert.Equal(t, backtest.Stats{WinRate: 100, TotalPnL: 100, AvgRR: 2}, analysis.Stats)
	require.Len(t, analysis.Equity, 3)
	assert.Equal(t, 1000.0, analysis.Equity[0].Equity)
	assert.Equal(t, 1, analysis.Equity[0].Trades)
	assert.Equal(t, 1000.0, analysis.Equity[1].Equity)
	assert.Equal(t, 0, analysis.Equity[1].Trades)
	assert.Equal(t, 1100.0, analysis.Equity[2].Equity)
	assert.Equal(t, 0.0, analysis.MaxDrawdown)

	require.Len(t, rec.runs, 1)
}

func TestHeatmap_Scenario(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/heatmap", strategiesRequest{Strategies: []types.Strategy{
		{Tags: []string{"Breakout"}, WinRate: 0.6, Emotion: types.Disciplined},
		{Tags: []string{"Breakout"}, WinRate: 0.8, Emotion: types.Disciplined},
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `[{"tag":"Breakout","count":2,"avgWinRate":70,"dominantEmotion":"Disciplined"}]`, rr.Body.String())

	rr = doJSON(t, srv, http.MethodPost, "/api/heatmap", strategiesRequest{Strategies: []types.Strategy{
		{Tags: []string{"x"}, WinRate: 1.5, Emotion: types.Neutral},
	}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStrategiesAndLatestHeatmap(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/strategies", types.Strategy{
		Name: "ORB", Tags: []string{"Breakout"}, WinRate: 0.5, Emotion: types.Aggressive,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBody[types.Strategy](t, rr)
	assert.NotEmpty(t, created.ID)

	rr = doJSON(t, srv, http.MethodGet, "/api/heatmap", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	snap := decodeBody[scheduler.Snapshot](t, rr)
	assert.Equal(t, 1, snap.Strategies)
	assert.Equal(t, []types.HeatmapTag{{Tag: "Breakout", Count: 1, AvgWinRate: 50, DominantEmotion: types.Aggressive}}, snap.Tags)

	rr = doJSON(t, srv, http.MethodPost, "/api/strategies", types.Strategy{
		Tags: []string{"breakout"}, WinRate: 0.7, Emotion: types.Aggressive,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	// Cached until refreshed.
	snap = decodeBody[scheduler.Snapshot](t, doJSON(t, srv, http.MethodGet, "/api/heatmap", nil))
	assert.Equal(t, 1, snap.Strategies)

	snap = decodeBody[scheduler.Snapshot](t, doJSON(t, srv, http.MethodGet, "/api/heatmap?refresh=1", nil))
	assert.Equal(t, 2, snap.Strategies)
	assert.Equal(t, 60.0, snap.Tags[0].AvgWinRate)

	rr = doJSON(t, srv, http.MethodPost, "/api/strategies", created)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRunsAndRunStats(t *testing.T) {
	srv, rec := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/runs", runRequest{
		ID:     "run-1",
		Trades: []types.Trade{trade(0, 1, 100, 2), trade(1, 2, -50, 1)},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, srv, http.MethodGet, "/api/runs/run-1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, backtest.Stats{WinRate: 50, TotalPnL: 50, AvgRR: 1.5}, decodeBody[backtest.Stats](t, rr))
	require.Len(t, rec.runs, 1)
	assert.Equal(t, "run-1", rec.runs[0].RunID)

	rr = doJSON(t, srv, http.MethodPost, "/api/runs", runRequest{ID: "run-1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/runs/missing/stats", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeBody[errorResponse](t, rr).Kind)

	rr = doJSON(t, srv, http.MethodPost, "/api/runs", runRequest{})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeBody[map[string]any](t, rr)
	assert.NotEmpty(t, created["id"])
}

func TestRunsAcceptTradesWithoutIDs(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"id":"r1","trades":[
		{"entryIndex":0,"exitIndex":1,"entryPrice":100,"exitPrice":101,"pnl":100,"rr":2},
		{"entryIndex":1,"exitIndex":2,"entryPrice":101,"exitPrice":100,"pnl":-50,"rr":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, srv, http.MethodGet, "/api/runs/r1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, backtest.Stats{WinRate: 50, TotalPnL: 50, AvgRR: 1.5}, decodeBody[backtest.Stats](t, rr))
}

func TestTradesCSV(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/export/trades.csv", tradesRequest{
		Trades: []types.Trade{{EntryIndex: 0, ExitIndex: 3, EntryPrice: 1.2345, ExitPrice: 1.25, PnL: 155, RR: 2}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Entry Index,Exit Index,Entry Price,Exit Price,PNL,Outcome\n0,3,1.2345,1.25,155,win\n", rr.Body.String())
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	creds := credentialsRequest{Email: "trader@example.com", Password: "longenough"}

	rr := doJSON(t, srv, http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "$2a$")

	rr = doJSON(t, srv, http.MethodPost, "/api/auth/register", creds)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/auth/login", creds)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/auth/login", credentialsRequest{Email: creds.Email, Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/auth/register", credentialsRequest{Email: "x@y.z", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	doJSON(t, srv, http.MethodPost, "/api/stats", `{"trades": []}`)
	doJSON(t, srv, http.MethodPost, "/api/stats", `{"trades": [{"entryIndex": 2, "exitIndex": 1}]}`)

	rr = doJSON(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	metrics := string(body)

	assert.Contains(t, metrics, `insightflow_http_requests_total{code="200",route="POST /api/stats"} 1`)
	assert.Contains(t, metrics, `insightflow_http_requests_total{code="400",route="POST /api/stats"} 1`)
	assert.Contains(t, metrics, `insightflow_http_validation_failures_total{record="trade"} 1`)
	assert.Contains(t, metrics, `insightflow_analytics_computations_total{kind="stats"} 1`)
	assert.True(t, strings.Contains(metrics, "go_goroutines"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestEquity_ServerDefaultsApplyWhenRequestOmitsThem(t *testing.T) {
	strategies := memory.NewStrategyStore()
	srv := New(Deps{
		Strategies: strategies,
		Trades:     memory.NewTradeStore(),
		Auth:       auth.NewService(auth.NewMemoryUserRepository(), bcrypt.MinCost),
		Equity:     backtest.EquityOptions{InitialBalance: 500, Mode: backtest.ModeRealized},
	})

	body := map[string]any{
		"candles": flatCandles(3),
		"trades":  []types.Trade{trade(0, 2, 50, 1)},
	}
	points := decodeBody[[]backtest.EquityPoint](t, doJSON(t, srv, http.MethodPost, "/api/equity", body))
	require.Len(t, points, 3)
	assert.Equal(t, []float64{500, 500, 550}, []float64{points[0].Equity, points[1].Equity, points[2].Equity})

	body["mode"] = "first-match"
	body["initialBalance"] = 1000
	points = decodeBody[[]backtest.EquityPoint](t, doJSON(t, srv, http.MethodPost, "/api/equity", body))
	assert.Equal(t, []float64{1050, 1050, 1100}, []float64{points[0].Equity, points[1].Equity, points[2].Equity})

	rr := doJSON(t, srv, http.MethodGet, "/api/heatmap", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestEquity_ExplicitBalanceMustBePositive(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, balance := range []float64{0, -100} {
		body := map[string]any{
			"candles":        flatCandles(2),
			"trades":         []types.Trade{},
			"initialBalance": balance,
		}
		rr := doJSON(t, srv, http.MethodPost, "/api/equity", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "balance %v", balance)
	}
}
