package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTrades = []types.Trade{
	{EntryIndex: 0, ExitIndex: 3, EntryPrice: 100.5, ExitPrice: 102, PnL: 150, RR: 1.5},
	{EntryIndex: 4, ExitIndex: 6, EntryPrice: 102, ExitPrice: 101.25, PnL: -75.5, RR: 0.75},
	{EntryIndex: 7, ExitIndex: 7, EntryPrice: 99, ExitPrice: 99, PnL: 0},
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, sampleTrades))

	expected := "Entry Index,Exit Index,Entry Price,Exit Price,PNL,Outcome\n" +
		"0,3,100.5,102,150,win\n" +
		"4,6,102,101.25,-75.5,loss\n" +
		"7,7,99,99,0,loss\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteTradesCSV_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, nil))
	assert.Equal(t, "Entry Index,Exit Index,Entry Price,Exit Price,PNL,Outcome\n", buf.String())
}

func TestWriteEquityCSV(t *testing.T) {
	var buf bytes.Buffer
	points := []backtest.EquityPoint{{Time: 60, Equity: 10000, Drawdown: 0, Trades: 0}, {Time: 120, Equity: 9500, Drawdown: -5, Trades: 1}}

	require.NoError(t, WriteEquityCSV(&buf, points))
	assert.Equal(t, "Time,Equity,Drawdown,Trades\n60,10000,0,0\n120,9500,-5,1\n", buf.String())
}

func TestWriteJSON_UsesCamelCaseKeys(t *testing.T) {
	report := Report{
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stats:       backtest.CalculateStats(sampleTrades),
		Equity:      []backtest.EquityPoint{{Time: 1, Equity: 10150}},
		Trades:      sampleTrades[:1],
		Heatmap:     []types.HeatmapTag{{Tag: "Breakout", Count: 2, AvgWinRate: 70, DominantEmotion: types.Disciplined}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	stats := decoded["stats"].(map[string]any)
	assert.Equal(t, 33.33, stats["winRate"])
	assert.Equal(t, 74.5, stats["totalPnL"])
	assert.Equal(t, 0.75, stats["avgRR"])

	tag := decoded["heatmap"].([]any)[0].(map[string]any)
	assert.Equal(t, "Disciplined", tag["dominantEmotion"])
	assert.Equal(t, 70.0, tag["avgWinRate"])

	trade := decoded["trades"].([]any)[0].(map[string]any)
	assert.Equal(t, 3.0, trade["exitIndex"])
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteFiles(dir, Report{Trades: sampleTrades})
	require.NoError(t, err)
	require.Len(t, paths, 3)

	data, err := os.ReadFile(filepath.Join(dir, "trades.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "4,6,102,101.25,-75.5,loss")
}
