package recorder

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/types"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "insightflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RecordStats(t *testing.T) {
	r := newTestRecorder(t)

	err := r.RecordStats(&StatsRun{
		RunID:       "run-1",
		Source:      "cli",
		Trades:      2,
		Stats:       backtest.Stats{WinRate: 50, TotalPnL: 50, AvgRR: 1.5},
		MaxDrawdown: -0.5,
	})
	require.NoError(t, err)

	var (
		runID, source     string
		trades            int
		winRate, pnl, avg float64
		dd                float64
	)
	row := r.db.QueryRow(`SELECT run_id, source, trades, win_rate, total_pnl, avg_rr, max_drawdown FROM stats_runs`)
	require.NoError(t, row.Scan(&runID, &source, &trades, &winRate, &pnl, &avg, &dd))

	assert.Equal(t, "run-1", runID)
	assert.Equal(t, "cli", source)
	assert.Equal(t, 2, trades)
	assert.Equal(t, 50.0, winRate)
	assert.Equal(t, 50.0, pnl)
	assert.Equal(t, 1.5, avg)
	assert.Equal(t, -0.5, dd)
}

func TestSQLiteRecorder_RecordHeatmap(t *testing.T) {
	r := newTestRecorder(t)

	tags := []types.HeatmapTag{
		{Tag: "Breakout", Count: 2, AvgWinRate: 70, DominantEmotion: types.Disciplined},
		{Tag: "Scalp", Count: 1, AvgWinRate: 40, DominantEmotion: types.Fearful},
	}
	require.NoError(t, r.RecordHeatmap(&HeatmapSnapshot{Strategies: 3, Tags: tags}))
	require.NoError(t, r.RecordHeatmap(&HeatmapSnapshot{}))

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM heatmap_snapshots`).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		strategies, tagCount int
		top, raw             string
	)
	row := r.db.QueryRow(`SELECT strategies, tag_count, top_tag, tags_json FROM heatmap_snapshots ORDER BY id LIMIT 1`)
	require.NoError(t, row.Scan(&strategies, &tagCount, &top, &raw))
	assert.Equal(t, 3, strategies)
	assert.Equal(t, 2, tagCount)
	assert.Equal(t, "Breakout", top)

	var decoded []types.HeatmapTag
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, tags, decoded)

	row = r.db.QueryRow(`SELECT tag_count, tags_json FROM heatmap_snapshots ORDER BY id DESC LIMIT 1`)
	require.NoError(t, row.Scan(&tagCount, &raw))
	assert.Equal(t, 0, tagCount)
	assert.Equal(t, "[]", raw)
}

func TestSQLiteRecorder_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordStats(&StatsRun{RunID: "a"}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r.Close()

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM stats_runs`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NoError(t, r.RecordStats(&StatsRun{}))
	assert.NoError(t, r.RecordHeatmap(&HeatmapSnapshot{}))
	assert.NoError(t, r.Close())
}
