package recorder

import (
	"github.com/jwtly10/insightflow/internal/backtest"
	"github.com/jwtly10/insightflow/internal/types"
)

// Recorder keeps a history of computed analytics.
type Recorder interface {
	RecordStats(run *StatsRun) error
	RecordHeatmap(snap *HeatmapSnapshot) error
	Close() error
}

// StatsRun is one computation of headline stats, from the API or the CLI.
type StatsRun struct {
	RunID       string
	Source      string
	Trades      int
	Stats       backtest.Stats
	MaxDrawdown float64
}

// HeatmapSnapshot is one scheduled or on-demand heatmap refresh.
type HeatmapSnapshot struct {
	Strategies int
	Tags       []types.HeatmapTag
}
