package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwtly10/insightflow/internal/types"
)

// SQLiteRecorder persists stats runs and heatmap snapshots to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stats_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			run_id       TEXT,
			source       TEXT,
			trades       INTEGER,
			win_rate     REAL,
			total_pnl    REAL,
			avg_rr       REAL,
			max_drawdown REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_ts ON stats_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS heatmap_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			strategies  INTEGER,
			tag_count   INTEGER,
			top_tag     TEXT,
			tags_json   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_heatmap_ts ON heatmap_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordStats(run *StatsRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO stats_runs
		(timestamp, run_id, source, trades, win_rate, total_pnl, avg_rr, max_drawdown)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), run.RunID, run.Source, run.Trades,
		run.Stats.WinRate, run.Stats.TotalPnL, run.Stats.AvgRR, run.MaxDrawdown,
	)
	return err
}

func (r *SQLiteRecorder) RecordHeatmap(snap *HeatmapSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags := snap.Tags
	if tags == nil {
		tags = []types.HeatmapTag{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal heatmap: %w", err)
	}

	var top string
	if len(tags) > 0 {
		top = tags[0].Tag
	}

	_, err = r.db.Exec(`INSERT INTO heatmap_snapshots
		(timestamp, strategies, tag_count, top_tag, tags_json)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), snap.Strategies, len(tags), top, string(data),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	slog.Info("closing sqlite recorder")
	return r.db.Close()
}
