// Package scheduler refreshes the strategy heatmap on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwtly10/insightflow/internal/heatmap"
	"github.com/jwtly10/insightflow/internal/recorder"
	"github.com/jwtly10/insightflow/internal/storage"
	"github.com/jwtly10/insightflow/internal/types"
)

// Snapshot is the heatmap computed from every stored strategy at one point
// in time.
type Snapshot struct {
	Tags        []types.HeatmapTag `json:"tags"`
	Strategies  int                `json:"strategies"`
	RefreshedAt time.Time          `json:"refreshedAt"`
}

// Scheduler manages the heatmap refresh job and keeps the latest snapshot.
type Scheduler struct {
	Cron       *cron.Cron
	Strategies storage.StrategyStore
	Recorder   recorder.Recorder
	Ctx        context.Context

	mu     sync.RWMutex
	latest *Snapshot
	now    func() time.Time
}

func NewScheduler(ctx context.Context, strategies storage.StrategyStore, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NoopRecorder{}
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Strategies: strategies,
		Recorder:   rec,
		Ctx:        ctx,
		now:        time.Now,
	}
}

// Register adds the heatmap refresh task. spec has a leading seconds field.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.heatmapTask); err != nil {
		return fmt.Errorf("register heatmap task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started")
}

// Stop stops the cron and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RefreshNow rebuilds the heatmap from the store, caches it and records it.
// A recorder failure is logged and does not fail the refresh.
func (s *Scheduler) RefreshNow(ctx context.Context) (*Snapshot, error) {
	strategies, err := s.Strategies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}

	snap := &Snapshot{
		Tags:        heatmap.Build(strategies),
		Strategies:  len(strategies),
		RefreshedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if err := s.Recorder.RecordHeatmap(&recorder.HeatmapSnapshot{
		Strategies: snap.Strategies,
		Tags:       snap.Tags,
	}); err != nil {
		slog.Error("record heatmap", "error", err)
	}
	return snap, nil
}

// Latest returns the most recent snapshot, or false before the first refresh.
func (s *Scheduler) Latest() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

func (s *Scheduler) heatmapTask() {
	snap, err := s.RefreshNow(s.Ctx)
	if err != nil {
		slog.Error("heatmap refresh", "error", err)
		return
	}
	slog.Info("heatmap refreshed", "strategies", snap.Strategies, "tags", len(snap.Tags))
}
