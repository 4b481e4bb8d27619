package recorder

// NoopRecorder discards everything. Used when no sqlite path is configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordStats(*StatsRun) error          { return nil }
func (NoopRecorder) RecordHeatmap(*HeatmapSnapshot) error { return nil }
func (NoopRecorder) Close() error                         { return nil }
