package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_Creation(t *testing.T) {
	setTopics(map[string]bool{"test": true})

	assert.True(t, New("test").Enabled(), "Logger for enabled topic should be enabled")
	assert.False(t, New("other").Enabled(), "Logger for disabled topic should be disabled")
}

func TestLogger_AllTopics(t *testing.T) {
	setTopics(ParseTopics("all"))

	assert.True(t, New("anything").Enabled(), "All topics should be enabled with wildcard")
	assert.True(t, New("whatever").Enabled(), "All topics should be enabled with wildcard")
}

func TestLogger_NoTopics(t *testing.T) {
	setTopics(ParseTopics(""))

	assert.False(t, New("anything").Enabled(), "Logger should be disabled when no topics enabled")
}

func TestLogger_TopicsChangeAfterCreation(t *testing.T) {
	setTopics(map[string]bool{})
	log := New("equity")
	assert.False(t, log.Enabled())

	setTopics(ParseTopics(" equity , heatmap"))
	assert.True(t, log.Enabled(), "loggers created at package init must follow later Setup calls")
}

func TestSetup_JSONHandlerWritesTopic(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Setup(&buf, "info", "json", []string{"stats"})

	New("stats").Debug("computed", "trades", 3)
	New("equity").Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, `"topic":"stats"`)
	assert.Contains(t, out, `"trades":3`)
	assert.NotContains(t, out, "hidden")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func BenchmarkLogger_Disabled(b *testing.B) {
	setTopics(map[string]bool{})
	log := New("benchmark")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Debug("test message", "key", "value", "number", 42)
	}
}
