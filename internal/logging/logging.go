package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger provides topic-based debug logging with minimal overhead when disabled
type Logger struct {
	topic string
}

var enabledTopics atomic.Pointer[map[string]bool]

func init() {
	// DEBUG_TOPICS=equity,heatmap,stats or DEBUG_TOPICS=all
	topics := ParseTopics(os.Getenv("DEBUG_TOPICS"))
	setTopics(topics)
	if len(topics) > 0 {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
}

// ParseTopics splits a comma separated topic list. "all" enables everything.
func ParseTopics(raw string) map[string]bool {
	topics := make(map[string]bool)
	for _, topic := range strings.Split(raw, ",") {
		topic = strings.TrimSpace(topic)
		switch topic {
		case "":
		case "all", "*":
			topics["*"] = true
		default:
			topics[topic] = true
		}
	}
	return topics
}

func setTopics(topics map[string]bool) {
	enabledTopics.Store(&topics)
}

// Setup installs the process-wide slog handler. Any enabled topic forces the
// level down to debug so topic output is not filtered twice.
func Setup(w io.Writer, level, format string, topics []string) {
	parsed := ParseTopics(strings.Join(topics, ","))
	setTopics(parsed)

	lvl := ParseLevel(level)
	if len(parsed) > 0 {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a new topic-specific logger
// Usage: var equityLog = logging.New("equity")
func New(topic string) *Logger {
	return &Logger{topic: topic}
}

// Enabled reports whether this topic is currently switched on.
// Useful for expensive computations: if log.Enabled() { ... }
func (l *Logger) Enabled() bool {
	topics := enabledTopics.Load()
	if topics == nil {
		return false
	}
	return (*topics)["*"] || (*topics)[l.topic]
}

func (l *Logger) Debug(msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	slog.Debug(msg, append([]any{"topic", l.topic}, args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	slog.Info(msg, append([]any{"topic", l.topic}, args...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	slog.Warn(msg, append([]any{"topic", l.topic}, args...)...)
}
