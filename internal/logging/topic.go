package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger provides topic-based debug logging with minimal overhead when disabled.
// Topics are switched on with DEBUG_TOPICS=binance,cache or DEBUG_TOPICS=all.
type Logger struct {
	topic   string
	enabled bool
	out     *slog.Logger
}

var enabledTopics = make(map[string]bool)

func init() {
	enabledTopics = parseTopics(os.Getenv("DEBUG_TOPICS"))
}

func parseTopics(raw string) map[string]bool {
	topics := make(map[string]bool)
	if raw == "" {
		return topics
	}

	// Special case: "all" enables everything
	if raw == "all" {
		topics["*"] = true
		return topics
	}

	for _, topic := range strings.Split(raw, ",") {
		topic = strings.TrimSpace(topic)
		if topic != "" {
			topics[topic] = true
		}
	}
	return topics
}

// AnyTopicEnabled reports whether DEBUG_TOPICS switched on at least one topic.
func AnyTopicEnabled() bool {
	return len(enabledTopics) > 0
}

// New creates a new topic-specific logger writing through slog's default logger.
// Usage: var binanceLog = logging.New("binance")
func New(topic string) *Logger {
	enabled := enabledTopics["*"] || enabledTopics[topic]
	return &Logger{
		topic:   topic,
		enabled: enabled,
	}
}

// With returns a copy of the logger that writes to out instead of the default.
func (l *Logger) With(out *slog.Logger) *Logger {
	cp := *l
	cp.out = out
	return &cp
}

func (l *Logger) sink() *slog.Logger {
	if l.out != nil {
		return l.out
	}
	return slog.Default()
}

// Debug logs a debug message if this topic is enabled
// Fast path: returns immediately if disabled (single bool check)
func (l *Logger) Debug(msg string, args ...any) {
	if !l.enabled {
		return
	}
	l.sink().Debug(msg, append([]any{"topic", l.topic}, args...)...)
}

// Info logs an info message if this topic is enabled
func (l *Logger) Info(msg string, args ...any) {
	if !l.enabled {
		return
	}
	l.sink().Info(msg, append([]any{"topic", l.topic}, args...)...)
}

// Warn logs a warning message if this topic is enabled
func (l *Logger) Warn(msg string, args ...any) {
	if !l.enabled {
		return
	}
	l.sink().Warn(msg, append([]any{"topic", l.topic}, args...)...)
}

// Enabled returns true if this logger is enabled
// Useful for expensive computations: if log.Enabled() { ... }
func (l *Logger) Enabled() bool {
	return l.enabled
}
