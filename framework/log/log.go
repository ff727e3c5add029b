// Package log provides the application logger: a named logrus logger whose
// output goes through attached sinks, and a process-wide registry that holds
// the one logger the bootstrap installs.
package log

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultName is the channel name used when none is configured.
const DefaultName = "foundation"

// Sink receives formatted log records. Any logrus hook is a sink.
type Sink interface {
	logrus.Hook
}

// Logger is a named logger. It writes nothing by itself; every record is
// handed to the attached sinks.
type Logger struct {
	*logrus.Logger

	name  string
	mu    sync.RWMutex
	sinks []Sink
}

// New creates a logger with no sinks. Every record it emits carries a
// "channel" field set to name.
func New(name string) *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.TraceLevel)
	l.AddHook(channelHook(name))
	return &Logger{Logger: l, name: name}
}

// Name returns the channel name.
func (l *Logger) Name() string { return l.name }

// PushSink attaches a sink.
func (l *Logger) PushSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
	l.AddHook(s)
}

// Sinks returns the attached sinks in the order they were pushed.
func (l *Logger) Sinks() []Sink {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Sink(nil), l.sinks...)
}

// channelHook tags records with the logger name. It is added before any
// sink so sinks see the field.
type channelHook string

func (h channelHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h channelHook) Fire(e *logrus.Entry) error {
	e.Data["channel"] = string(h)
	return nil
}

// ── Null sink ────────────────────────────────────────────────────────────────

// NullSink swallows every record.
type NullSink struct{}

func (NullSink) Levels() []logrus.Level   { return logrus.AllLevels }
func (NullSink) Fire(*logrus.Entry) error { return nil }

// ── Levels ───────────────────────────────────────────────────────────────────

// ParseLevel converts a configured level into a logrus level. It accepts a
// logrus.Level, a level name such as "warning" or "error", or an integer
// (logrus numbering). Anything else yields fallback.
func ParseLevel(v any, fallback logrus.Level) logrus.Level {
	switch t := v.(type) {
	case logrus.Level:
		return t
	case int:
		return levelFromInt(t, fallback)
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return levelFromInt(n, fallback)
		}
		if lvl, err := logrus.ParseLevel(s); err == nil {
			return lvl
		}
		switch strings.ToLower(s) {
		case "notice":
			return logrus.InfoLevel
		case "critical", "alert", "emergency":
			return logrus.ErrorLevel
		}
	}
	return fallback
}

func levelFromInt(n int, fallback logrus.Level) logrus.Level {
	if n < int(logrus.PanicLevel) || n > int(logrus.TraceLevel) {
		return fallback
	}
	return logrus.Level(n)
}

// levelsFrom returns every level at least as severe as min.
func levelsFrom(min logrus.Level) []logrus.Level {
	out := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, lvl := range logrus.AllLevels {
		if lvl <= min {
			out = append(out, lvl)
		}
	}
	return out
}
