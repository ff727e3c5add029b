package log

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrNoLoggerConfigured is returned when the registry is asked for a logger
// before one has been installed.
var ErrNoLoggerConfigured = errors.New("log: no logger configured")

// Registry holds at most one logger. It starts empty, becomes initialized on
// the first Set or InitOnce, and only returns to empty through Reset.
type Registry struct {
	mu     sync.RWMutex
	logger *Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Has reports whether a logger is installed.
func (r *Registry) Has() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger != nil
}

// Set installs l, replacing any current logger.
func (r *Registry) Set(l *Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

// Logger returns the installed logger.
func (r *Registry) Logger() (*Logger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.logger == nil {
		return nil, ErrNoLoggerConfigured
	}
	return r.logger, nil
}

// InitOnce installs the logger returned by build unless one is already
// installed. build does not run in that case. The check and the install
// happen under one lock. It returns the installed logger and whether build
// ran.
func (r *Registry) InitOnce(build func() *Logger) (*Logger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logger != nil {
		return r.logger, false
	}
	r.logger = build()
	return r.logger, true
}

// Reset empties the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = nil
}

// ── Process-wide registry ────────────────────────────────────────────────────

var std = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return std }

// HasLogger reports whether the process-wide logger is installed.
func HasLogger() bool { return std.Has() }

// SetLogger installs l as the process-wide logger.
func SetLogger(l *Logger) { std.Set(l) }

// Current returns the process-wide logger.
func Current() (*Logger, error) { return std.Logger() }

// Reset empties the process-wide registry. Tests use it to isolate
// application instances.
func Reset() { std.Reset() }
