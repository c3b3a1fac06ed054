// Package logging provides structured logging for the ingestion service,
// wrapping go.uber.org/zap behind the level-keyed Printf-style API the
// rest of the codebase expects.
package logging

import (
	"sync"

	"go.uber.org/zap"

	"github.com/seguro-db/seguro/internal/interfaces"
)

// Logger wraps a zap.SugaredLogger with level-named methods.
type Logger struct {
	sugar *zap.SugaredLogger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// Config holds logging configuration.
type Config struct {
	// Development enables human-readable console output and DPanic-level
	// asserts; production uses JSON output.
	Development bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{Development: false}
}

// NewLogger creates a new Logger. A zap construction failure (which can
// only happen from a misconfigured encoder, never the defaults used here)
// falls back to zap.NewNop() so callers never receive a nil logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	var base *zap.Logger
	var err error
	if config.Development {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{sugar: base.Sugar()}
}

// Default returns the process-wide default logger, creating it if needed.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// fromZap wraps an already-constructed zap.Logger, used by tests to inject
// an observer core.
func fromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

// With returns a child Logger that attaches the given key/value pairs to
// every subsequent log line — used to scope a logger to one client
// (client_id, ship point), mirroring the original's per-connection
// c_log_out prefix.
func (l *Logger) With(keysAndValues ...any) interfaces.Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Debugw logs one structured debug-level line with explicit key/value
// pairs, used for the per-client trace-scope enter/exit pairs around the
// hottest state-transition points (mirroring the original's scope_enter).
func (l *Logger) Debugw(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }

func (l *Logger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

var _ interfaces.Logger = (*Logger)(nil)

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error { return l.sugar.Sync() }

// Global convenience functions operating on Default().

func Debugf(format string, args ...any) { Default().Debugf(format, args...) }
func Infof(format string, args ...any)  { Default().Infof(format, args...) }
func Warnf(format string, args ...any)  { Default().Warnf(format, args...) }
func Errorf(format string, args ...any) { Default().Errorf(format, args...) }
