package videomaker

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while render threads are logging.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for videomaker and all its sub-packages.
// By default, videomaker produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the default
// silent behavior. Components constructed with an explicit WithLogger
// option keep using that logger.
//
// Log levels used by videomaker:
//   - [slog.LevelDebug]: per-frame diagnostics (texture swaps, draw passes)
//   - [slog.LevelInfo]: lifecycle events (context created, thread exited, muxer started)
//   - [slog.LevelWarn]: present faults, late shared-context imports, swallowed teardown errors
//   - [slog.LevelError]: fatal render thread failures
//
// Example:
//
//	videomaker.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by videomaker.
// Sub-packages call this to share the same logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
