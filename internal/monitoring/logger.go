package monitoring

import (
	"io"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// Logger returns the package-level structured logger. It follows
// slog.Default until SetLogger is called.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetLogger replaces the package logger. Passing nil installs a logger that
// discards everything.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Store(l)
}
