// Package logging provides the process-wide structured logger used by every
// ambient component: the CLI entry point, the browser-launch infrastructure,
// and the MCP tool transport. The core pipeline components accept a
// *slog.Logger explicitly rather than importing this package, so they stay
// testable without touching a global.
package logging

import (
	"context"
	"log/slog"
	"os"
)

var (
	disabled = false
	logger   = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Disable turns off all logging.
func Disable() {
	disabled = true
}

// Enable turns logging back on.
func Enable() {
	disabled = false
}

// SetLogger swaps the package-level logger, e.g. to capture output in a test.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Default returns the current package-level logger.
func Default() *slog.Logger {
	return logger
}

// Info logs an info message.
func Info(msg string, args ...any) {
	if !disabled {
		logger.Info(msg, args...)
	}
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	if !disabled {
		logger.Warn(msg, args...)
	}
}

// Error logs an error message.
func Error(msg string, args ...any) {
	if !disabled {
		logger.Error(msg, args...)
	}
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	if !disabled {
		logger.Debug(msg, args...)
	}
}

// Logger wraps a component-scoped *slog.Logger so call sites don't each
// have to check the global disable flag.
type Logger struct {
	slog *slog.Logger
}

// WithComponent returns a Logger tagged with a "component" attribute,
// mirroring the teacher's cdp-relay audit logger.
func WithComponent(name string) Logger {
	return Logger{slog: logger.With("component", name)}
}

// WithContext is kept for API symmetry with call sites that thread a
// context.Context through; it ignores ctx, matching the teacher's own
// context-agnostic Logger.
func WithContext(ctx context.Context) Logger {
	return Logger{slog: logger}
}

func (l Logger) Info(msg string, args ...any) {
	if !disabled {
		l.slog.Info(msg, args...)
	}
}

func (l Logger) Warn(msg string, args ...any) {
	if !disabled {
		l.slog.Warn(msg, args...)
	}
}

func (l Logger) Error(msg string, args ...any) {
	if !disabled {
		l.slog.Error(msg, args...)
	}
}

func (l Logger) Debug(msg string, args ...any) {
	if !disabled {
		l.slog.Debug(msg, args...)
	}
}
