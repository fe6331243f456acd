// Package logger provides adapters for the logging interface.
package logger

import (
	"context"
	"io"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Logger defines the logging interface used throughout the application.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// ZapAdapter adapts a zap logger to the application's logging interface.
type ZapAdapter struct {
	log   *zap.Logger
	files []io.Closer
}

// NewZapAdapter creates a new ZapAdapter wrapping the given logger.
// A nil logger discards everything.
func NewZapAdapter(log *zap.Logger) *ZapAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapAdapter{log: log}
}

// Info logs an info message.
func (a *ZapAdapter) Info(_ context.Context, msg string, fields map[string]any) {
	a.log.Info(msg, toFields(fields)...)
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(_ context.Context, msg string, fields map[string]any) {
	a.log.Debug(msg, toFields(fields)...)
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(_ context.Context, msg string, fields map[string]any) {
	a.log.Warn(msg, toFields(fields)...)
}

// Error logs an error message.
func (a *ZapAdapter) Error(_ context.Context, msg string, err error, fields map[string]any) {
	a.log.Error(msg, append(toFields(fields), zap.Error(err))...)
}

// Sync flushes buffered log entries.
func (a *ZapAdapter) Sync() error {
	return a.log.Sync()
}

// Close flushes buffered log entries and closes the log files.
// Sync errors are dropped; stderr cannot be synced on every platform.
func (a *ZapAdapter) Close() error {
	_ = a.log.Sync()
	var err error
	for _, f := range a.files {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	a.files = nil
	return err
}

// toFields converts fields to zap fields ordered by key.
func toFields(fields map[string]any) []zap.Field {
	keys := lo.Keys(fields)
	slices.Sort(keys)
	return lo.Map(keys, func(k string, _ int) zap.Field {
		return zap.Any(k, fields[k])
	})
}
