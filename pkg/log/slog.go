package log

import (
	"context"
	"io"
	"log/slog"
)

// SlogProvider is a LoggerProvider backed by the standard library's log/slog.
// Records are emitted as JSON through a StacktraceHandler, so error
// attributes logged with ErrAttrKey carry their cockroachdb/errors
// stacktrace.
type SlogProvider struct {
	level *slog.LevelVar
	root  *slog.Logger
}

// NewSlogProvider creates a provider writing JSON to w at the given level.
func NewSlogProvider(w io.Writer, level Level) *SlogProvider {
	lv := &slog.LevelVar{}
	lv.Set(slog.Level(level))
	handler := NewStacktraceHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv}))
	return &SlogProvider{
		level: lv,
		root:  slog.New(handler),
	}
}

// GetLogger returns the default logger instance.
func (p *SlogProvider) GetLogger() Logger {
	return &slogLogger{logger: p.root}
}

// GetLoggerWithName returns a logger with a component identifier pre-populated.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: p.root.With(ComponentKey, name)}
}

// SetLevel sets the minimum log level for all loggers created by this provider.
func (p *SlogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
}

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.logger.Debug(msg, fields...) }

func (l *slogLogger) Info(msg string, fields ...any) { l.logger.Info(msg, fields...) }

func (l *slogLogger) Warn(msg string, fields ...any) { l.logger.Warn(msg, fields...) }

func (l *slogLogger) Error(msg string, fields ...any) { l.logger.Error(msg, fields...) }

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(fields...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.logger.Enabled(ctx, slog.Level(level))
}
