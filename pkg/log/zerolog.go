package log

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ZerologProvider is a LoggerProvider backed by rs/zerolog.
// It produces structured JSON logs and honors a shared minimum level.
type ZerologProvider struct {
	mu    sync.RWMutex
	root  zerolog.Logger
	level Level
}

// NewZerologProvider creates a provider writing JSON to stderr at the given level.
func NewZerologProvider(level Level) *ZerologProvider {
	root := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return &ZerologProvider{
		root:  root,
		level: level,
	}
}

// GetLogger returns the default logger instance.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &zerologLogger{logger: p.root, provider: p}
}

// GetLoggerWithName returns a logger with a component identifier pre-populated.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	child := p.root.With().Str(ComponentKey, name).Logger()
	return &zerologLogger{logger: child, provider: p}
}

// SetLevel sets the minimum log level for all loggers created by this provider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *ZerologProvider) enabled(level Level) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level <= level
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger   zerolog.Logger
	provider *ZerologProvider
}

func (z *zerologLogger) Debug(msg string, fields ...any) {
	if z.provider.enabled(LevelDebug) {
		z.emit(z.logger.Debug(), msg, fields)
	}
}

func (z *zerologLogger) Info(msg string, fields ...any) {
	if z.provider.enabled(LevelInfo) {
		z.emit(z.logger.Info(), msg, fields)
	}
}

func (z *zerologLogger) Warn(msg string, fields ...any) {
	if z.provider.enabled(LevelWarn) {
		z.emit(z.logger.Warn(), msg, fields)
	}
}

func (z *zerologLogger) Error(msg string, fields ...any) {
	if z.provider.enabled(LevelError) {
		z.emit(z.logger.Error(), msg, fields)
	}
}

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{logger: ctx.Logger(), provider: z.provider}
}

func (z *zerologLogger) Enabled(ctx context.Context, level Level) bool {
	return z.provider.enabled(level)
}

func (z *zerologLogger) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		value := fields[i+1]
		// Error values marshal through their zerolog object methods when available.
		if err, isErr := value.(error); isErr {
			if obj, isObj := value.(zerolog.LogObjectMarshaler); isObj {
				event = event.Object(key, obj)
			} else {
				event = event.Str(key, err.Error())
			}
			continue
		}
		event = event.Interface(key, value)
	}
	event.Msg(msg)
}
