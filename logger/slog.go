package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/phsym/console-slog"
)

// slogLogger adapts log/slog to the Logger interface.
type slogLogger struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlog returns a slog-backed Logger writing to stdout. With ENV set to
// "development" records go through a colorized console handler with source
// locations; otherwise they are emitted as JSON with a "ts" timestamp key.
func NewSlog(level Level, addSource bool) Logger {
	lv := &slog.LevelVar{}
	lv.Set(toSlogLevel(level))

	return &slogLogger{
		logger: slog.New(newHandler(os.Stdout, lv, addSource)),
		level:  lv,
	}
}

func newHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	if os.Getenv("ENV") == "development" {
		return console.NewHandler(w, &console.HandlerOptions{
			AddSource: true,
			Level:     level,
		})
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: addSource,
		Level:     level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}

			return a
		},
	})
}

func (l *slogLogger) Debug(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *slogLogger) Info(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *slogLogger) Warn(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

func (l *slogLogger) Error(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

func (l *slogLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
	os.Exit(1)
}

func (l *slogLogger) With(keyValues ...any) Logger {
	return &slogLogger{
		logger: l.logger.With(keyValues...),
		level:  l.level,
	}
}

func (l *slogLogger) Level() Level {
	switch l.level.Level() {
	case slog.LevelDebug:
		return DebugLevel
	case slog.LevelInfo:
		return InfoLevel
	case slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func (l *slogLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level.Set(toSlogLevel(level))
}

// log builds the record by hand so the source location points at the
// caller of the exported method, not at this adapter. The fixed skip count
// assumes exactly one exported frame above this one.
func (l *slogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	// skip runtime.Callers, log, and the exported wrapper.
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)

	_ = l.logger.Handler().Handle(ctx, r)
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
