// Package logger is the process-wide structured logger: slog handlers for
// console and a rotated file, fanned out by a multi-handler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelAlways is above Error so audit lines (reloads) are never filtered.
const LevelAlways = slog.Level(12)

var (
	current atomic.Pointer[slog.Logger]
	level   = new(slog.LevelVar)
)

// Initialize sets up the logger with the provided configuration
func Initialize(config Config) error {
	level.Set(parseLogLevel(config.Level))

	var handlers []slog.Handler
	if config.ConsoleEnabled {
		handlers = append(handlers, newHandler(os.Stdout, config.ConsoleFormat))
	}

	if config.FileEnabled {
		if config.FilePath == "" {
			return fmt.Errorf("file logging enabled without a file path")
		}
		handlers = append(handlers, newHandler(&lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.FileMaxSizeMB,
			MaxBackups: config.FileMaxBackups,
			MaxAge:     config.FileMaxAgeDays,
		}, config.FileFormat))
	}

	if len(handlers) == 0 {
		handlers = append(handlers, newHandler(os.Stdout, "text"))
	}

	if len(handlers) == 1 {
		use(slog.New(handlers[0]))
	} else {
		use(slog.New(newMultiHandler(handlers...)))
	}
	return nil
}

func newHandler(w io.Writer, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelAlways {
					a.Value = slog.StringValue("ALWAYS")
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func use(l *slog.Logger) {
	current.Store(l)
}

// SetLevel changes the minimum level of the installed handlers.
func SetLevel(name string) {
	level.Set(parseLogLevel(name))
}

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger carrying the given attributes, for per-component
// logging. Before Initialize it returns a logger that discards everything.
func With(args ...any) *slog.Logger {
	if l := current.Load(); l != nil {
		return l.With(args...)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func log(l slog.Level, msg string, args ...any) {
	if lg := current.Load(); lg != nil {
		lg.Log(context.Background(), l, msg, args...)
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) { log(slog.LevelDebug, msg, args...) }

// Debugf logs a formatted debug message
func Debugf(format string, args ...any) { Debug(fmt.Sprintf(format, args...)) }

// Info logs an info message
func Info(msg string, args ...any) { log(slog.LevelInfo, msg, args...) }

// Infof logs a formatted info message
func Infof(format string, args ...any) { Info(fmt.Sprintf(format, args...)) }

// Warning logs a warning message
func Warning(msg string, args ...any) { log(slog.LevelWarn, msg, args...) }

// Warningf logs a formatted warning message
func Warningf(format string, args ...any) { Warning(fmt.Sprintf(format, args...)) }

// Error logs an error message
func Error(msg string, args ...any) { log(slog.LevelError, msg, args...) }

// Errorf logs a formatted error message
func Errorf(format string, args ...any) { Error(fmt.Sprintf(format, args...)) }

// Always logs a message that bypasses level filtering. Used for the reload
// audit trail.
func Always(msg string, args ...any) { log(LevelAlways, msg, args...) }

// Alwaysf logs a formatted message that bypasses level filtering
func Alwaysf(format string, args ...any) { Always(fmt.Sprintf(format, args...)) }

// multiHandler writes each record to every enabled handler.
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		// one failing sink must not starve the others
		if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	return h.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *multiHandler) each(fn func(slog.Handler) slog.Handler) *multiHandler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = fn(handler)
	}
	return newMultiHandler(handlers...)
}
