// Package observability wires structured logging for the toolkit.
//
// Hook and statusline processes own their stdout (it carries the host
// protocol / rendered statusline), so diagnostics default to a debug log
// file under the toolkit home with stderr as the fallback.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogContext holds structured logging context information.
type LogContext struct {
	SessionID string
	HookEvent string
	Skill     string
	Task      string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	lc := extractLogContext(ctx)
	lc.SessionID = sessionID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithHookEvent adds a hook event name to the context.
func WithHookEvent(ctx context.Context, event string) context.Context {
	lc := extractLogContext(ctx)
	lc.HookEvent = event
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSkill adds a skill name to the context.
func WithSkill(ctx context.Context, skill string) context.Context {
	lc := extractLogContext(ctx)
	lc.Skill = skill
	return context.WithValue(ctx, logContextKey, lc)
}

// WithTask adds a scheduled task name to the context.
func WithTask(ctx context.Context, task string) context.Context {
	lc := extractLogContext(ctx)
	lc.Task = task
	return context.WithValue(ctx, logContextKey, lc)
}

// extractLogContext retrieves or creates a LogContext from the context.
func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// getLogAttrs returns slog attributes from the context's LogContext.
func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.SessionID != "" {
		attrs = append(attrs, slog.String("session.id", lc.SessionID))
	}
	if lc.HookEvent != "" {
		attrs = append(attrs, slog.String("hook.event", lc.HookEvent))
	}
	if lc.Skill != "" {
		attrs = append(attrs, slog.String("skill", lc.Skill))
	}
	if lc.Task != "" {
		attrs = append(attrs, slog.String("task", lc.Task))
	}

	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(getLogAttrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(getLogAttrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ParseLevel maps a config string to a slog level; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger installs the default slog logger. When logFile is non-empty
// the log is appended there (directory created as needed); otherwise, or on
// failure, output goes to stderr. Stdout is never used. The returned func
// closes the log file.
func SetupLogger(logFile string, level slog.Level) (close func(), err error) {
	var w io.Writer = os.Stderr
	closer := func() {}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
			f, openErr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if openErr == nil {
				w = f
				closer = func() { _ = f.Close() }
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return closer, nil
}
