package observability

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, test := range tests {
		if got := ParseLevel(test.in); got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestSetupLoggerWritesToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logFile := filepath.Join(t.TempDir(), "logs", "sidekick.log")
	closeLog, err := SetupLogger(logFile, slog.LevelInfo)
	if err != nil {
		t.Fatalf("SetupLogger failed: %v", err)
	}

	slog.Info("hello from test", "key", "value")
	closeLog()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestContextAttrs(t *testing.T) {
	ctx := WithSessionID(context.Background(), "s-123")
	ctx = WithHookEvent(ctx, "PreToolUse")

	attrs := getLogAttrs(ctx)
	found := map[string]string{}
	for _, a := range attrs {
		found[a.Key] = a.Value.String()
	}
	if found["session.id"] != "s-123" {
		t.Errorf("session.id = %q, want s-123", found["session.id"])
	}
	if found["hook.event"] != "PreToolUse" {
		t.Errorf("hook.event = %q, want PreToolUse", found["hook.event"])
	}
}
