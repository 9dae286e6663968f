package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(New(&buf, slog.LevelWarn))

	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below min level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestHandlerIncludesAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(New(&buf, slog.LevelInfo))

	logger.Info("excluding poison-pill entry", "index", 3, "kind", "empty_line")

	out := buf.String()
	if !strings.Contains(out, "index=3") {
		t.Errorf("expected index attr in output, got %q", out)
	}
	if !strings.Contains(out, "kind=empty_line") {
		t.Errorf("expected kind attr in output, got %q", out)
	}
}

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
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "error")

	logger.Warn("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below error level, got %q", buf.String())
	}

	logger.Error("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
