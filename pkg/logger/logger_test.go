package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWithWriterHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", &buf)
	Info("hidden_event")
	Warn("shown_event", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden_event") {
		t.Errorf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown_event") || !strings.Contains(out, "k=v") {
		t.Errorf("warn missing: %s", out)
	}
}

func TestRedactHeaderValue(t *testing.T) {
	if got := redactHeaderValue("Authorization", "Bearer secret"); got != "B*****t" {
		t.Errorf("authorization not masked: %q", got)
	}
	if got := redactHeaderValue("X-API-Key", "ab"); got != "<redacted>" {
		t.Errorf("short key not redacted: %q", got)
	}
	if got := redactHeaderValue("Content-Type", "application/json"); got != "application/json" {
		t.Errorf("plain header altered: %q", got)
	}
}
