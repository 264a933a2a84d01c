package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterAddsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: slog.LevelInfo, Writer: buf, Component: ComponentCache})

	logger.Info("entry evicted", FieldCacheKey, "wallet|acc-1||")

	out := buf.String()
	if !strings.Contains(out, "component=cache") {
		t.Errorf("expected component in output, got: %s", out)
	}
	if !strings.Contains(out, "cache_key=") {
		t.Errorf("expected cache_key in output, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Format: "json", Writer: buf})
	logger.Warn("hello")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"component":"app"`) {
		t.Errorf("expected JSON record, got: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: slog.LevelWarn, Writer: buf})
	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(Config{Writer: &bytes.Buffer{}, Component: ComponentSession})
	ctx := IntoContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected the stored logger back")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
