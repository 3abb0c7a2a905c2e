package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_Slog(t *testing.T) {
	buf := &bytes.Buffer{}
	config := Config{
		Level:   LevelInfo,
		Format:  FormatText,
		Outputs: []OutputConfig{{Type: OutputStderr, Writer: buf}},
	}

	log, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer log.Shutdown()

	if _, ok := log.(*SlogLogger); !ok {
		t.Fatalf("New() returned %T, want *SlogLogger", log)
	}

	log.Info("mirror started", "folder", "abc123")
	if !strings.Contains(buf.String(), "folder=abc123") {
		t.Errorf("log output missing attribute: %s", buf.String())
	}
}

func TestNew_LegacyFallback(t *testing.T) {
	t.Setenv(LegacyEnvVar, "true")

	log, err := New(Config{Level: LevelWarn})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := log.(*LegacyLogger); !ok {
		t.Fatalf("New() returned %T, want *LegacyLogger", log)
	}
}

func TestLegacyLogger_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLegacyLogger(buf)

	log.Debug("hidden")
	log.With("file", "a.txt").Error("download failed", "reason", "timeout")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %s", out)
	}
	for _, want := range []string{" - ERROR - ", "[file=a.txt] ", "download failed", "reason=timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestOrNull(t *testing.T) {
	if _, ok := OrNull(nil).(*NullLogger); !ok {
		t.Error("OrNull(nil) should return a NullLogger")
	}

	legacy := NewLegacyLogger(&bytes.Buffer{})
	if OrNull(legacy) != Logger(legacy) {
		t.Error("OrNull should return a non-nil logger unchanged")
	}
}

func TestNullLogger(t *testing.T) {
	var log Logger = &NullLogger{}
	// 不應該 panic
	log.Info("should not crash")
	log.Debug("should not crash")
	log.Warn("should not crash")
	log.Error("should not crash")
	if log.With("k", "v") != log {
		t.Error("NullLogger.With should return itself")
	}
	if err := log.Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{" error ", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q", LevelWarn.String())
	}
	if ParseFormat("JSON") != FormatJSON || ParseFormat("yaml") != FormatText {
		t.Error("ParseFormat did not fall back to text")
	}
}
