package logger

import (
	"fmt"
	"os"
)

// LegacyEnvVar switches every logger built by New to the plain-text fallback
const LegacyEnvVar = "DRIVEMIRROR_USE_LEGACY_LOGGER"

// New 建立 logger，由呼叫端注入各元件（不使用全域 logger）
func New(config Config) (Logger, error) {
	// 檢查是否使用舊版 logger（回退機制）
	if os.Getenv(LegacyEnvVar) == "true" {
		l := NewLegacyLogger(os.Stderr)
		l.SetLevel(config.Level)
		return l, nil
	}

	logger, err := NewSlogLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create slog logger: %w", err)
	}
	return logger, nil
}

// OrNull returns l, or a NullLogger when l is nil
func OrNull(l Logger) Logger {
	if l == nil {
		return &NullLogger{}
	}
	return l
}

// NullLogger 空 logger（不做任何事）
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
