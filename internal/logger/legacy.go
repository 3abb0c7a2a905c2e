package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// LegacyLogger 舊版 logger（純文字輸出，用於回退）
type LegacyLogger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	prefix string
}

// NewLegacyLogger 建立 legacy logger
func NewLegacyLogger(out io.Writer) *LegacyLogger {
	return &LegacyLogger{
		out:   out,
		level: LevelInfo,
	}
}

// SetLevel 設定日誌級別
func (l *LegacyLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *LegacyLogger) write(level Level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s - %s%s", time.Now().Format(time.RFC3339), strings.ToUpper(level.String()), l.prefix, msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	fmt.Fprintln(l.out, b.String())
}

// Debug 記錄 debug 級別日誌
func (l *LegacyLogger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }

// Info 記錄 info 級別日誌
func (l *LegacyLogger) Info(msg string, args ...any) { l.write(LevelInfo, msg, args) }

// Warn 記錄 warn 級別日誌
func (l *LegacyLogger) Warn(msg string, args ...any) { l.write(LevelWarn, msg, args) }

// Error 記錄 error 級別日誌
func (l *LegacyLogger) Error(msg string, args ...any) { l.write(LevelError, msg, args) }

// With 建立帶 context 的子 logger（key=value 以前綴方式附加）
func (l *LegacyLogger) With(args ...any) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	b.WriteString(l.prefix)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, "[%v=%v] ", args[i], args[i+1])
	}
	return &LegacyLogger{out: l.out, level: l.level, prefix: b.String()}
}

// Sync 強制 flush
func (l *LegacyLogger) Sync() error {
	return nil
}

// Shutdown 優雅關閉
func (l *LegacyLogger) Shutdown() error {
	return nil
}
