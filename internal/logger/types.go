package logger

import (
	"io"
	"log/slog"
	"strings"
)

// Logger is the logging interface every drivemirror component receives
// Arguments after msg are alternating key/value pairs, as with slog
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Sync() error     // flush buffered output
	Shutdown() error // close owned writers
}

// Level shares its numbering with slog.Level so it can be handed to handlers directly
type Level int

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// Slog returns the equivalent slog level
func (l Level) Slog() slog.Level {
	return slog.Level(l)
}

// String returns the lower-case level name
func (l Level) String() string {
	return strings.ToLower(l.Slog().String())
}

// ParseLevel parses a level name (case-insensitive); unknown names mean info
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return LevelWarn
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo
	}
	return Level(lvl)
}

// Format selects the slog handler
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name (case-insensitive); unknown names mean text
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// Output is a log destination
type Output int

const (
	OutputStdout Output = iota
	OutputStderr
	OutputFile
)

// Config describes how New builds a logger
type Config struct {
	Level   Level
	Format  Format
	Outputs []OutputConfig
	File    FileConfig
}

// DefaultConfig logs text at info level to stderr, keeping stdout for the progress line
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Format:  FormatText,
		Outputs: []OutputConfig{{Type: OutputStderr}},
	}
}

// WithFile adds a rotating file output
func (c Config) WithFile(file FileConfig) Config {
	file.Enabled = true
	c.File = file
	c.Outputs = append(append([]OutputConfig(nil), c.Outputs...), OutputConfig{Type: OutputFile})
	return c
}

// OutputConfig is one destination; Writer overrides stdout/stderr in tests
type OutputConfig struct {
	Type   Output
	Writer io.Writer
}

// FileConfig controls the lumberjack-rotated log file
type FileConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}
