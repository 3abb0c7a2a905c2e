package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
)

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString("")
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if !cfg.VerifyChecksums || !cfg.Progress || !cfg.State.Enabled {
		t.Errorf("boolean defaults not applied: %+v", cfg)
	}
	if cfg.AuthMode != AuthModeServiceAccount || cfg.Scope != "drive" {
		t.Errorf("auth defaults = %q %q", cfg.AuthMode, cfg.Scope)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.State.Dir == "" {
		t.Error("state dir default is empty")
	}
}

func TestLoadFromString_Overrides(t *testing.T) {
	yaml := `
workers: 8
verify_checksums: false
auth_mode: oauth
oauth:
  client_id: id.apps.googleusercontent.com
  client_secret: shh
log:
  level: debug
  format: json
`
	cfg, err := LoadFromString(yaml)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.Workers != 8 || cfg.VerifyChecksums {
		t.Errorf("Workers=%d VerifyChecksums=%v", cfg.Workers, cfg.VerifyChecksums)
	}
	if cfg.OAuth.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.OAuth.ClientID)
	}
	if lc := cfg.LoggerConfig(); lc.Level != logger.LevelDebug || lc.Format != logger.FormatJSON {
		t.Errorf("LoggerConfig() = %+v", lc)
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero workers", "workers: 0"},
		{"negative workers", "workers: -2"},
		{"unknown auth mode", "auth_mode: magic"},
		{"oauth without client", "auth_mode: oauth"},
		{"bad log level", "log:\n  level: loud"},
		{"bad log format", "log:\n  format: xml"},
		{"malformed yaml", "workers: [1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			if !errors.Is(err, domain.ErrConfigInvalid) {
				t.Errorf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "workers: 6\nlog:\n  level: warn\ncredentials: " + filepath.Join(dir, "sa.json") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DRIVEMIRROR_WORKERS", "3")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "")
	flags.Bool("no-progress", false, "")
	flags.Bool("no-history", false, "")
	if err := flags.Parse([]string{"--log-level=error", "--no-progress"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want env override 3", cfg.Workers)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want flag override", cfg.Log.Level)
	}
	if cfg.Progress {
		t.Error("--no-progress did not disable progress")
	}
	if !cfg.State.Enabled {
		t.Error("unset --no-history disabled history")
	}
	if cfg.Credentials != filepath.Join(dir, "sa.json") {
		t.Errorf("Credentials = %q", cfg.Credentials)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("DRIVEMIRROR_TEST_DIR", "/srv/mirror")

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/creds.json", filepath.Join(home, "creds.json")},
		{"$DRIVEMIRROR_TEST_DIR/state", "/srv/mirror/state"},
		{"relative/../path", "path"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerConfig_File(t *testing.T) {
	cfg, err := LoadFromString("log:\n  file: /var/log/drivemirror.log\n")
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	lc := cfg.LoggerConfig()
	if len(lc.Outputs) != 2 || lc.Outputs[1].Type != logger.OutputFile {
		t.Fatalf("Outputs = %+v", lc.Outputs)
	}
	if !lc.File.Enabled || lc.File.Path != "/var/log/drivemirror.log" || lc.File.MaxSizeMB != 10 {
		t.Errorf("File = %+v", lc.File)
	}
}
