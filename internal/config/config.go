package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
)

// Auth modes accepted in auth_mode
const (
	AuthModeServiceAccount = "service_account"
	AuthModeOAuth          = "oauth"
)

// Config represents the complete configuration for drivemirror
type Config struct {
	// Workers is the number of concurrent downloads per folder level
	Workers int `mapstructure:"workers"`

	// VerifyChecksums compares downloads against the MD5 Drive reports
	VerifyChecksums bool `mapstructure:"verify_checksums"`

	// Progress renders the file counter on stdout
	Progress bool `mapstructure:"progress"`

	AuthMode    string      `mapstructure:"auth_mode"`
	Credentials string      `mapstructure:"credentials"`
	Scope       string      `mapstructure:"scope"`
	OAuth       OAuthConfig `mapstructure:"oauth"`

	Log   LogConfig   `mapstructure:"log"`
	State StateConfig `mapstructure:"state"`
}

// OAuthConfig holds the installed-app client used by auth_mode: oauth
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenPath    string `mapstructure:"token_path"`
}

// LogConfig selects level, format and an optional rotating log file
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// StateConfig controls the run history database
type StateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be a positive integer, got %d", domain.ErrConfigInvalid, c.Workers)
	}

	switch c.AuthMode {
	case AuthModeServiceAccount:
		if c.Credentials == "" {
			return fmt.Errorf("%w: credentials file is required for %s", domain.ErrConfigInvalid, c.AuthMode)
		}
	case AuthModeOAuth:
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
			return fmt.Errorf("%w: oauth.client_id and oauth.client_secret are required for %s", domain.ErrConfigInvalid, c.AuthMode)
		}
	default:
		return fmt.Errorf("%w: unknown auth_mode: %s", domain.ErrConfigInvalid, c.AuthMode)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s", domain.ErrConfigInvalid, c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: invalid log format: %s", domain.ErrConfigInvalid, c.Log.Format)
	}

	if c.State.Enabled && c.State.Dir == "" {
		return fmt.Errorf("%w: state.dir is required when history is enabled", domain.ErrConfigInvalid)
	}

	return nil
}

// LoggerConfig converts the log section into a logger configuration
// Logs go to stderr so the progress line on stdout stays intact
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.Config{
		Level:   logger.ParseLevel(c.Log.Level),
		Format:  logger.ParseFormat(c.Log.Format),
		Outputs: []logger.OutputConfig{{Type: logger.OutputStderr}},
	}

	if c.Log.File != "" {
		cfg = cfg.WithFile(logger.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxAgeDays: c.Log.MaxAgeDays,
			MaxBackups: c.Log.MaxBackups,
			Compress:   c.Log.Compress,
		})
	}

	return cfg
}

// expandPaths applies ExpandPath to every path-valued setting
func (c *Config) expandPaths() {
	for _, p := range []*string{&c.Credentials, &c.OAuth.TokenPath, &c.Log.File, &c.State.Dir} {
		if *p != "" {
			*p = ExpandPath(*p)
		}
	}
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
