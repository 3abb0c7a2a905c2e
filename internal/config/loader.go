package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// EnvPrefix is prepended to every environment override (DRIVEMIRROR_WORKERS, DRIVEMIRROR_LOG_LEVEL, ...)
const EnvPrefix = "DRIVEMIRROR"

// flagBindings maps config keys to the CLI flags that override them
var flagBindings = map[string]string{
	"credentials": "credentials",
	"log.level":   "log-level",
	"log.format":  "log-format",
	"log.file":    "log-file",
}

// negatedFlags turn a boolean setting off when present
var negatedFlags = map[string]string{
	"progress":         "no-progress",
	"verify_checksums": "no-verify",
	"state.enabled":    "no-history",
}

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "drivemirror"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "drivemirror"))
		paths = append(paths, filepath.Join(homeDir, ".drivemirror"))
	}

	return paths
}

// DefaultStateDir returns the directory holding the history database
func DefaultStateDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "drivemirror")
	}
	return ".drivemirror"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 4)
	v.SetDefault("verify_checksums", true)
	v.SetDefault("progress", true)
	v.SetDefault("auth_mode", AuthModeServiceAccount)
	v.SetDefault("credentials", "credentials.json")
	v.SetDefault("scope", "drive")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.token_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.compress", false)
	v.SetDefault("state.enabled", true)
	v.SetDefault("state.dir", DefaultStateDir())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds the configuration from defaults, an optional config file,
// DRIVEMIRROR_* environment variables and flags, in increasing precedence
// If path is empty, default locations are searched and a missing file is not an error
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string on top of the defaults
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for key, name := range flagBindings {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	for key, name := range negatedFlags {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if off, err := flags.GetBool(name); err == nil && off {
				v.Set(key, false)
			}
		}
	}

	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
