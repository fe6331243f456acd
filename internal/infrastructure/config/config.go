// Package config provides configuration loading for the migrator application.
// Settings come from built-in defaults, an optional YAML file and environment
// variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	// EnvConfigFile is the path to the YAML configuration file.
	EnvConfigFile = "MIGRATOR_CONFIG"

	// EnvLogLevel is the log level (debug, info, warn, error).
	EnvLogLevel = "MIGRATOR_LOG_LEVEL"

	// EnvLogFile is the path of an additional JSON log file.
	EnvLogFile = "MIGRATOR_LOG_FILE"

	// EnvContextLines is the number of context lines around hunk changes.
	EnvContextLines = "MIGRATOR_CONTEXT_LINES"

	// EnvRenameThreshold is the similarity ratio above which files count as renamed.
	EnvRenameThreshold = "MIGRATOR_RENAME_THRESHOLD"
)

// Default values.
const (
	DefaultFileName        = ".migrator.yaml"
	DefaultLogLevel        = "warn"
	DefaultLogMaxSizeMB    = 10
	DefaultLogMaxBackups   = 3
	DefaultContextLines    = 3
	DefaultMaxTextBytes    = 8 << 20
	DefaultRenameThreshold = 0.5
)

// Configuration errors.
var (
	// ErrConfigNotFound indicates an explicitly requested config file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrConfigInvalid indicates the configuration could not be parsed or failed validation.
	ErrConfigInvalid = errors.New("configuration is invalid")
)

// Config holds all application configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Diff   DiffConfig   `yaml:"diff"`
	Limits LimitsConfig `yaml:"limits"`

	// Source is the file the configuration was read from, empty for defaults only.
	Source string `yaml:"-"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=1"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
}

// DiffConfig configures diff generation and merging.
type DiffConfig struct {
	ContextLines    int      `yaml:"context_lines" validate:"min=0,max=100"`
	MaxTextBytes    int64    `yaml:"max_text_bytes" validate:"min=1"`
	Renames         bool     `yaml:"renames"`
	RenameThreshold float64  `yaml:"rename_threshold" validate:"gt=0,lte=1"`
	Ignore          []string `yaml:"ignore" validate:"dive,required"`
}

// LimitsConfig bounds the size of collected snapshots. Zero means unlimited.
type LimitsConfig struct {
	MaxFiles int   `yaml:"max_files" validate:"min=0"`
	MaxBytes int64 `yaml:"max_bytes" validate:"min=0"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
		Diff: DiffConfig{
			ContextLines:    DefaultContextLines,
			MaxTextBytes:    DefaultMaxTextBytes,
			Renames:         true,
			RenameThreshold: DefaultRenameThreshold,
		},
	}
}

// Environment looks up environment variables.
type Environment func(key string) (string, bool)

// Load loads the configuration from path, MIGRATOR_CONFIG or .migrator.yaml
// in the working directory, then applies environment overrides.
func Load(path string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	return LoadWithEnvironment(path, cwd, os.LookupEnv)
}

// LoadWithEnvironment loads configuration using the provided working directory
// and environment lookup. This function enables dependency injection for testing.
//
// An explicit path, or one given through MIGRATOR_CONFIG, must exist. The
// default file in cwd is optional.
func LoadWithEnvironment(path, cwd string, env Environment) (*Config, error) {
	cfg := Default()

	file, required := resolveFile(path, cwd, env)
	if err := readFile(cfg, file, required); err != nil {
		return nil, err
	}

	if err := applyEnvironment(cfg, env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return nil
}

func resolveFile(path, cwd string, env Environment) (string, bool) {
	if path != "" {
		return absolute(path, cwd), true
	}
	if v, ok := env(EnvConfigFile); ok && v != "" {
		return absolute(v, cwd), true
	}
	return filepath.Join(cwd, DefaultFileName), false
}

func absolute(path, cwd string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

func readFile(cfg *Config, file string, required bool) error {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		if required {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, file)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", file, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConfigInvalid, file, err)
	}
	cfg.Source = file
	return nil
}

func applyEnvironment(cfg *Config, env Environment) error {
	if v, ok := env(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := env(EnvLogFile); ok && v != "" {
		cfg.Log.File = v
	}
	if v, ok := env(EnvContextLines); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %w", ErrConfigInvalid, EnvContextLines, err)
		}
		cfg.Diff.ContextLines = n
	}
	if v, ok := env(EnvRenameThreshold); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %w", ErrConfigInvalid, EnvRenameThreshold, err)
		}
		cfg.Diff.RenameThreshold = f
	}
	return nil
}
