// Package config provides centralized configuration for the stegoctl
// client. Built-in defaults come first, an optional YAML file overlays
// them, environment variables under the STEGO prefix win over both, and
// the result is validated before use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete client configuration.
type Config struct {
	Service ServiceConfig `yaml:"service" envconfig:"SERVICE"`
	Quota   QuotaConfig   `yaml:"quota" envconfig:"QUOTA"`
	Limits  LimitsConfig  `yaml:"limits" envconfig:"LIMITS"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// ServiceConfig locates the remote steganography service.
type ServiceConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// QuotaConfig carries the fixed anonymous per-kind operation limits.
type QuotaConfig struct {
	HideLimit    int `yaml:"hide_limit" envconfig:"HIDE_LIMIT" validate:"gt=0"`
	ExtractLimit int `yaml:"extract_limit" envconfig:"EXTRACT_LIMIT" validate:"gt=0"`
}

// LimitsConfig constrains inputs before any network call.
type LimitsConfig struct {
	MaxFileSize int64 `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" validate:"gt=0"`
}

// PathsConfig locates local state on disk.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ResultsDir   string `yaml:"results_dir" envconfig:"RESULTS_DIR" validate:"required"`
	DatabaseFile string `yaml:"database_file" envconfig:"DATABASE_FILE" validate:"required"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 120 * time.Second,
		},
		Quota: QuotaConfig{
			HideLimit:    3,
			ExtractLimit: 5,
		},
		Limits: LimitsConfig{
			MaxFileSize: 50 << 20,
		},
		Paths: PathsConfig{
			DataDir:      "data",
			ResultsDir:   filepath.Join("data", "results"),
			DatabaseFile: filepath.Join("data", "state.db"),
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: filepath.Join("logs", "stegoctl.log"),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// STEGO_CONFIG_FILE (default stegoctl.yaml) when present, then STEGO_*
// environment variables.
func Load() (*Config, error) {
	cfg := Default()

	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("STEGO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// resolvePaths anchors relative paths at the working directory and ensures
// the state directories exist.
func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.Paths.DataDir, &c.Paths.ResultsDir, &c.Paths.DatabaseFile} {
		if !filepath.IsAbs(*p) {
			abs, err := filepath.Abs(*p)
			if err != nil {
				return err
			}
			*p = abs
		}
	}
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ResultsDir, filepath.Dir(c.Paths.DatabaseFile)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func configFilePath() string {
	if path := os.Getenv("STEGO_CONFIG_FILE"); path != "" {
		return path
	}
	return "stegoctl.yaml"
}
