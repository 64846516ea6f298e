package logger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging Config `yaml:"logging"`
}

// envOverrides are the environment variables that take precedence over the file.
type envOverrides struct {
	Level         string `env:"LOG_LEVEL"`
	ConsoleFormat string `env:"LOG_CONSOLE_FORMAT"`
	FileEnabled   *bool  `env:"LOG_FILE_ENABLED"`
	FilePath      string `env:"LOG_FILE_PATH"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/dungeonforge.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig loads logging configuration from a YAML file and applies
// environment variable overrides. A missing file yields the defaults.
func LoadConfig(configPath string) (Config, error) {
	wrapped := LoggingConfig{Logging: DefaultConfig()}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read logging config: %w", err)
		default:
			// keys absent from the file keep their default values
			if err := yaml.Unmarshal(data, &wrapped); err != nil {
				return Config{}, fmt.Errorf("failed to parse logging config: %w", err)
			}
		}
	}

	config := wrapped.Logging
	if err := applyEnv(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

func applyEnv(config *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse logging env: %w", err)
	}
	if o.Level != "" {
		config.Level = o.Level
	}
	if o.ConsoleFormat != "" {
		config.ConsoleFormat = o.ConsoleFormat
	}
	if o.FileEnabled != nil {
		config.FileEnabled = *o.FileEnabled
	}
	if o.FilePath != "" {
		config.FilePath = o.FilePath
	}
	return nil
}
