package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds engine-wide configuration settings.
type EngineConfig struct {
	Content    ContentConfig    `yaml:"content"`
	Generation GenerationConfig `yaml:"generation"`
	Database   DatabaseConfig   `yaml:"database"`

	// LoggingConfig is the path of the logging YAML file.
	LoggingConfig string `yaml:"logging_config" env:"DUNGEON_LOGGING_CONFIG"`
}

// ContentConfig lists the content source roots.
type ContentConfig struct {
	// Dirs are merged in order. Each holds monsters/, traps/, items/ and themes/.
	Dirs []string `yaml:"dirs" env:"DUNGEON_CONTENT_DIRS" envSeparator:","`
}

// GenerationConfig holds generation limits.
type GenerationConfig struct {
	// MaxRooms caps the room count of a single run.
	MaxRooms int `yaml:"max_rooms" env:"DUNGEON_MAX_ROOMS"`

	// DefaultRooms is used when a request does not name a size.
	DefaultRooms int `yaml:"default_rooms" env:"DUNGEON_DEFAULT_ROOMS"`
}

// DatabaseConfig selects the guild session store.
type DatabaseConfig struct {
	// Driver is "sqlite", "postgres" or "pgx". Empty keeps sessions in memory only.
	Driver      string `yaml:"driver" env:"DUNGEON_DB_DRIVER"`
	SQLitePath  string `yaml:"sqlite_path" env:"DUNGEON_DB_PATH"`
	PostgresDSN string `yaml:"postgres_dsn" env:"DUNGEON_DB_DSN"`
}

// DefaultConfig returns an EngineConfig with the stock limits.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Content: ContentConfig{
			Dirs: []string{"data/content"},
		},
		Generation: GenerationConfig{
			MaxRooms:     20,
			DefaultRooms: 5,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/dungeonforge.db",
		},
		LoggingConfig: "data/logging.yaml",
	}
}

// LoadConfig loads engine configuration from a YAML file, then applies
// environment overrides. If the file doesn't exist the defaults are used.
func LoadConfig(path string) (*EngineConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *EngineConfig) Validate() error {
	if len(c.Content.Dirs) == 0 {
		return fmt.Errorf("config: at least one content dir is required")
	}
	for i, dir := range c.Content.Dirs {
		c.Content.Dirs[i] = strings.TrimSpace(dir)
		if c.Content.Dirs[i] == "" {
			return fmt.Errorf("config: content dir %d is empty", i)
		}
	}

	if c.Generation.MaxRooms < 1 {
		return fmt.Errorf("config: max_rooms must be positive, got %d", c.Generation.MaxRooms)
	}
	if c.Generation.DefaultRooms < 1 || c.Generation.DefaultRooms > c.Generation.MaxRooms {
		return fmt.Errorf("config: default_rooms must be in 1..%d, got %d", c.Generation.MaxRooms, c.Generation.DefaultRooms)
	}

	switch c.Database.Driver {
	case "":
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("config: sqlite driver needs sqlite_path")
		}
	case "postgres", "pgx":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("config: %s driver needs postgres_dsn", c.Database.Driver)
		}
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	return nil
}
