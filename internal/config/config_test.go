package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Generation.MaxRooms != 20 {
		t.Errorf("expected max rooms 20, got %d", cfg.Generation.MaxRooms)
	}
	if cfg.Generation.DefaultRooms != 5 {
		t.Errorf("expected default rooms 5, got %d", cfg.Generation.DefaultRooms)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/engine.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(cfg.Content.Dirs) != 1 || cfg.Content.Dirs[0] != "data/content" {
		t.Errorf("expected default content dirs, got %v", cfg.Content.Dirs)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
content:
  dirs:
    - base
    - expansion
generation:
  max_rooms: 12
database:
  driver: postgres
  postgres_dsn: postgres://dungeon@localhost/dungeon?sslmode=disable
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Content.Dirs) != 2 || cfg.Content.Dirs[1] != "expansion" {
		t.Errorf("content dirs = %v", cfg.Content.Dirs)
	}
	if cfg.Generation.MaxRooms != 12 {
		t.Errorf("max rooms = %d, want 12", cfg.Generation.MaxRooms)
	}
	// unset keys keep their defaults
	if cfg.Generation.DefaultRooms != 5 {
		t.Errorf("default rooms = %d, want 5", cfg.Generation.DefaultRooms)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "generation: [not, a, map")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "generation:\n  max_rooms: 12\n")
	t.Setenv("DUNGEON_CONTENT_DIRS", "one,two,three")
	t.Setenv("DUNGEON_MAX_ROOMS", "8")
	t.Setenv("DUNGEON_DB_DRIVER", "pgx")
	t.Setenv("DUNGEON_DB_DSN", "postgres://localhost/dungeon")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if strings.Join(cfg.Content.Dirs, ",") != "one,two,three" {
		t.Errorf("content dirs = %v", cfg.Content.Dirs)
	}
	if cfg.Generation.MaxRooms != 8 {
		t.Errorf("max rooms = %d, want 8 from env", cfg.Generation.MaxRooms)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.PostgresDSN != "postgres://localhost/dungeon" {
		t.Errorf("database = %+v", cfg.Database)
	}
}

func TestLoadConfig_EnvBadNumber(t *testing.T) {
	t.Setenv("DUNGEON_MAX_ROOMS", "lots")
	if _, err := LoadConfig("/nonexistent/engine.yaml"); err == nil {
		t.Error("expected error for non-numeric DUNGEON_MAX_ROOMS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EngineConfig)
		errSub string
	}{
		{"no dirs", func(c *EngineConfig) { c.Content.Dirs = nil }, "content dir"},
		{"blank dir", func(c *EngineConfig) { c.Content.Dirs = []string{"  "} }, "is empty"},
		{"zero max rooms", func(c *EngineConfig) { c.Generation.MaxRooms = 0 }, "max_rooms"},
		{"default above max", func(c *EngineConfig) { c.Generation.DefaultRooms = 25 }, "default_rooms"},
		{"sqlite without path", func(c *EngineConfig) { c.Database.SQLitePath = "" }, "sqlite_path"},
		{"postgres without dsn", func(c *EngineConfig) { c.Database.Driver = "postgres" }, "postgres_dsn"},
		{"unknown driver", func(c *EngineConfig) { c.Database.Driver = "mysql" }, "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errSub)
			}
		})
	}

	t.Run("memory only", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.Driver = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("empty driver should be accepted: %v", err)
		}
	})
}
