package database

import (
	"strings"
	"testing"
	"time"
)

func TestNewDialect(t *testing.T) {
	tests := []struct {
		dialect DialectType
		driver  string
	}{
		{DialectSQLite, "sqlite"},
		{DialectPostgres, "postgres"},
		{DialectPGX, "pgx"},
		{"unknown", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			if got := NewDialect(tt.dialect).DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %q, want %q", got, tt.driver)
			}
		})
	}
}

func TestDialect_Placeholder(t *testing.T) {
	sqlite := &SQLiteDialect{}
	pg := &PostgresDialect{}
	for _, pos := range []int{1, 2, 10} {
		if got := sqlite.Placeholder(pos); got != "?" {
			t.Errorf("sqlite Placeholder(%d) = %q", pos, got)
		}
	}
	if got := pg.Placeholder(3); got != "$3" {
		t.Errorf("postgres Placeholder(3) = %q, want $3", got)
	}
	if pg.DriverName() != "postgres" {
		t.Errorf("zero PostgresDialect driver = %q, want postgres", pg.DriverName())
	}
}

func TestDialect_Types(t *testing.T) {
	if got := (&SQLiteDialect{}).JSONType(); got != "TEXT" {
		t.Errorf("sqlite JSONType() = %q", got)
	}
	if got := (&PostgresDialect{}).JSONType(); got != "JSONB" {
		t.Errorf("postgres JSONType() = %q", got)
	}
}

func TestDialect_DSN(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		target  string
		want    string
	}{
		{"sqlite path", &SQLiteDialect{}, "data/dungeon.db",
			"data/dungeon.db?_pragma=foreign_keys%281%29&_pragma=journal_mode%28WAL%29&_pragma=busy_timeout%285000%29"},
		{"sqlite existing query", &SQLiteDialect{}, "file:dungeon.db?mode=rwc",
			"file:dungeon.db?mode=rwc&_pragma=foreign_keys%281%29&_pragma=journal_mode%28WAL%29&_pragma=busy_timeout%285000%29"},
		{"postgres url", &PostgresDialect{}, "postgres://dungeon@db/dungeonforge", "postgres://dungeon@db/dungeonforge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.target); got != tt.want {
				t.Errorf("DSN(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestQueryBuilder_Build(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		input   string
		want    string
	}{
		{"sqlite unchanged", &SQLiteDialect{}, "SELECT * FROM guild_sessions WHERE guild_id = ?", "SELECT * FROM guild_sessions WHERE guild_id = ?"},
		{"postgres single", &PostgresDialect{}, "DELETE FROM guild_sessions WHERE guild_id = ?", "DELETE FROM guild_sessions WHERE guild_id = $1"},
		{"postgres many", &PostgresDialect{}, "VALUES (?, ?, ?)", "VALUES ($1, $2, $3)"},
		{"postgres literal", &PostgresDialect{}, "WHERE a = ? AND b <> '?' AND c = ?", "WHERE a = $1 AND b <> '?' AND c = $2"},
		{"no placeholders", &PostgresDialect{}, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewQueryBuilder(tt.dialect).Build(tt.input); got != tt.want {
				t.Errorf("Build(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig("postgres://dungeon@db/dungeonforge")
	if cfg.DSN != "postgres://dungeon@db/dungeonforge" {
		t.Errorf("DSN = %q", cfg.DSN)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 || cfg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("pool settings = %+v", cfg)
	}
}

func TestOpenWithConfig_PostgresRequiresDSN(t *testing.T) {
	for _, driver := range []string{"postgres", "pgx"} {
		_, err := OpenWithConfig(Config{Driver: driver, Postgres: DefaultPostgresConfig("")})
		if err == nil || !strings.Contains(err.Error(), "requires a dsn") {
			t.Errorf("OpenWithConfig(%s, no dsn) error = %v, want missing dsn", driver, err)
		}
	}
}
