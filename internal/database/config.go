package database

import "time"

// Config holds database connection configuration.
type Config struct {
	// Driver is "sqlite", "postgres" (lib/pq) or "pgx" (pgx stdlib).
	Driver string

	// SQLite configuration
	SQLitePath string

	// PostgreSQL configuration, used by both postgres drivers
	Postgres PostgresConfig
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	// DSN is a URL or key=value connection string understood by lib/pq and pgx.
	DSN string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults for SQLite.
func DefaultConfig(sqlitePath string) Config {
	return Config{
		Driver:     "sqlite",
		SQLitePath: sqlitePath,
	}
}

// DefaultPostgresConfig returns PostgresConfig for dsn with recommended pool settings.
func DefaultPostgresConfig(dsn string) PostgresConfig {
	return PostgresConfig{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}
