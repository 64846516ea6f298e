package database

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL through either lib/pq
// ("postgres") or pgx ("pgx").
type PostgresDialect struct {
	driver string
}

func (d *PostgresDialect) DriverName() string {
	if d.driver == "" {
		return "postgres"
	}
	return d.driver
}

// Placeholder returns "$N" for the given position.
func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (d *PostgresDialect) JSONType() string { return "JSONB" }

// DSN returns the connection string unchanged.
func (d *PostgresDialect) DSN(target string) string { return target }
