package database

// Dialect abstracts the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// Placeholder returns the parameter placeholder for the given position (1-indexed).
	Placeholder(position int) string

	// JSONType returns the column type used for JSON documents.
	JSONType() string

	// DSN turns the configured target into the string passed to sql.Open,
	// adding any per-connection settings the driver accepts there.
	DSN(target string) string
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
	DialectPGX      DialectType = "pgx"
)

// NewDialect creates a new Dialect for the given type. Unknown types fall
// back to SQLite.
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &PostgresDialect{driver: "postgres"}
	case DialectPGX:
		return &PostgresDialect{driver: "pgx"}
	default:
		return &SQLiteDialect{}
	}
}
