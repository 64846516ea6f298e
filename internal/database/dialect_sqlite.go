package database

import (
	"net/url"
	"strings"

	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied by the driver to every new connection in the pool.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
}

// SQLiteDialect implements Dialect for the modernc.org/sqlite driver.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

// Placeholder returns "?" for all positions.
func (d *SQLiteDialect) Placeholder(position int) string { return "?" }

func (d *SQLiteDialect) JSONType() string { return "TEXT" }

// DSN appends the pragmas as _pragma parameters, which modernc.org/sqlite
// runs on each connection it opens.
func (d *SQLiteDialect) DSN(path string) string {
	params := url.Values{"_pragma": sqlitePragmas}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}
