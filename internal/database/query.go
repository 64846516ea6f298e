package database

import (
	"strings"
)

// QueryBuilder converts SQL queries written with ? placeholders to the
// dialect's placeholder style.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build rewrites ? placeholders. A ? inside a single-quoted literal is left alone.
//
//	input:    "SELECT theme FROM guild_sessions WHERE guild_id = ? AND theme <> '?'"
//	SQLite:   unchanged
//	Postgres: "SELECT theme FROM guild_sessions WHERE guild_id = $1 AND theme <> '?'"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(*SQLiteDialect); ok {
		return query
	}

	var result strings.Builder
	result.Grow(len(query) + 8)
	position := 1
	inLiteral := false

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			result.WriteByte(c)
		case c == '?' && !inLiteral:
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		default:
			result.WriteByte(c)
		}
	}
	return result.String()
}
