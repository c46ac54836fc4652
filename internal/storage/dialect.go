package storage

import (
	"fmt"
	"strings"
)

// Dialect hides the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName is the database/sql driver name.
	DriverName() string
	// Placeholder returns the parameter marker for the given 1-based position.
	Placeholder(position int) string
	// DSN completes a data source name with the options every pooled
	// connection needs.
	DSN(base string) string
}

// SQLiteDialect targets modernc.org/sqlite.
type SQLiteDialect struct{}

func (SQLiteDialect) DriverName() string     { return "sqlite" }
func (SQLiteDialect) Placeholder(int) string { return "?" }

// DSN sets the pragmas through the driver so each new connection runs them.
func (SQLiteDialect) DSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// PostgresDialect targets github.com/lib/pq.
type PostgresDialect struct{}

func (PostgresDialect) DriverName() string              { return "postgres" }
func (PostgresDialect) Placeholder(position int) string { return fmt.Sprintf("$%d", position) }
func (PostgresDialect) DSN(base string) string          { return base }

// QueryBuilder rewrites queries written with ? placeholders for a dialect.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build replaces each ? with the dialect's placeholder for its position.
//
//	input:    "SELECT * FROM crosswords WHERE id = ? AND title = ?"
//	SQLite:   "SELECT * FROM crosswords WHERE id = ? AND title = ?"
//	Postgres: "SELECT * FROM crosswords WHERE id = $1 AND title = $2"
func (qb *QueryBuilder) Build(query string) string {
	if _, ok := qb.dialect.(SQLiteDialect); ok {
		return query
	}
	var sb strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			sb.WriteString(qb.dialect.Placeholder(position))
			position++
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
