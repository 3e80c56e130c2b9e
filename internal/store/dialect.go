package store

import (
	"fmt"
	"strings"
)

// Dialect abstracts the placeholder and identifier quoting differences
// between the supported drivers.
type Dialect interface {
	// Placeholder returns the parameter placeholder for ordinal n (1-based)
	Placeholder(n int) string
	// QuoteIdent quotes a column or table identifier
	QuoteIdent(ident string) string
}

// PostgresDialect targets pgx and lib/pq
type PostgresDialect struct{}

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgresDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// SQLiteDialect targets mattn/go-sqlite3
type SQLiteDialect struct{}

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// DialectForDriver returns the dialect matching a database/sql driver name
func DialectForDriver(driver string) Dialect {
	switch driver {
	case "sqlite3":
		return SQLiteDialect{}
	default:
		// pgx and postgres share placeholder syntax
		return PostgresDialect{}
	}
}
