package adapter

import "strings"

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
// This is the SQL standard form understood by SQLite, DuckDB and PostgreSQL.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
