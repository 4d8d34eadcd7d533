// Package adapter provides the shared machinery behind every dbview backend.
//
// Concrete backends live in pkg/adapters/ subdirectories. Each one embeds
// BaseSQLAdapter, which owns the single physical connection, serializes all
// access to it and implements the core.Database contract on top of a small
// engine specific Catalog.
package adapter

// Catalog describes how to introspect one engine.
type Catalog interface {
	// TablesSQL returns a query yielding (name, sql) for every user table,
	// ordered by name and excluding engine internal tables.
	TablesSQL() string

	// TableExistsSQL returns a query taking the table name as its only
	// parameter and yielding one row if the table exists.
	TableExistsSQL() string

	// QuoteIdentifier quotes a table name for interpolation into SQL.
	QuoteIdentifier(name string) string
}

// ColumnDecoder is implemented by catalogs whose drivers convert some column
// types on the way out. DecodeColumn sees the declared column type and wins
// over Decode when ok is true.
type ColumnDecoder interface {
	DecodeColumn(dbType string, v any) (s string, ok bool)
}
