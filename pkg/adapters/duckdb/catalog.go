package duckdb

import "github.com/leapstack-labs/dbview/pkg/adapter"

// Catalog introspects duckdb_tables() for the current schema.
type Catalog struct{}

func (Catalog) TablesSQL() string {
	return `SELECT table_name, sql FROM duckdb_tables() ` +
		`WHERE NOT internal AND NOT starts_with(table_name, 'duckdb_') ` +
		`AND database_name = current_database() AND schema_name = current_schema() ` +
		`ORDER BY table_name`
}

func (Catalog) TableExistsSQL() string {
	return `SELECT 1 FROM duckdb_tables() ` +
		`WHERE NOT internal AND database_name = current_database() ` +
		`AND schema_name = current_schema() AND table_name = ?`
}

func (Catalog) QuoteIdentifier(name string) string {
	return adapter.QuoteIdentifier(name)
}
