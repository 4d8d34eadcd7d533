package postgres

import "github.com/leapstack-labs/dbview/pkg/adapter"

// Catalog introspects information_schema for the current schema. PostgreSQL
// keeps no DDL text, so the schema statement is synthesized from columns.
type Catalog struct{}

func (Catalog) TablesSQL() string {
	return `SELECT t.table_name, ` +
		`'CREATE TABLE ' || quote_ident(t.table_name) || ' (' || ` +
		`COALESCE(string_agg(quote_ident(c.column_name) || ' ' || c.data_type, ', ' ORDER BY c.ordinal_position), '') || ')' ` +
		`FROM information_schema.tables t ` +
		`LEFT JOIN information_schema.columns c ` +
		`ON c.table_schema = t.table_schema AND c.table_name = t.table_name ` +
		`WHERE t.table_schema = current_schema() AND t.table_type = 'BASE TABLE' ` +
		`AND t.table_name NOT LIKE 'pg\_%' ` +
		`GROUP BY t.table_name ORDER BY t.table_name`
}

func (Catalog) TableExistsSQL() string {
	return `SELECT 1 FROM information_schema.tables ` +
		`WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' AND table_name = $1`
}

func (Catalog) QuoteIdentifier(name string) string {
	return adapter.QuoteIdentifier(name)
}
