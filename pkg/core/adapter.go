package core

import (
	"context"
)

// Database defines the capability contract every relational backend must satisfy.
// All methods may block on I/O and must honour ctx cancellation while waiting.
type Database interface {
	// Name returns the display identity of the database. It never changes after open.
	Name() DatabaseName

	// DatabaseTables lists user tables ordered by name, excluding engine-internal tables.
	DatabaseTables(ctx context.Context) ([]DatabaseTable, error)

	// Query executes arbitrary query text verbatim and decodes every cell.
	Query(ctx context.Context, text string) ([]DatabaseRow, error)

	// QueryTableRows returns at most limit rows of the table starting at offset,
	// in the backend's natural row order.
	QueryTableRows(ctx context.Context, query DatabaseTableQuery, limit, offset int64) ([]DatabaseRow, error)

	// QueryTableRowsCount returns the total row count of the table.
	QueryTableRowsCount(ctx context.Context, query DatabaseTableQuery) (int64, error)

	// Close releases the physical connection.
	Close() error
}

// OpenConfig holds configuration for opening a backend.
type OpenConfig struct {
	// Type selects the backend kind: sqlite, duckdb or postgres.
	Type string
	// Path is the database file for file based engines.
	Path string
	// DSN is the connection string for server based engines.
	DSN string
	// Memory opens a private in-memory database instead of Path.
	Memory bool
	// Options are flat backend specific settings (e.g. driver, busy_timeout).
	Options map[string]string
	// Params are structured backend specific settings, decoded by the backend.
	Params map[string]any
}

// Option returns the named option or def when unset.
func (c OpenConfig) Option(name, def string) string {
	if v, ok := c.Options[name]; ok && v != "" {
		return v
	}
	return def
}
