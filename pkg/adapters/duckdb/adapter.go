// Package duckdb provides the DuckDB backend for dbview.
package duckdb

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/dbview/pkg/adapter"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Options tune how the database is opened.
type Options struct {
	ReadOnly bool
	// Params are raw session setup values, see Params.
	Params map[string]any
	Logger *slog.Logger
}

// Adapter is a DuckDB connection.
type Adapter struct {
	*adapter.BaseSQLAdapter
	path string
}

// FromPath opens an existing DuckDB database file.
func FromPath(ctx context.Context, path string, opts Options) (*Adapter, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, core.NewInvalidPathError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, core.NewInvalidPathError(path, nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, core.NewInvalidPathError(path, err)
	}

	dsn := abs
	if opts.ReadOnly {
		dsn += "?access_mode=read_only"
	}
	name := core.DatabaseName{Primary: filepath.Base(abs), Secondary: "duckdb://" + abs}
	a, err := open(ctx, dsn, name, opts)
	if err != nil {
		return nil, err
	}
	a.path = abs
	return a, nil
}

// InMemory opens a private, initially empty database.
func InMemory(ctx context.Context, opts Options) (*Adapter, error) {
	return open(ctx, "", core.DatabaseName{Primary: "Memory", Secondary: "duckdb::memory:"}, opts)
}

func open(ctx context.Context, dsn string, name core.DatabaseName, opts Options) (*Adapter, error) {
	params, err := parseParams(opts.Params)
	if err != nil {
		return nil, err
	}

	base, err := adapter.Connect(ctx, "duckdb", dsn, name, Catalog{}, opts.Logger)
	if err != nil {
		return nil, err
	}
	for _, stmt := range params.statements() {
		if err := base.Exec(ctx, stmt); err != nil {
			_ = base.Close()
			return nil, err
		}
	}
	return &Adapter{BaseSQLAdapter: base}, nil
}

// Path returns the absolute database file path, or "" for in-memory databases.
func (a *Adapter) Path() string {
	return a.path
}

var _ core.Database = (*Adapter)(nil)
