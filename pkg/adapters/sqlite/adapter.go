// Package sqlite provides the SQLite backend for dbview.
//
// Two database/sql drivers are supported: the pure Go modernc.org/sqlite
// (driver name "sqlite", the default) and the cgo based
// github.com/mattn/go-sqlite3 (driver name "sqlite3").
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	_ "modernc.org/sqlite"          // sqlite driver

	"github.com/leapstack-labs/dbview/pkg/adapter"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Driver names accepted in Options.Driver.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// MemoryName is the primary display name of in-memory databases.
const MemoryName = "Memory"

// Options tune how the database file is opened.
type Options struct {
	// Driver is DriverModernc (default) or DriverMattn.
	Driver string
	// BusyTimeout makes the connection wait on locks held by other processes.
	BusyTimeout time.Duration
	// ReadOnly rejects writes on the connection.
	ReadOnly bool
	Logger   *slog.Logger
}

// Adapter is a SQLite connection.
type Adapter struct {
	*adapter.BaseSQLAdapter
	path string
}

// FromPath opens an existing database file. It never creates one.
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

	driverName, err := opts.driver()
	if err != nil {
		return nil, err
	}
	name := core.DatabaseName{
		Primary:   filepath.Base(abs),
		Secondary: "sqlite://" + abs,
	}
	base, err := adapter.Connect(ctx, driverName, buildDSN(driverName, abs, opts), name, Catalog{}, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Adapter{BaseSQLAdapter: base, path: abs}, nil
}

// InMemory opens a private, initially empty database.
func InMemory(ctx context.Context, opts Options) (*Adapter, error) {
	driverName, err := opts.driver()
	if err != nil {
		return nil, err
	}
	name := core.DatabaseName{
		Primary:   MemoryName,
		Secondary: "sqlite::memory:",
	}
	base, err := adapter.Connect(ctx, driverName, ":memory:", name, Catalog{}, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Adapter{BaseSQLAdapter: base}, nil
}

// CreateFile creates an empty database file at path. It fails if the path
// already exists. SQLite treats an empty file as a valid empty database.
func CreateFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &core.Error{
			Kind:    core.KindInvalidPath,
			Message: fmt.Sprintf("cannot create database '%s': %v", path, err),
			Err:     err,
		}
	}
	return f.Close()
}

// Path returns the absolute database file path, or "" for in-memory databases.
func (a *Adapter) Path() string {
	return a.path
}

func (o Options) driver() (string, error) {
	switch o.Driver {
	case "", DriverModernc:
		return DriverModernc, nil
	case DriverMattn:
		return DriverMattn, nil
	default:
		return "", core.NewInvalidArgumentError("unknown sqlite driver %q (want %q or %q)", o.Driver, DriverModernc, DriverMattn)
	}
}

// buildDSN renders the options in the parameter syntax of each driver.
func buildDSN(driverName, path string, opts Options) string {
	var params []string
	ms := strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10)

	switch driverName {
	case DriverMattn:
		if opts.BusyTimeout > 0 {
			params = append(params, "_busy_timeout="+ms)
		}
		if opts.ReadOnly {
			params = append(params, "_query_only=1")
		}
	default:
		if opts.BusyTimeout > 0 {
			params = append(params, fmt.Sprintf("_pragma=busy_timeout(%s)", ms))
		}
		if opts.ReadOnly {
			params = append(params, "_pragma=query_only(1)")
		}
	}

	if len(params) == 0 {
		return path
	}
	return path + "?" + strings.Join(params, "&")
}

var _ core.Database = (*Adapter)(nil)
