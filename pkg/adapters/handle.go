// Package adapters assembles the concrete dbview backends into a single
// closed set. A Handle holds exactly one open backend; callers dispatch on
// its Kind instead of type assertions.
package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/dbview/pkg/adapters/duckdb"
	"github.com/leapstack-labs/dbview/pkg/adapters/postgres"
	"github.com/leapstack-labs/dbview/pkg/adapters/sqlite"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Kind names a backend.
type Kind string

// Supported backends.
const (
	KindSQLite   Kind = "sqlite"
	KindDuckDB   Kind = "duckdb"
	KindPostgres Kind = "postgres"
)

// Kinds returns all backend kinds, sorted.
func Kinds() []string {
	kinds := []string{string(KindSQLite), string(KindDuckDB), string(KindPostgres)}
	sort.Strings(kinds)
	return kinds
}

// Handle is an open database of one of the supported kinds. Exactly the
// field matching Kind is set.
type Handle struct {
	Kind     Kind
	SQLite   *sqlite.Adapter
	DuckDB   *duckdb.Adapter
	Postgres *postgres.Adapter
}

// FromSQLite wraps an open SQLite adapter.
func FromSQLite(a *sqlite.Adapter) *Handle { return &Handle{Kind: KindSQLite, SQLite: a} }

// FromDuckDB wraps an open DuckDB adapter.
func FromDuckDB(a *duckdb.Adapter) *Handle { return &Handle{Kind: KindDuckDB, DuckDB: a} }

// FromPostgres wraps an open PostgreSQL adapter.
func FromPostgres(a *postgres.Adapter) *Handle { return &Handle{Kind: KindPostgres, Postgres: a} }

// Database returns the capability view of the handle.
func (h *Handle) Database() core.Database {
	switch h.Kind {
	case KindSQLite:
		return h.SQLite
	case KindDuckDB:
		return h.DuckDB
	case KindPostgres:
		return h.Postgres
	default:
		panic(fmt.Sprintf("adapters: handle of unknown kind %q", h.Kind))
	}
}

// Name returns the display identity of the open database.
func (h *Handle) Name() core.DatabaseName {
	return h.Database().Name()
}

// Path returns the backing file, or "" for in-memory and server databases.
func (h *Handle) Path() string {
	switch h.Kind {
	case KindSQLite:
		return h.SQLite.Path()
	case KindDuckDB:
		return h.DuckDB.Path()
	default:
		return ""
	}
}

// Close closes the underlying connection.
func (h *Handle) Close() error {
	return h.Database().Close()
}

// Open builds a handle from configuration.
func Open(ctx context.Context, cfg core.OpenConfig, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kind := InferKind(cfg)
	logger = logger.With(slog.String("backend", string(kind)))

	switch kind {
	case KindSQLite:
		opts, err := sqliteOptions(cfg, logger)
		if err != nil {
			return nil, err
		}
		var a *sqlite.Adapter
		if cfg.Memory {
			a, err = sqlite.InMemory(ctx, opts)
		} else {
			a, err = sqlite.FromPath(ctx, cfg.Path, opts)
		}
		if err != nil {
			return nil, err
		}
		return FromSQLite(a), nil

	case KindDuckDB:
		readOnly, err := boolOption(cfg, "read_only")
		if err != nil {
			return nil, err
		}
		opts := duckdb.Options{ReadOnly: readOnly, Params: cfg.Params, Logger: logger}
		var a *duckdb.Adapter
		if cfg.Memory {
			a, err = duckdb.InMemory(ctx, opts)
		} else {
			a, err = duckdb.FromPath(ctx, cfg.Path, opts)
		}
		if err != nil {
			return nil, err
		}
		return FromDuckDB(a), nil

	case KindPostgres:
		if cfg.Memory {
			return nil, core.NewUnsupportedBackendError(string(kind), "in-memory databases")
		}
		pgCfg, err := postgresConfig(cfg)
		if err != nil {
			return nil, err
		}
		a, err := postgres.Connect(ctx, pgCfg, logger)
		if err != nil {
			return nil, err
		}
		return FromPostgres(a), nil

	default:
		return nil, &UnknownBackendError{Type: cfg.Type, Available: Kinds()}
	}
}

// CreateFile creates an empty database file for kind.
func CreateFile(kind Kind, path string) error {
	switch kind {
	case KindSQLite:
		return sqlite.CreateFile(path)
	default:
		return core.NewUnsupportedBackendError(string(kind), "creating databases")
	}
}

// InferKind resolves the backend kind. An explicit type wins; otherwise a
// DSN means postgres and a .duckdb/.ddb file means duckdb.
func InferKind(cfg core.OpenConfig) Kind {
	if cfg.Type != "" {
		return Kind(strings.ToLower(cfg.Type))
	}
	if cfg.DSN != "" {
		return KindPostgres
	}
	switch strings.ToLower(filepath.Ext(cfg.Path)) {
	case ".duckdb", ".ddb":
		return KindDuckDB
	default:
		return KindSQLite
	}
}

func sqliteOptions(cfg core.OpenConfig, logger *slog.Logger) (sqlite.Options, error) {
	opts := sqlite.Options{Driver: cfg.Option("driver", sqlite.DriverModernc), Logger: logger}

	if raw := cfg.Option("busy_timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return opts, core.NewInvalidArgumentError("invalid busy_timeout %q: %v", raw, err)
		}
		opts.BusyTimeout = d
	}
	readOnly, err := boolOption(cfg, "read_only")
	if err != nil {
		return opts, err
	}
	opts.ReadOnly = readOnly
	return opts, nil
}

func postgresConfig(cfg core.OpenConfig) (postgres.Config, error) {
	pg := postgres.Config{
		DSN:      cfg.DSN,
		Host:     cfg.Option("host", ""),
		Database: cfg.Option("dbname", ""),
		User:     cfg.Option("user", ""),
		Password: cfg.Option("password", ""),
		SSLMode:  cfg.Option("sslmode", ""),
	}
	if raw := cfg.Option("port", ""); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return pg, core.NewInvalidArgumentError("invalid port %q", raw)
		}
		pg.Port = port
	}
	if pg.DSN == "" && pg.Database == "" {
		return pg, core.NewInvalidArgumentError("postgres needs a dsn or a dbname option")
	}
	return pg, nil
}

func boolOption(cfg core.OpenConfig, name string) (bool, error) {
	raw := cfg.Option(name, "")
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, core.NewInvalidArgumentError("invalid %s %q", name, raw)
	}
	return v, nil
}
