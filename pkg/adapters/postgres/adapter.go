// Package postgres provides the PostgreSQL backend for dbview.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/leapstack-labs/dbview/pkg/adapter"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Config describes a server connection. DSN wins over the discrete fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// Adapter is a PostgreSQL connection.
type Adapter struct {
	*adapter.BaseSQLAdapter
}

// Connect opens a connection to the configured server.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}
	name, err := databaseName(dsn)
	if err != nil {
		return nil, err
	}

	logger.Debug("connecting to postgres", slog.String("target", name.Secondary))
	base, err := adapter.Connect(ctx, "pgx", dsn, name, Catalog{}, logger)
	if err != nil {
		return nil, err
	}
	return &Adapter{BaseSQLAdapter: base}, nil
}

// FromDB wraps an opened pool, taking ownership of it.
func FromDB(ctx context.Context, db *sql.DB, name core.DatabaseName, logger *slog.Logger) (*Adapter, error) {
	base, err := adapter.FromDB(ctx, db, name, Catalog{}, logger)
	if err != nil {
		return nil, err
	}
	return &Adapter{BaseSQLAdapter: base}, nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// databaseName derives the display identity from a DSN. The secondary name
// never carries the password.
func databaseName(dsn string) (core.DatabaseName, error) {
	pc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return core.DatabaseName{}, core.NewConnectionError(err)
	}
	target := fmt.Sprintf("postgres://%s@%s:%d/%s", pc.User, pc.Host, pc.Port, pc.Database)
	if pc.User == "" {
		target = fmt.Sprintf("postgres://%s:%d/%s", pc.Host, pc.Port, pc.Database)
	}
	return core.DatabaseName{Primary: pc.Database, Secondary: target}, nil
}

var _ core.Database = (*Adapter)(nil)
