package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dbview/pkg/core"
)

// BaseSQLAdapter implements core.Database over a single physical connection.
// Embed it in concrete adapters. Every operation holds the connection lock
// for its whole duration, so concurrent callers are serialized and each
// observes a consistent connection.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Logger *slog.Logger

	conn    *sql.Conn
	name    core.DatabaseName
	catalog Catalog
	sem     chan struct{}
}

// Connect opens driverName/dsn and pins one connection from the pool.
func Connect(ctx context.Context, driverName, dsn string, name core.DatabaseName, catalog Catalog, logger *slog.Logger) (*BaseSQLAdapter, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, core.NewConnectionError(err)
	}
	base, err := FromDB(ctx, db, name, catalog, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return base, nil
}

// FromDB pins one connection of an already opened pool. The adapter takes
// ownership of db and closes it on Close.
func FromDB(ctx context.Context, db *sql.DB, name core.DatabaseName, catalog Catalog, logger *slog.Logger) (*BaseSQLAdapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, core.NewConnectionError(err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, core.NewConnectionError(err)
	}

	logger.Debug("connection established", slog.String("database", name.String()))
	return &BaseSQLAdapter{
		DB:      db,
		Logger:  logger,
		conn:    conn,
		name:    name,
		catalog: catalog,
		sem:     make(chan struct{}, 1),
	}, nil
}

// Name returns the display identity of the connection.
func (b *BaseSQLAdapter) Name() core.DatabaseName {
	return b.name
}

// lock acquires exclusive use of the connection or gives up when ctx ends.
func (b *BaseSQLAdapter) lock(ctx context.Context) (func(), error) {
	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the connection and the underlying pool.
func (b *BaseSQLAdapter) Close() error {
	b.sem <- struct{}{}
	defer func() { <-b.sem }()

	if b.conn == nil {
		return nil
	}
	b.Logger.Debug("closing database connection", slog.String("database", b.name.String()))
	connErr := b.conn.Close()
	b.conn = nil
	return errors.Join(connErr, b.DB.Close())
}

// Exec runs a statement that returns no rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, text string, args ...any) (err error) {
	defer func() { err = withOp("exec", err) }()

	unlock, err := b.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if b.conn == nil {
		return core.NewConnectionError(sql.ErrConnDone)
	}
	if _, err := b.conn.ExecContext(ctx, text, args...); err != nil {
		return classify(err)
	}
	return nil
}

// DatabaseTables lists user tables ordered by name.
func (b *BaseSQLAdapter) DatabaseTables(ctx context.Context) (_ []core.DatabaseTable, err error) {
	defer func() { err = withOp("tables", err) }()

	unlock, err := b.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if b.conn == nil {
		return nil, core.NewConnectionError(sql.ErrConnDone)
	}
	rows, err := b.conn.QueryContext(ctx, b.catalog.TablesSQL())
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]core.DatabaseTable, 0)
	for rows.Next() {
		var name string
		var ddl sql.NullString
		if err := rows.Scan(&name, &ddl); err != nil {
			return nil, core.NewQueryError(fmt.Errorf("malformed catalog row: %w", err))
		}
		tables = append(tables, core.DatabaseTable{Name: name, SQL: ddl.String})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return tables, nil
}

// Query runs arbitrary SQL and decodes every result row.
func (b *BaseSQLAdapter) Query(ctx context.Context, text string) (_ []core.DatabaseRow, err error) {
	defer func() { err = withOp("query", err) }()

	unlock, err := b.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return b.queryRows(ctx, text)
}

// QueryTableRows returns one page of a table in engine order.
func (b *BaseSQLAdapter) QueryTableRows(ctx context.Context, query core.DatabaseTableQuery, limit, offset int64) (_ []core.DatabaseRow, err error) {
	defer func() { err = withOp("rows", err) }()

	if limit < 0 {
		return nil, core.NewInvalidArgumentError("limit must not be negative, got %d", limit)
	}
	if offset < 0 {
		return nil, core.NewInvalidArgumentError("offset must not be negative, got %d", offset)
	}

	unlock, err := b.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := b.requireTable(ctx, query.Table); err != nil {
		return nil, err
	}
	text := fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d",
		b.catalog.QuoteIdentifier(query.Table), limit, offset)
	return b.queryRows(ctx, text)
}

// QueryTableRowsCount returns the total number of rows in a table.
func (b *BaseSQLAdapter) QueryTableRowsCount(ctx context.Context, query core.DatabaseTableQuery) (_ int64, err error) {
	defer func() { err = withOp("count", err) }()

	unlock, err := b.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if err := b.requireTable(ctx, query.Table); err != nil {
		return 0, err
	}
	var count int64
	text := fmt.Sprintf("SELECT COUNT(*) FROM %s", b.catalog.QuoteIdentifier(query.Table))
	if err := b.conn.QueryRowContext(ctx, text).Scan(&count); err != nil {
		return 0, classify(err)
	}
	return count, nil
}

// requireTable must be called with the lock held.
func (b *BaseSQLAdapter) requireTable(ctx context.Context, table string) error {
	if b.conn == nil {
		return core.NewConnectionError(sql.ErrConnDone)
	}
	var one any
	err := b.conn.QueryRowContext(ctx, b.catalog.TableExistsSQL(), table).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.NewNotFoundError(table)
	case err != nil:
		return classify(err)
	default:
		return nil
	}
}

// queryRows must be called with the lock held.
func (b *BaseSQLAdapter) queryRows(ctx context.Context, text string, args ...any) ([]core.DatabaseRow, error) {
	if b.conn == nil {
		return nil, core.NewConnectionError(sql.ErrConnDone)
	}

	start := time.Now()
	rows, err := b.conn.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, classify(err)
	}

	dbTypes := b.columnTypes(rows, len(names))
	values := make([]any, len(names))
	targets := make([]any, len(names))
	for i := range values {
		targets[i] = &values[i]
	}

	result := make([]core.DatabaseRow, 0)
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, classify(err)
		}
		row := core.DatabaseRow{Columns: make([]core.DatabaseColumn, len(names))}
		for i, name := range names {
			row.Columns[i] = core.DatabaseColumn{Name: name, Value: b.decode(dbTypes[i], values[i])}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	b.Logger.Debug("query executed",
		slog.String("query", text),
		slog.Int("rows", len(result)),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// columnTypes returns the declared type of every column. Types are left
// blank when the catalog does not decode by column.
func (b *BaseSQLAdapter) columnTypes(rows *sql.Rows, n int) []string {
	if _, ok := b.catalog.(ColumnDecoder); !ok {
		return make([]string, n)
	}
	types := make([]string, n)
	cts, err := rows.ColumnTypes()
	if err != nil {
		return types
	}
	for i, ct := range cts {
		if i < n {
			types[i] = ct.DatabaseTypeName()
		}
	}
	return types
}

func (b *BaseSQLAdapter) decode(dbType string, v any) string {
	if cd, ok := b.catalog.(ColumnDecoder); ok {
		if s, ok := cd.DecodeColumn(dbType, v); ok {
			return s
		}
	}
	return Decode(v)
}

// withOp tags a core error with the operation that produced it.
func withOp(op string, err error) error {
	var e *core.Error
	if errors.As(err, &e) && e.Op == "" {
		e.Op = op
	}
	return err
}

// classify maps a driver error onto the core error kinds. Context errors
// pass through untouched so callers can tell cancellation apart.
func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, driver.ErrBadConn):
		return core.NewConnectionError(err)
	default:
		return core.NewQueryError(err)
	}
}
