package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// DefaultPageSize is the number of rows per browser page.
const DefaultPageSize = 5

// Page is one loaded page of a table.
type Page struct {
	Table    string             `json:"table" yaml:"table"`
	Rows     []core.DatabaseRow `json:"rows" yaml:"rows"`
	Count    int64              `json:"count" yaml:"count"`
	Page     int64              `json:"page" yaml:"page"`
	PageSize int64              `json:"page_size" yaml:"page_size"`
}

// PageCount is the number of pages the table spans.
func (p Page) PageCount() int64 {
	return core.PageCount(p.Count, p.PageSize)
}

// Browser pages through one selected table of the open database.
type Browser struct {
	provider Provider
	res      *resource.Resource[Page]
	unsub    func()

	mu       sync.Mutex
	table    string
	page     int64
	pageSize int64
}

// NewBrowser attaches a browser to provider. pageSize <= 0 selects
// DefaultPageSize.
func NewBrowser(provider Provider, logger *slog.Logger, pageSize int64) *Browser {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	b := &Browser{
		provider: provider,
		pageSize: pageSize,
		res: resource.New(
			resource.WithLogger[Page](logger),
			resource.WithName[Page]("browser"),
		),
	}
	b.unsub = provider.Database().Subscribe(func(resource.Snapshot[*adapters.Handle]) {
		b.mu.Lock()
		b.table, b.page = "", 0
		b.mu.Unlock()
		b.res.SetIdle()
	})
	return b
}

// Resource returns the observable page.
func (b *Browser) Resource() *resource.Resource[Page] {
	return b.res
}

// Selection returns the selected table and page.
func (b *Browser) Selection() (table string, page int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.table, b.page
}

// PageSize returns the number of rows per page.
func (b *Browser) PageSize() int64 {
	return b.pageSize
}

// Select shows the first page of table.
func (b *Browser) Select(table string) *resource.Task {
	b.mu.Lock()
	b.table, b.page = table, 0
	b.mu.Unlock()
	return b.Reload()
}

// SetPage shows page n of the selected table. Negative pages clamp to 0.
func (b *Browser) SetPage(n int64) *resource.Task {
	b.mu.Lock()
	b.page = max(n, 0)
	b.mu.Unlock()
	return b.Reload()
}

// NextPage advances one page unless the last known page is shown. It
// returns nil when nothing changed.
func (b *Browser) NextPage() *resource.Task {
	b.mu.Lock()
	if last, ok := b.res.Value(); ok && last.Table == b.table && b.page+1 >= last.PageCount() {
		b.mu.Unlock()
		return nil
	}
	b.page++
	b.mu.Unlock()
	return b.Reload()
}

// PrevPage goes back one page. It returns nil on the first page.
func (b *Browser) PrevPage() *resource.Task {
	b.mu.Lock()
	if b.page == 0 {
		b.mu.Unlock()
		return nil
	}
	b.page--
	b.mu.Unlock()
	return b.Reload()
}

// Reload fetches the current selection. With no database or no table
// selected the browser goes idle and Reload returns nil.
func (b *Browser) Reload() *resource.Task {
	b.mu.Lock()
	table, page, size := b.table, b.page, b.pageSize
	b.mu.Unlock()

	h, ok := b.provider.Current()
	if !ok || table == "" {
		b.res.SetIdle()
		return nil
	}
	db := h.Database()
	return b.res.Load(func(ctx context.Context) (Page, error) {
		return FetchPage(ctx, db, table, page, size)
	})
}

// Close detaches from the provider.
func (b *Browser) Close() {
	b.unsub()
	b.res.SetIdle()
}

// FetchPage loads one page of table: rows and then the count, in one
// operation on the same serialized connection. No transaction spans the two
// reads.
func FetchPage(ctx context.Context, db core.Database, table string, page, size int64) (Page, error) {
	query := core.DatabaseTableQuery{Table: table}
	rows, err := db.QueryTableRows(ctx, query, size, page*size)
	if err != nil {
		return Page{}, err
	}
	count, err := db.QueryTableRowsCount(ctx, query)
	if err != nil {
		return Page{}, err
	}
	return Page{Table: table, Rows: rows, Count: count, Page: page, PageSize: size}, nil
}
