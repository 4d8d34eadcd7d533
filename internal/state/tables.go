package state

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Tables is the table list of the open database. It reloads whenever a
// database is loaded and goes idle otherwise.
type Tables struct {
	provider Provider
	res      *resource.Resource[[]core.DatabaseTable]
	unsub    func()
}

// NewTables attaches a table list to provider.
func NewTables(provider Provider, logger *slog.Logger) *Tables {
	t := &Tables{
		provider: provider,
		res: resource.New(
			resource.WithLogger[[]core.DatabaseTable](logger),
			resource.WithName[[]core.DatabaseTable]("tables"),
		),
	}
	t.unsub = provider.Database().Subscribe(func(snap resource.Snapshot[*adapters.Handle]) {
		if snap.State == resource.Loaded {
			t.load(snap.Value)
			return
		}
		t.res.SetIdle()
	})
	if h, ok := provider.Current(); ok {
		t.load(h)
	}
	return t
}

// Resource returns the observable table list.
func (t *Tables) Resource() *resource.Resource[[]core.DatabaseTable] {
	return t.res
}

// Reload refreshes the list, e.g. after the schema changed. It returns nil
// when no database is open.
func (t *Tables) Reload() *resource.Task {
	h, ok := t.provider.Current()
	if !ok {
		t.res.SetIdle()
		return nil
	}
	return t.load(h)
}

// Close detaches from the provider.
func (t *Tables) Close() {
	t.unsub()
	t.res.SetIdle()
}

func (t *Tables) load(h *adapters.Handle) *resource.Task {
	db := h.Database()
	return t.res.Load(func(ctx context.Context) ([]core.DatabaseTable, error) {
		return db.DatabaseTables(ctx)
	})
}
