package state

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// ErrNoDatabase is reported when an operation needs an open database.
var ErrNoDatabase = errors.New("no database open")

// Result is the outcome of one executed query.
type Result struct {
	Query   string             `json:"query" yaml:"query"`
	Rows    []core.DatabaseRow `json:"rows" yaml:"rows"`
	Elapsed time.Duration      `json:"elapsed" yaml:"elapsed"`
}

// Execution describes a finished query for a Recorder.
type Execution struct {
	Database string
	Query    string
	Started  time.Time
	Elapsed  time.Duration
	Rows     int
	Err      error
}

// Recorder persists executed queries.
type Recorder interface {
	Record(ctx context.Context, e Execution) error
}

// Executor runs free-form queries against the open database.
type Executor struct {
	provider Provider
	logger   *slog.Logger
	recorder Recorder
	res      *resource.Resource[Result]
	unsub    func()
}

// NewExecutor attaches an executor to provider. recorder may be nil.
func NewExecutor(provider Provider, logger *slog.Logger, recorder Recorder) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Executor{
		provider: provider,
		logger:   logger,
		recorder: recorder,
		res: resource.New(
			resource.WithLogger[Result](logger),
			resource.WithName[Result]("executor"),
		),
	}
	e.unsub = provider.Database().Subscribe(func(resource.Snapshot[*adapters.Handle]) {
		e.res.SetIdle()
	})
	return e
}

// Resource returns the observable result.
func (e *Executor) Resource() *resource.Resource[Result] {
	return e.res
}

// Execute runs text in the background on the database open when the load
// starts. Without an open database the result fails with ErrNoDatabase.
func (e *Executor) Execute(text string) *resource.Task {
	return e.res.Load(func(ctx context.Context) (Result, error) {
		h, ok := e.provider.Current()
		if !ok {
			return Result{}, ErrNoDatabase
		}
		start := time.Now()
		rows, err := h.Database().Query(ctx, text)
		elapsed := time.Since(start)
		e.record(ctx, Execution{
			Database: h.Name().String(),
			Query:    text,
			Started:  start,
			Elapsed:  elapsed,
			Rows:     len(rows),
			Err:      err,
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Query: text, Rows: rows, Elapsed: elapsed}, nil
	})
}

// Close detaches from the provider.
func (e *Executor) Close() {
	e.unsub()
	e.res.SetIdle()
}

func (e *Executor) record(ctx context.Context, ex Execution) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), ex); err != nil {
		e.logger.Warn("failed to record query", slog.String("error", err.Error()))
	}
}
