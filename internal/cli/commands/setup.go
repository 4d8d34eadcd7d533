package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/cli/config"
	"github.com/leapstack-labs/dbview/internal/cli/output"
	"github.com/leapstack-labs/dbview/internal/history"
	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/internal/state"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// ErrNoDatabaseConfigured is returned by commands that need a database when
// neither --database nor --dsn was given.
var ErrNoDatabaseConfigured = errors.New("no database configured\nHint: pass --database <file>, --database :memory: or --dsn")

var errHistoryUnavailable = errors.New("query history is unavailable (see --verbose for details)")

// errCancelled is returned when a load was abandoned before it settled.
var errCancelled = errors.New("operation cancelled")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.Store
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext and opens the configured
// database. The cleanup function closes it and must be called (typically
// via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutDatabase(cmd)
	if !cc.Cfg.HasDatabase() {
		return nil, nil, ErrNoDatabaseConfigured
	}
	if _, err := cc.Open(cmd.Context(), cc.Cfg.OpenConfig()); err != nil {
		cc.Store.Close()
		return nil, nil, err
	}
	return cc, cc.Store.Close, nil
}

// NewCommandContextWithoutDatabase creates a CommandContext with an empty
// store. Useful for commands that open databases themselves.
func NewCommandContextWithoutDatabase(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Store:    state.NewStore(logger, cfg.OpenConfig()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// Open opens cfg in the store and waits for the outcome.
func (cc *CommandContext) Open(ctx context.Context, cfg core.OpenConfig) (*adapters.Handle, error) {
	return await(ctx, cc.Store.Database(), cc.Store.OpenConfig(cfg))
}

// History opens the query history store. Failures are logged and yield a
// nil store so queries still run.
func (cc *CommandContext) History() *history.Store {
	path := cc.Cfg.HistoryDB
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			cc.Logger.Warn("query history disabled", slog.String("error", err.Error()))
			return nil
		}
		path = p
	}
	h, err := history.Open(path, cc.Logger)
	if err != nil {
		cc.Logger.Warn("query history disabled", slog.String("error", err.Error()))
		return nil
	}
	return h
}

// await waits for task and returns the value it produced in r.
func await[T any](ctx context.Context, r *resource.Resource[T], task *resource.Task) (T, error) {
	var zero T
	if err := task.Wait(ctx); err != nil {
		task.Release()
		return zero, err
	}
	return settled(r)
}

// awaitCurrent waits for whatever load r is running, if any.
func awaitCurrent[T any](ctx context.Context, r *resource.Resource[T]) (T, error) {
	if snap := r.Snapshot(); snap.State == resource.Loading {
		return await(ctx, r, snap.Task)
	}
	return settled(r)
}

func settled[T any](r *resource.Resource[T]) (T, error) {
	var zero T
	snap := r.Snapshot()
	switch snap.State {
	case resource.Loaded:
		return snap.Value, nil
	case resource.Error:
		return zero, snap.Err
	default:
		return zero, errCancelled
	}
}
