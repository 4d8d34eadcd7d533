// Package state holds the application state shared by the CLI, the REPL and
// the HTTP server: the open database and the views derived from it.
//
// The Store owns the open database as a resource. Tables, Browser and
// Executor subscribe to it and reset or reload themselves whenever the open
// database changes.
package state

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Provider gives access to the open database.
type Provider interface {
	// Database returns the resource holding the open database.
	Database() *resource.Resource[*adapters.Handle]
	// Current returns the open database if one is loaded.
	Current() (*adapters.Handle, bool)
}

// Picker asks the user for a database path. ok is false when the user
// cancelled.
type Picker func(ctx context.Context) (path string, ok bool, err error)

// Store owns the open database.
type Store struct {
	logger   *slog.Logger
	defaults core.OpenConfig
	db       *resource.Resource[*adapters.Handle]
}

// NewStore creates an empty store. defaults supplies backend options (type,
// driver, params) applied to every open request.
func NewStore(logger *slog.Logger, defaults core.OpenConfig) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{logger: logger, defaults: defaults}
	s.db = resource.New(
		resource.WithLogger[*adapters.Handle](logger),
		resource.WithName[*adapters.Handle]("database"),
		resource.WithRelease(s.closeHandle),
	)
	return s
}

// Database implements Provider.
func (s *Store) Database() *resource.Resource[*adapters.Handle] {
	return s.db
}

// Current implements Provider.
func (s *Store) Current() (*adapters.Handle, bool) {
	return s.db.Value()
}

// OpenPath opens the database file at path.
func (s *Store) OpenPath(path string) *resource.Task {
	cfg := s.defaults
	cfg.Path = path
	cfg.DSN = ""
	cfg.Memory = false
	return s.OpenConfig(cfg)
}

// OpenMemory opens a private in-memory database.
func (s *Store) OpenMemory() *resource.Task {
	cfg := s.defaults
	cfg.Path = ""
	cfg.DSN = ""
	cfg.Memory = true
	return s.OpenConfig(cfg)
}

// OpenConfig opens the database described by cfg.
func (s *Store) OpenConfig(cfg core.OpenConfig) *resource.Task {
	s.logger.Info("opening database",
		slog.String("type", string(adapters.InferKind(cfg))),
		slog.String("path", cfg.Path),
		slog.Bool("memory", cfg.Memory))
	return s.db.Load(func(ctx context.Context) (*adapters.Handle, error) {
		return adapters.Open(ctx, cfg, s.logger)
	})
}

// OpenPicked opens the file chosen by pick. Cancelling the pick leaves the
// store idle.
func (s *Store) OpenPicked(pick Picker) *resource.Task {
	return s.db.MaybeLoad(func(ctx context.Context) (*adapters.Handle, bool, error) {
		path, ok, err := pick(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		cfg := s.defaults
		cfg.Path, cfg.DSN, cfg.Memory = path, "", false
		h, err := adapters.Open(ctx, cfg, s.logger)
		return h, err == nil, err
	})
}

// NewDatabase creates an empty database file at the picked path and opens it.
func (s *Store) NewDatabase(pick Picker) *resource.Task {
	return s.db.MaybeLoad(func(ctx context.Context) (*adapters.Handle, bool, error) {
		path, ok, err := pick(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		cfg := s.defaults
		cfg.Path, cfg.DSN, cfg.Memory = path, "", false
		if err := adapters.CreateFile(adapters.InferKind(cfg), path); err != nil {
			return nil, false, err
		}
		s.logger.Info("created database", slog.String("path", path))
		h, err := adapters.Open(ctx, cfg, s.logger)
		return h, err == nil, err
	})
}

// Close closes the open database and abandons any pending open.
func (s *Store) Close() {
	s.db.SetIdle()
}

func (s *Store) closeHandle(h *adapters.Handle) {
	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		s.logger.Warn("failed to close database",
			slog.String("database", h.Name().String()),
			slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("closed database", slog.String("database", h.Name().String()))
}

var _ Provider = (*Store)(nil)
