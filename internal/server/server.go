// Package server exposes the application state over HTTP: JSON endpoints to
// drive it and a server-sent-events stream that pushes every change.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/internal/server/notifier"
	"github.com/leapstack-labs/dbview/internal/state"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Topics broadcast through the notifier, one per state resource.
const (
	TopicDatabase = "database"
	TopicTables   = "tables"
	TopicBrowser  = "browser"
	TopicQuery    = "query"
)

// Config holds configuration for the server.
type Config struct {
	Store    *state.Store
	Addr     string
	Watch    bool
	PageSize int64
	Recorder state.Recorder
	Logger   *slog.Logger
}

// Server serves one store.
type Server struct {
	store    *state.Store
	tables   *state.Tables
	browser  *state.Browser
	exec     *state.Executor
	notifier *notifier.Notifier
	addr     string
	watch    bool
	logger   *slog.Logger
	unsubs   []func()
}

// New creates a server and attaches its views to cfg.Store.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		store:    cfg.Store,
		tables:   state.NewTables(cfg.Store, logger),
		browser:  state.NewBrowser(cfg.Store, logger, cfg.PageSize),
		exec:     state.NewExecutor(cfg.Store, logger, cfg.Recorder),
		notifier: notifier.New(),
		addr:     cfg.Addr,
		watch:    cfg.Watch,
		logger:   logger,
	}
	s.unsubs = []func(){
		s.store.Database().Subscribe(func(resource.Snapshot[*adapters.Handle]) { s.notifier.Broadcast(TopicDatabase) }),
		s.tables.Resource().Subscribe(func(resource.Snapshot[[]core.DatabaseTable]) { s.notifier.Broadcast(TopicTables) }),
		s.browser.Resource().Subscribe(func(resource.Snapshot[state.Page]) { s.notifier.Broadcast(TopicBrowser) }),
		s.exec.Resource().Subscribe(func(resource.Snapshot[state.Result]) { s.notifier.Broadcast(TopicQuery) }),
	}
	return s
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/open", s.handleOpen)
		r.Post("/close", s.handleClose)
		r.Get("/tables", s.handleTables)
		r.Post("/tables/reload", s.handleReloadTables)
		r.Get("/tables/{table}/rows", s.handleRows)
		r.Get("/browser", s.handleBrowser)
		r.Post("/browser", s.handleBrowse)
		r.Post("/query", s.handleQuery)
		r.Get("/events", s.handleEvents)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchDatabase(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Close detaches the server's views from the store.
func (s *Server) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.exec.Close()
	s.browser.Close()
	s.tables.Close()
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
