package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/internal/state"
	"github.com/leapstack-labs/dbview/pkg/core"
)

type openRequest struct {
	Path    string            `json:"path"`
	Memory  bool              `json:"memory"`
	DSN     string            `json:"dsn"`
	Type    string            `json:"type"`
	Options map[string]string `json:"options"`
}

type browseRequest struct {
	Table  string `json:"table"`
	Page   int64  `json:"page"`
	Action string `json:"action"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.signals(allTopics))
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := datastar.ReadSignals(r, &req); err != nil {
		writeError(w, core.NewInvalidArgumentError("invalid request body: %v", err))
		return
	}

	var task *resource.Task
	switch {
	case req.Memory:
		task = s.store.OpenMemory()
	case req.Path != "":
		task = s.store.OpenPath(req.Path)
	case req.DSN != "":
		task = s.store.OpenConfig(core.OpenConfig{Type: req.Type, DSN: req.DSN, Options: req.Options})
	default:
		writeError(w, core.NewInvalidArgumentError("one of path, memory or dsn is required"))
		return
	}

	snap, err := wait(r.Context(), s.store.Database(), task)
	if err != nil {
		return
	}
	if snap.State == resource.Error {
		writeError(w, snap.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.databaseView())
}

func (s *Server) handleClose(w http.ResponseWriter, _ *http.Request) {
	s.store.Close()
	writeJSON(w, http.StatusOK, s.databaseView())
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.store.Current(); !ok {
		writeError(w, state.ErrNoDatabase)
		return
	}
	s.respondTables(w, r, s.tables.Resource().Snapshot().Task)
}

func (s *Server) handleReloadTables(w http.ResponseWriter, r *http.Request) {
	task := s.tables.Reload()
	if task == nil {
		writeError(w, state.ErrNoDatabase)
		return
	}
	s.respondTables(w, r, task)
}

func (s *Server) respondTables(w http.ResponseWriter, r *http.Request, task *resource.Task) {
	snap, err := wait(r.Context(), s.tables.Resource(), task)
	if err != nil {
		return
	}
	if snap.State == resource.Error {
		writeError(w, snap.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.tablesView())
}

// handleRows reads a page without touching the shared browser.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	h, ok := s.store.Current()
	if !ok {
		writeError(w, state.ErrNoDatabase)
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	size, err := queryInt(r, "page_size", s.browser.PageSize())
	if err != nil {
		writeError(w, err)
		return
	}
	if size <= 0 {
		size = s.browser.PageSize()
	}

	p, err := state.FetchPage(r.Context(), h.Database(), chi.URLParam(r, "table"), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageView(resource.Loaded, p))
}

func (s *Server) handleBrowser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.browserView())
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	var req browseRequest
	if err := datastar.ReadSignals(r, &req); err != nil {
		writeError(w, core.NewInvalidArgumentError("invalid request body: %v", err))
		return
	}
	if _, ok := s.store.Current(); !ok {
		writeError(w, state.ErrNoDatabase)
		return
	}

	var task *resource.Task
	switch strings.ToLower(req.Action) {
	case "next":
		task = s.browser.NextPage()
	case "prev":
		task = s.browser.PrevPage()
	case "", "select":
		if req.Table == "" {
			writeError(w, core.NewInvalidArgumentError("table is required"))
			return
		}
		if req.Page < 0 {
			writeError(w, core.NewInvalidArgumentError("page must not be negative, got %d", req.Page))
			return
		}
		task = s.browser.Select(req.Table)
		if req.Page > 0 {
			task = s.browser.SetPage(req.Page)
		}
	default:
		writeError(w, core.NewInvalidArgumentError("unknown action %q", req.Action))
		return
	}

	snap, err := wait(r.Context(), s.browser.Resource(), task)
	if err != nil {
		return
	}
	if snap.State == resource.Error {
		writeError(w, snap.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.browserView())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := datastar.ReadSignals(r, &req); err != nil {
		writeError(w, core.NewInvalidArgumentError("invalid request body: %v", err))
		return
	}
	text := strings.TrimSpace(req.SQL)
	if text == "" {
		writeError(w, core.NewInvalidArgumentError("query cannot be empty"))
		return
	}

	snap, err := wait(r.Context(), s.exec.Resource(), s.exec.Execute(text))
	if err != nil {
		return
	}
	if snap.State == resource.Error {
		writeError(w, snap.Err)
		return
	}
	writeJSON(w, http.StatusOK, s.queryView())
}

// handleEvents is the long-lived SSE stream. It sends every signal on
// connect and then the signals of each changed topic.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sub := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(sub)

	sse := datastar.NewSSE(w, r)
	if err := s.patch(sse, allTopics); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C():
			if !ok {
				return
			}
			if err := s.patch(sse, sub.Drain()); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (s *Server) patch(sse *datastar.ServerSentEventGenerator, topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	body, err := json.Marshal(s.signals(topics))
	if err != nil {
		return err
	}
	return sse.PatchSignals(body)
}

// wait blocks until task settled and returns the resulting snapshot. A nil
// task returns the current snapshot. The error is only set when ctx ended
// first; the load keeps running in that case.
func wait[T any](ctx context.Context, r *resource.Resource[T], task *resource.Task) (resource.Snapshot[T], error) {
	if task != nil {
		if err := task.Wait(ctx); err != nil {
			return resource.Snapshot[T]{}, err
		}
	}
	return r.Snapshot(), nil
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.NewInvalidArgumentError("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrNoDatabase):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrQuery),
		errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrInvalidPath),
		errors.Is(err, core.ErrUnsupportedBackend):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrConnection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		resp.Kind = string(coreErr.Kind)
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
