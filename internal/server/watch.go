package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/pkg/adapters"
)

// watchDebounce collapses bursts of writes into one reload.
const watchDebounce = 100 * time.Millisecond

// watchDatabase reloads the table list and the browsed page whenever the
// open database file, or its journal, changes on disk. It follows the store
// as databases are opened and closed.
func (s *Server) watchDatabase(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// paths holds the latest path only; publish replaces a pending one.
	paths := make(chan string, 1)
	var publishMu sync.Mutex
	publish := func(h *adapters.Handle, ok bool) {
		path := ""
		if ok {
			path = h.Path()
		}
		publishMu.Lock()
		defer publishMu.Unlock()
		select {
		case <-paths:
		default:
		}
		paths <- path
	}
	unsub := s.store.Database().Subscribe(func(snap resource.Snapshot[*adapters.Handle]) {
		publish(snap.Value, snap.State == resource.Loaded)
	})
	defer unsub()
	publish(s.store.Current())

	var (
		current  string
		watchDir string
		debounce *time.Timer
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-paths:
			if watchDir != "" {
				_ = watcher.Remove(watchDir)
				watchDir = ""
			}
			current = path
			if path == "" {
				continue
			}
			dir := filepath.Dir(path)
			if err := watcher.Add(dir); err != nil {
				s.logger.Error("failed to watch database", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			watchDir = dir
			s.logger.Debug("watching database", slog.String("path", path))

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if current == "" || !belongsTo(event.Name, current) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(watchDebounce, func() {
				s.logger.Debug("database changed on disk, reloading", slog.String("file", name))
				s.tables.Reload()
				s.browser.Reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// belongsTo reports whether file is db or one of its journals (-wal, -shm,
// -journal).
func belongsTo(file, db string) bool {
	file, db = filepath.Clean(file), filepath.Clean(db)
	return file == db || strings.HasPrefix(file, db+"-")
}
