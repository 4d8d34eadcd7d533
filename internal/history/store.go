// Package history persists executed queries in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/dbview/internal/state"
)

// Entry is one recorded query.
type Entry struct {
	ID        string        `json:"id" yaml:"id"`
	Database  string        `json:"database" yaml:"database"`
	Query     string        `json:"query" yaml:"query"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
	Rows      int           `json:"rows" yaml:"rows"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store records query executions.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the history database at path and migrates it.
// Use ":memory:" for a throwaway store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One connection keeps ":memory:" stores coherent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("history store ready", slog.String("path", path))
	return s, nil
}

// DefaultPath returns the per-user history location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dbview", "history.db"), nil
}

// Record implements state.Recorder.
func (s *Store) Record(ctx context.Context, e state.Execution) error {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (id, database, query, started_at, elapsed_ms, row_count, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), e.Database, e.Query, e.Started.UTC(), e.Elapsed.Milliseconds(), e.Rows, msg)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, database, query, started_at, elapsed_ms, row_count, error
		 FROM query_history ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var elapsedMS int64
		if err := rows.Scan(&e.ID, &e.Database, &e.Query, &e.StartedAt, &elapsedMS, &e.Rows, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Clear deletes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM query_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the history database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ state.Recorder = (*Store)(nil)
