// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/cli/output"
	"github.com/leapstack-labs/dbview/pkg/adapters/sqlite"
)

// UsersSchema creates the fixture tables used across CLI tests.
var UsersSchema = []string{
	`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
	`CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT)`,
	`INSERT INTO users (id, name) VALUES (1, 'alice'), (2, 'bob'), (3, NULL)`,
	`INSERT INTO posts (id, user_id, title) VALUES (1, 1, 'hello')`,
}

// SetupTestDatabase creates a SQLite database file with the users fixture
// and returns its path.
func SetupTestDatabase(t *testing.T, statements ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app.db")
	if err := sqlite.CreateFile(path); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	ctx := context.Background()
	db, err := sqlite.FromPath(ctx, path, sqlite.Options{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if len(statements) == 0 {
		statements = UsersSchema
	}
	for _, stmt := range statements {
		if err := db.Exec(ctx, stmt); err != nil {
			t.Fatalf("failed to run %q: %v", stmt, err)
		}
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured stdout output.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured stderr output.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// CommandResult holds what a command run printed.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
}

// RunCommand executes cmd with args, feeding stdin, and captures output.
func RunCommand(t *testing.T, cmd *cobra.Command, stdin string, args ...string) CommandResult {
	t.Helper()
	return RunCommandContext(t.Context(), cmd, stdin, args...)
}

// RunCommandContext is RunCommand with an explicit context, e.g. one that
// carries a config.
func RunCommandContext(ctx context.Context, cmd *cobra.Command, stdin string, args ...string) CommandResult {
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return CommandResult{Stdout: out.String(), Stderr: errOut.String(), Err: err}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
