package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbview/internal/cli/config"
	"github.com/leapstack-labs/dbview/internal/cli/testutil"
	"github.com/leapstack-labs/dbview/internal/history"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// testConfig returns a config for database with history kept in a temp dir.
func testConfig(t *testing.T, database string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database:    database,
		Output:      config.DefaultOutput,
		PageSize:    2,
		HistoryDB:   filepath.Join(dir, "history.db"),
		HistoryFile: filepath.Join(dir, "repl_history"),
	}
}

func run(t *testing.T, cfg *config.Config, cmd *cobra.Command, stdin string, args ...string) testutil.CommandResult {
	t.Helper()
	return testutil.RunCommandContext(config.WithConfig(t.Context(), cfg), cmd, stdin, args...)
}

func TestCommandDefinitions(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewTablesCommand(), "tables", []string{"sql"}},
		{NewQueryCommand(), "query [SQL]", []string{"input", "no-history", "history-db"}},
		{NewBrowseCommand(), "browse <table>", []string{"page", "page-size"}},
		{NewREPLCommand(), "repl", []string{"no-history", "history-db", "history-file", "page-size"}},
		{NewServeCommand(), "serve", []string{"addr", "watch", "page-size", "history-db", "no-history"}},
		{NewHistoryCommand(), "history", []string{"limit", "clear", "history-db"}},
		{NewNewCommand(), "new <path>", nil},
		{NewInfoCommand(), "info", nil},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNoDatabaseConfigured(t *testing.T) {
	cfg := testConfig(t, "")
	tests := []struct {
		name  string
		cmd   *cobra.Command
		stdin string
		args  []string
	}{
		{"tables", NewTablesCommand(), "", nil},
		{"query", NewQueryCommand(), "", []string{"SELECT 1"}},
		{"browse", NewBrowseCommand(), "", []string{"users"}},
		{"info", NewInfoCommand(), "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, cfg, tt.cmd, tt.stdin, tt.args...)
			assert.ErrorIs(t, res.Err, ErrNoDatabaseConfigured)
		})
	}
}

func TestTablesCommand(t *testing.T) {
	db := testutil.SetupTestDatabase(t)

	t.Run("table", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewTablesCommand(), "")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "users")
		assert.Contains(t, res.Stdout, "posts")
		assert.Contains(t, res.Stdout, "(2 tables)")
		assert.NotContains(t, res.Stdout, "CREATE TABLE")
		testutil.AssertNoANSI(t, res.Stdout)
	})

	t.Run("with sql", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewTablesCommand(), "", "--sql")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "CREATE TABLE users")
	})

	t.Run("json", func(t *testing.T) {
		cfg := testConfig(t, db)
		cfg.Output = "json"
		res := run(t, cfg, NewTablesCommand(), "")
		require.NoError(t, res.Err)

		var tables []core.DatabaseTable
		require.NoError(t, json.Unmarshal([]byte(res.Stdout), &tables))
		require.Len(t, tables, 2)
		assert.Equal(t, "posts", tables[0].Name)
		assert.Equal(t, "users", tables[1].Name)
	})

	t.Run("missing file", func(t *testing.T) {
		res := run(t, testConfig(t, filepath.Join(t.TempDir(), "missing.db")), NewTablesCommand(), "")
		assert.ErrorIs(t, res.Err, core.ErrInvalidPath)
	})

	t.Run("memory", func(t *testing.T) {
		res := run(t, testConfig(t, config.MemoryDatabase), NewTablesCommand(), "")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "(0 tables)")
	})
}

func TestQueryCommand(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	const sql = "SELECT name FROM users ORDER BY id"

	inputFile := filepath.Join(t.TempDir(), "q.sql")
	require.NoError(t, os.WriteFile(inputFile, []byte(sql+"\n"), 0o644))

	tests := []struct {
		name   string
		output string
		stdin  string
		args   []string
		want   []string
	}{
		{name: "args", args: []string{sql}, want: []string{"alice", "bob", "NULL", "(3 rows)"}},
		{name: "split args", args: []string{"SELECT", "count(*)", "AS", "n", "FROM", "users"}, want: []string{"3", "(1 rows)"}},
		{name: "stdin", stdin: sql, want: []string{"alice", "(3 rows)"}},
		{name: "input file", args: []string{"-i", inputFile}, want: []string{"bob", "(3 rows)"}},
		{name: "markdown", output: "md", args: []string{sql}, want: []string{"| alice |"}},
		{name: "no rows", args: []string{"SELECT * FROM users WHERE id = 99"}, want: []string{"(0 rows)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, db)
			if tt.output != "" {
				cfg.Output = tt.output
			}
			res := run(t, cfg, NewQueryCommand(), tt.stdin, tt.args...)
			require.NoError(t, res.Err)
			for _, w := range tt.want {
				assert.Contains(t, res.Stdout, w)
			}
			assert.Contains(t, res.Stderr, "Time:")
		})
	}
}

func TestQueryCommand_CSV(t *testing.T) {
	db := testutil.SetupTestDatabase(t, append(testutil.UsersSchema,
		`INSERT INTO users (id, name) VALUES (4, 'o''hara, jr')`)...)
	cfg := testConfig(t, db)
	cfg.Output = "csv"

	res := run(t, cfg, NewQueryCommand(), "", "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, res.Err)
	assert.Equal(t, "id,name\n1,alice\n2,bob\n3,NULL\n4,\"o'hara, jr\"\n", res.Stdout)
}

func TestQueryCommand_JSON(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	cfg := testConfig(t, db)
	cfg.Output = "json"

	res := run(t, cfg, NewQueryCommand(), "", "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, res.Err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &rows))
	assert.Equal(t, []map[string]string{
		{"id": "1", "name": "alice"},
		{"id": "2", "name": "bob"},
		{"id": "3", "name": "NULL"},
	}, rows)
	assert.Less(t, strings.Index(res.Stdout, `"id"`), strings.Index(res.Stdout, `"name"`))
}

func TestQueryCommand_Errors(t *testing.T) {
	db := testutil.SetupTestDatabase(t)

	t.Run("empty stdin", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewQueryCommand(), "  \n")
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "no SQL given")
	})

	t.Run("syntax error", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewQueryCommand(), "", "SELEC 1")
		assert.ErrorIs(t, res.Err, core.ErrQuery)
	})

	t.Run("missing input file", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewQueryCommand(), "", "-i", filepath.Join(t.TempDir(), "nope.sql"))
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "failed to read file")
	})
}

func TestQueryCommand_RecordsHistory(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	cfg := testConfig(t, db)

	require.NoError(t, run(t, cfg, NewQueryCommand(), "", "SELECT 1").Err)
	require.Error(t, run(t, cfg, NewQueryCommand(), "", "SELEC 1").Err)
	require.NoError(t, run(t, cfg, NewQueryCommand(), "", "--no-history", "SELECT 2").Err)

	h, err := history.Open(cfg.HistoryDB, nil)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	entries, err := h.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SELEC 1", entries[0].Query)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, "SELECT 1", entries[1].Query)
	assert.Equal(t, 1, entries[1].Rows)
	assert.Equal(t, "app.db (sqlite://"+db+")", entries[1].Database)
}

func TestBrowseCommand(t *testing.T) {
	db := testutil.SetupTestDatabase(t)

	t.Run("first page", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewBrowseCommand(), "", "users")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "alice")
		assert.Contains(t, res.Stdout, "bob")
		assert.NotContains(t, res.Stdout, "NULL")
		assert.Contains(t, res.Stderr, "users: page 1 of 2 (3 rows)")
	})

	t.Run("second page", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewBrowseCommand(), "", "users", "--page", "2")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "NULL")
		assert.NotContains(t, res.Stdout, "alice")
		assert.Contains(t, res.Stderr, "users: page 2 of 2 (3 rows)")
	})

	t.Run("empty table", func(t *testing.T) {
		empty := testutil.SetupTestDatabase(t, `CREATE TABLE empty (id INTEGER)`)
		res := run(t, testConfig(t, empty), NewBrowseCommand(), "", "empty")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "(0 rows)")
		assert.Contains(t, res.Stderr, "empty: page 1 of 1 (0 rows)")
	})

	t.Run("json", func(t *testing.T) {
		cfg := testConfig(t, db)
		cfg.Output = "json"
		res := run(t, cfg, NewBrowseCommand(), "", "users", "-p", "2")
		require.NoError(t, res.Err)

		var view struct {
			Table     string              `json:"table"`
			Page      int64               `json:"page"`
			PageCount int64               `json:"page_count"`
			Count     int64               `json:"count"`
			Rows      []map[string]string `json:"rows"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.Stdout), &view))
		assert.Equal(t, "users", view.Table)
		assert.Equal(t, int64(2), view.Page)
		assert.Equal(t, int64(2), view.PageCount)
		assert.Equal(t, int64(3), view.Count)
		assert.Equal(t, []map[string]string{{"id": "3", "name": "NULL"}}, view.Rows)
	})

	t.Run("missing table", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewBrowseCommand(), "", "nope")
		assert.ErrorIs(t, res.Err, core.ErrNotFound)
	})

	t.Run("page zero", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewBrowseCommand(), "", "users", "--page", "0")
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "page must be at least 1")
	})
}

func TestNewCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")

	res := run(t, testConfig(t, ""), NewNewCommand(), "", path)
	require.NoError(t, res.Err)
	assert.Contains(t, res.Stderr, "Created fresh.db")
	assert.FileExists(t, path)

	res = run(t, testConfig(t, ""), NewNewCommand(), "", path)
	assert.ErrorIs(t, res.Err, core.ErrInvalidPath)
}

func TestInfoCommand(t *testing.T) {
	db := testutil.SetupTestDatabase(t)

	t.Run("table", func(t *testing.T) {
		res := run(t, testConfig(t, db), NewInfoCommand(), "")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "app.db")
		assert.Contains(t, res.Stdout, "sqlite")
		assert.Contains(t, res.Stdout, db)
		testutil.AssertNoANSI(t, res.Stdout)
	})

	t.Run("yaml", func(t *testing.T) {
		cfg := testConfig(t, db)
		cfg.Output = "yaml"
		res := run(t, cfg, NewInfoCommand(), "")
		require.NoError(t, res.Err)
		assert.Contains(t, res.Stdout, "primary: app.db")
		assert.Contains(t, res.Stdout, "backend: sqlite")
		assert.Contains(t, res.Stdout, "tables: 2")
	})
}

func TestHistoryCommand(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	cfg := testConfig(t, db)

	require.NoError(t, run(t, cfg, NewQueryCommand(), "", "SELECT name FROM users").Err)
	require.NoError(t, run(t, cfg, NewQueryCommand(), "", "SELECT id FROM posts").Err)

	res := run(t, cfg, NewHistoryCommand(), "")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Stdout, "SELECT name FROM users")
	assert.Contains(t, res.Stdout, "SELECT id FROM posts")

	jsonCfg := *cfg
	jsonCfg.Output = "json"
	res = run(t, &jsonCfg, NewHistoryCommand(), "", "-n", "1")
	require.NoError(t, res.Err)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal([]byte(res.Stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "SELECT id FROM posts", entries[0].Query)

	res = run(t, cfg, NewHistoryCommand(), "", "--clear")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Stderr, "History cleared")

	res = run(t, &jsonCfg, NewHistoryCommand(), "")
	require.NoError(t, res.Err)
	assert.JSONEq(t, "[]", res.Stdout)
}
