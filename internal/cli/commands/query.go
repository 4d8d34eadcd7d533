package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/cli/output"
	"github.com/leapstack-labs/dbview/internal/state"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input     string
	NoHistory bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against a database",
		Long: `Run a SQL statement against the database and print the result rows.

Every cell is shown as text; SQL NULL is shown as NULL. The SQL is taken
from the arguments, from --input, or from piped stdin. When invoked without
any of them on a terminal, an interactive shell is started.`,
		Example: `  # Execute SQL directly
  dbview query -d app.db "SELECT * FROM users"

  # From a file, as CSV
  dbview query -d app.db -i report.sql -o csv

  # Piped
  echo "SELECT count(*) FROM users" | dbview query -d app.db

  # Interactive shell
  dbview query -d app.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the query in the history")
	cmd.Flags().String("history-db", "", "Path to the query history database")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var text string

	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		text = string(content)
	case !output.IsTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(content)
	default:
		return runREPL(cmd, opts.NoHistory)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("no SQL given")
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var recorder state.Recorder
	if !opts.NoHistory {
		if h := cc.History(); h != nil {
			defer func() { _ = h.Close() }()
			recorder = h
		}
	}

	exec := state.NewExecutor(cc.Store, cc.Logger, recorder)
	defer exec.Close()

	return executeAndRender(cmd.Context(), cc, exec, text)
}

// executeAndRender runs text through exec and prints the rows.
func executeAndRender(ctx context.Context, cc *CommandContext, exec *state.Executor, text string) error {
	res, err := await(ctx, exec.Resource(), exec.Execute(text))
	if err != nil {
		return err
	}
	if err := cc.Renderer.Rows(res.Rows); err != nil {
		return err
	}
	if !cc.Renderer.Structured() {
		cc.Renderer.Muted(fmt.Sprintf("Time: %s", res.Elapsed.Round(time.Microsecond)))
	}
	return nil
}
