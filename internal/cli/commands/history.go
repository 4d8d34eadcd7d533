package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/history"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit    int
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently executed queries",
		Long: `Show the queries recorded by 'dbview query' and the interactive shell,
newest first.`,
		Example: `  dbview history
  dbview history --limit 50 -o json
  dbview history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutDatabase(cmd)
			h := cc.History()
			if h == nil {
				return errHistoryUnavailable
			}
			defer func() { _ = h.Close() }()

			if clearAll {
				if err := h.Clear(cmd.Context()); err != nil {
					return err
				}
				cc.Renderer.Success("History cleared")
				return nil
			}

			entries, err := h.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderHistory(cc, entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all recorded queries")
	cmd.Flags().String("history-db", "", "Path to the query history database")
	return cmd
}

func renderHistory(cc *CommandContext, entries []history.Entry) error {
	r := cc.Renderer
	if r.Structured() {
		if entries == nil {
			entries = []history.Entry{}
		}
		return r.Value(entries)
	}
	records := make([][]string, len(entries))
	for i, e := range entries {
		records[i] = []string{
			e.StartedAt.Local().Format(time.DateTime),
			e.Database,
			strconv.Itoa(e.Rows),
			formatElapsed(e.Elapsed),
			e.Query,
			e.Error,
		}
	}
	return r.Grid([]string{"started", "database", "rows", "elapsed", "query", "error"}, records)
}
