package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/state"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var withSQL bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of a database",
		Long: `List the user tables of the database, sorted by name.

Internal tables of the backend (sqlite_*, DuckDB internals, pg_catalog) are
not shown.`,
		Example: `  # List tables
  dbview tables -d app.db

  # Include the CREATE statements
  dbview tables -d app.db --sql

  # As JSON
  dbview tables -d app.db -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(cmd, withSQL)
		},
	}

	cmd.Flags().BoolVar(&withSQL, "sql", false, "Show the CREATE statement of each table")
	return cmd
}

func runTables(cmd *cobra.Command, withSQL bool) error {
	cc := NewCommandContextWithoutDatabase(cmd)
	tables := state.NewTables(cc.Store, cc.Logger)
	defer tables.Close()
	defer cc.Store.Close()

	if !cc.Cfg.HasDatabase() {
		return ErrNoDatabaseConfigured
	}
	if _, err := cc.Open(cmd.Context(), cc.Cfg.OpenConfig()); err != nil {
		return err
	}

	list, err := awaitCurrent(cmd.Context(), tables.Resource())
	if err != nil {
		return err
	}
	return cc.Renderer.Tables(list, withSQL)
}
