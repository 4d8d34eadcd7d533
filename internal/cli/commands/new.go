package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewNewCommand creates the new command.
func NewNewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new <path>",
		Short: "Create an empty database file",
		Long: `Create an empty SQLite database file at path and verify it opens.

The file must not exist yet.`,
		Example: `  dbview new app.db`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutDatabase(cmd)
			defer cc.Store.Close()

			path := args[0]
			task := cc.Store.NewDatabase(func(context.Context) (string, bool, error) {
				return path, true, nil
			})
			h, err := await(cmd.Context(), cc.Store.Database(), task)
			if err != nil {
				return err
			}
			cc.Renderer.Success("Created " + h.Name().String())
			return nil
		},
	}
}
