package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/state"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show what database is opened and its size",
		Example: `  dbview info -d app.db
  dbview info --dsn "postgres://app@localhost/app" -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutDatabase(cmd)
			tables := state.NewTables(cc.Store, cc.Logger)
			defer tables.Close()
			defer cc.Store.Close()

			if !cc.Cfg.HasDatabase() {
				return ErrNoDatabaseConfigured
			}
			h, err := cc.Open(cmd.Context(), cc.Cfg.OpenConfig())
			if err != nil {
				return err
			}
			list, err := awaitCurrent(cmd.Context(), tables.Resource())
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.Structured() {
				return r.Value(infoView{
					Name:    h.Name(),
					Backend: string(h.Kind),
					Path:    h.Path(),
					Tables:  len(list),
				})
			}
			r.Println(state.RenderTitle(cc.Store, state.DefaultTitleStyles(r.Lipgloss())))
			return r.Grid([]string{"property", "value"}, [][]string{
				{"backend", string(h.Kind)},
				{"path", h.Path()},
				{"tables", strconv.Itoa(len(list))},
			})
		},
	}
}

type infoView struct {
	Name    core.DatabaseName `json:"name" yaml:"name"`
	Backend string            `json:"backend" yaml:"backend"`
	Path    string            `json:"path,omitempty" yaml:"path,omitempty"`
	Tables  int               `json:"tables" yaml:"tables"`
}
