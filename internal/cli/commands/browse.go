package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/cli/output"
	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/internal/state"
)

var errNoTableSelected = errors.New("no table selected")

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	var page int64

	cmd := &cobra.Command{
		Use:   "browse <table>",
		Short: "Page through the rows of a table",
		Long: `Show one page of a table's rows together with the total row count.

Pages are numbered from 1. The page size comes from --page-size or the
page_size setting (default 5).`,
		Example: `  # First page of users
  dbview browse -d app.db users

  # Third page, 20 rows per page
  dbview browse -d app.db users --page 3 --page-size 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args[0], page)
		},
	}

	cmd.Flags().Int64VarP(&page, "page", "p", 1, "Page number, starting at 1")
	cmd.Flags().Int64("page-size", 0, "Rows per page")
	return cmd
}

func runBrowse(cmd *cobra.Command, table string, page int64) error {
	if page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", page)
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	browser := state.NewBrowser(cc.Store, cc.Logger, cc.Cfg.PageSize)
	defer browser.Close()

	task := browser.Select(table)
	if page > 1 {
		task = browser.SetPage(page - 1)
	}
	return showPage(cmd.Context(), cc, browser, task)
}

// showPage waits for task and renders the browser's page.
func showPage(ctx context.Context, cc *CommandContext, browser *state.Browser, task *resource.Task) error {
	if task == nil {
		return errNoTableSelected
	}
	p, err := await(ctx, browser.Resource(), task)
	if err != nil {
		return err
	}
	if cc.Renderer.Structured() {
		return cc.Renderer.Value(pageView{
			Table:     p.Table,
			Page:      p.Page + 1,
			PageCount: p.PageCount(),
			PageSize:  p.PageSize,
			Count:     p.Count,
			Rows:      output.Records(p.Rows),
		})
	}
	if err := cc.Renderer.Rows(p.Rows); err != nil {
		return err
	}
	cc.Renderer.Muted(fmt.Sprintf("%s: page %d of %d (%d rows)", p.Table, p.Page+1, max(p.PageCount(), 1), p.Count))
	return nil
}

// pageView is the structured rendering of a browser page.
type pageView struct {
	Table     string `json:"table" yaml:"table"`
	Page      int64  `json:"page" yaml:"page"`
	PageCount int64  `json:"page_count" yaml:"page_count"`
	PageSize  int64  `json:"page_size" yaml:"page_size"`
	Count     int64  `json:"count" yaml:"count"`
	Rows      []any  `json:"rows" yaml:"rows"`
}
