package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/cli/config"
	"github.com/leapstack-labs/dbview/internal/server"
	"github.com/leapstack-labs/dbview/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the database over HTTP",
		Long: `Start a local HTTP server exposing the open database as a JSON API.

Clients can open and close databases, list tables, page through table rows
and run queries. GET /api/events streams every state change as datastar
signal patches.

With --watch the server reloads the table list and the current page when the
database file is changed by another process.`,
		Example: `  # Serve a file on the default address
  dbview serve -d app.db

  # Start empty and open a database later via POST /api/open
  dbview serve --addr :9000

  # Follow writes made by other processes
  dbview serve -d app.db --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("addr", config.DefaultServerAddr, "Address to listen on")
	cmd.Flags().Bool("watch", false, "Reload when the database file changes")
	cmd.Flags().Int64("page-size", 0, "Rows per page")
	cmd.Flags().String("history-db", "", "Path to the query history database")
	cmd.Flags().Bool("no-history", false, "Do not record queries in the history")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc := NewCommandContextWithoutDatabase(cmd)
	defer cc.Store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder state.Recorder
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		if h := cc.History(); h != nil {
			defer func() { _ = h.Close() }()
			recorder = h
		}
	}

	srv := server.New(server.Config{
		Store:    cc.Store,
		Addr:     cc.Cfg.Server.Addr,
		Watch:    cc.Cfg.Server.Watch,
		PageSize: cc.Cfg.PageSize,
		Recorder: recorder,
		Logger:   cc.Logger,
	})
	defer srv.Close()

	if cc.Cfg.HasDatabase() {
		h, err := cc.Open(ctx, cc.Cfg.OpenConfig())
		if err != nil {
			return err
		}
		cc.Renderer.Success(fmt.Sprintf("Opened %s", h.Name()))
	}

	cc.Renderer.Muted(fmt.Sprintf("Listening on http://%s (Ctrl+C to stop)", cc.Cfg.Server.Addr))
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
