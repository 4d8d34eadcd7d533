package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbview/internal/completion"
	"github.com/leapstack-labs/dbview/internal/history"
	"github.com/leapstack-labs/dbview/internal/resource"
	"github.com/leapstack-labs/dbview/internal/state"
	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// replCommands lists the shell's dot-commands in help order.
var replCommands = []struct {
	name, args, help string
}{
	{".help", "", "Show this help message"},
	{".tables", "", "List tables"},
	{".schema", "[table]", "Show CREATE statements"},
	{".browse", "<table> [page]", "Show a page of a table"},
	{".next", "", "Next page of the browsed table"},
	{".prev", "", "Previous page of the browsed table"},
	{".open", "<path|:memory:>", "Open a database"},
	{".new", "<path>", "Create an empty database file and open it"},
	{".close", "", "Close the database"},
	{".history", "[n]", "Show recent queries"},
	{".clear", "", "Clear the screen"},
	{".quit", "", "Exit the shell (also .exit)"},
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:     "repl",
		Aliases: []string{"shell"},
		Short:   "Start an interactive SQL shell",
		Long: `Start an interactive SQL shell.

Statements end with a semicolon and may span several lines. Dot-commands
such as .tables, .browse and .open work without one. Tab completes SQLite
keywords and table names.`,
		Example: `  dbview repl -d app.db
  dbview repl -d :memory:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd, noHistory)
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record queries in the history")
	cmd.Flags().String("history-db", "", "Path to the query history database")
	cmd.Flags().String("history-file", "", "Path to the line editing history file")
	cmd.Flags().Int64("page-size", 0, "Rows per page for .browse")
	return cmd
}

func runREPL(cmd *cobra.Command, noHistory bool) error {
	ctx := cmd.Context()
	cc := NewCommandContextWithoutDatabase(cmd)
	defer cc.Store.Close()

	if cc.Cfg.HasDatabase() {
		if _, err := cc.Open(ctx, cc.Cfg.OpenConfig()); err != nil {
			cc.Renderer.Error(err.Error())
		}
	}

	var hist *history.Store
	if !noHistory {
		if hist = cc.History(); hist != nil {
			defer func() { _ = hist.Close() }()
		}
	}

	s := newSession(cc, hist)
	defer s.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.Prompt(),
		HistoryFile:     replHistoryFile(cc),
		AutoComplete:    s,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cc.Renderer.Println(state.RenderTitle(cc.Store, state.DefaultTitleStyles(cc.Renderer.Lipgloss())))
	cc.Renderer.Println("Type .help for commands, .quit to exit")
	cc.Renderer.Println()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.Interrupt()
			rl.SetPrompt(s.Prompt())
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if s.Feed(ctx, line) {
			break
		}
		rl.SetPrompt(s.Prompt())
	}
	return nil
}

// replHistoryFile returns where readline keeps typed lines, or "" to keep
// none.
func replHistoryFile(cc *CommandContext) string {
	if cc.Cfg.HistoryFile != "" {
		return cc.Cfg.HistoryFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "dbview")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		cc.Logger.Debug("no line history", slog.String("error", err.Error()))
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

// session is the state of one interactive shell. It consumes input line by
// line and is independent of the terminal.
type session struct {
	cc      *CommandContext
	tables  *state.Tables
	browser *state.Browser
	exec    *state.Executor
	history *history.Store
	unsub   func()

	mu        sync.Mutex
	completer completion.Completer

	pending strings.Builder
}

func newSession(cc *CommandContext, hist *history.Store) *session {
	s := &session{
		cc:      cc,
		history: hist,
		tables:  state.NewTables(cc.Store, cc.Logger),
		browser: state.NewBrowser(cc.Store, cc.Logger, cc.Cfg.PageSize),
	}
	var recorder state.Recorder
	if hist != nil {
		recorder = hist
	}
	s.exec = state.NewExecutor(cc.Store, cc.Logger, recorder)

	s.unsub = cc.Store.Database().Subscribe(func(snap resource.Snapshot[*adapters.Handle]) {
		if snap.State == resource.Loaded {
			s.setCompleter(snap.Value)
			return
		}
		s.setCompleter(nil)
	})
	if h, ok := cc.Store.Current(); ok {
		s.setCompleter(h)
	}
	return s
}

// Close detaches the session from the store.
func (s *session) Close() {
	s.unsub()
	s.exec.Close()
	s.browser.Close()
	s.tables.Close()
}

func (s *session) setCompleter(h *adapters.Handle) {
	var c completion.Completer
	if h != nil {
		var err error
		if c, err = completion.For(h, s.knownTables); err != nil {
			s.cc.Logger.Debug("completion unavailable", slog.String("error", err.Error()))
		}
	}
	s.mu.Lock()
	s.completer = c
	s.mu.Unlock()
}

func (s *session) knownTables() []core.DatabaseTable {
	tables, _ := s.tables.Resource().Value()
	return tables
}

// Prompt returns the prompt for the next line.
func (s *session) Prompt() string {
	if s.pending.Len() > 0 {
		return "   ...> "
	}
	if h, ok := s.cc.Store.Current(); ok {
		return h.Name().Primary + "> "
	}
	return "dbview> "
}

// Interrupt drops a partially typed statement.
func (s *session) Interrupt() {
	s.pending.Reset()
}

// Feed consumes one input line and reports whether the shell should exit.
// SQL accumulates until a line ends with a semicolon.
func (s *session) Feed(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if s.pending.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.dot(ctx, strings.Fields(line))
	}

	s.pending.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.pending.WriteString(" ")
		return false
	}
	text := strings.TrimSpace(strings.TrimSuffix(s.pending.String(), ";"))
	s.pending.Reset()
	if text == "" {
		return false
	}

	if err := executeAndRender(ctx, s.cc, s.exec, text); err != nil {
		s.report(err)
		return false
	}
	if changesSchema(text) {
		s.tables.Reload()
	}
	return false
}

// Do implements readline.AutoCompleter.
func (s *session) Do(line []rune, pos int) ([][]rune, int) {
	head := strings.TrimLeft(string(line[:pos]), " ")
	if strings.HasPrefix(head, ".") && !strings.ContainsRune(head, ' ') {
		var out [][]rune
		for _, c := range replCommands {
			if strings.HasPrefix(c.name, head) && c.name != head {
				out = append(out, []rune(c.name[len(head):]))
			}
		}
		return out, len([]rune(head))
	}

	s.mu.Lock()
	c := s.completer
	s.mu.Unlock()
	if c == nil {
		return nil, 0
	}
	return c.Do(line, pos)
}

func (s *session) dot(ctx context.Context, parts []string) bool {
	r := s.cc.Renderer
	arg := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		s.printHelp()

	case ".tables", ".schema":
		tables, err := s.loadedTables(ctx)
		if err != nil {
			s.report(err)
			return false
		}
		withSQL := strings.EqualFold(parts[0], ".schema")
		if name := arg(1); name != "" {
			tables = filterTables(tables, name)
			if len(tables) == 0 {
				s.report(core.NewNotFoundError(name))
				return false
			}
		}
		s.report(r.Tables(tables, withSQL))

	case ".browse":
		if arg(1) == "" {
			r.Warning("Usage: .browse <table> [page]")
			return false
		}
		if _, ok := s.cc.Store.Current(); !ok {
			s.report(state.ErrNoDatabase)
			return false
		}
		task := s.browser.Select(arg(1))
		if p := arg(2); p != "" {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil || n < 1 {
				r.Warning("Page must be a number starting at 1")
				return false
			}
			task = s.browser.SetPage(n - 1)
		}
		s.report(showPage(ctx, s.cc, s.browser, task))

	case ".next", ".prev":
		if table, _ := s.browser.Selection(); table == "" {
			s.report(errNoTableSelected)
			return false
		}
		task := s.browser.NextPage()
		if parts[0] == ".prev" {
			task = s.browser.PrevPage()
		}
		if task == nil {
			r.Muted("No more pages")
			return false
		}
		s.report(showPage(ctx, s.cc, s.browser, task))

	case ".open":
		target := arg(1)
		if target == "" {
			r.Warning("Usage: .open <path|:memory:>")
			return false
		}
		var task *resource.Task
		if target == ":memory:" {
			task = s.cc.Store.OpenMemory()
		} else {
			task = s.cc.Store.OpenPath(target)
		}
		s.opened(ctx, task)

	case ".new":
		target := arg(1)
		if target == "" {
			r.Warning("Usage: .new <path>")
			return false
		}
		s.opened(ctx, s.cc.Store.NewDatabase(func(context.Context) (string, bool, error) {
			return target, true, nil
		}))

	case ".close":
		s.cc.Store.Close()
		r.Success("Database closed")

	case ".history":
		s.showHistory(ctx, arg(1))

	case ".clear":
		r.Printf("\033[H\033[2J")

	default:
		r.Warning(fmt.Sprintf("Unknown command: %s (type .help for commands)", parts[0]))
	}
	return false
}

func (s *session) opened(ctx context.Context, task *resource.Task) {
	h, err := await(ctx, s.cc.Store.Database(), task)
	if err != nil {
		s.report(err)
		return
	}
	s.cc.Renderer.Success("Opened " + h.Name().String())
}

func (s *session) loadedTables(ctx context.Context) ([]core.DatabaseTable, error) {
	if _, ok := s.cc.Store.Current(); !ok {
		return nil, state.ErrNoDatabase
	}
	return awaitCurrent(ctx, s.tables.Resource())
}

func (s *session) showHistory(ctx context.Context, n string) {
	if s.history == nil {
		s.report(errHistoryUnavailable)
		return
	}
	limit := 10
	if n != "" {
		v, err := strconv.Atoi(n)
		if err != nil || v < 1 {
			s.cc.Renderer.Warning("Usage: .history [n]")
			return
		}
		limit = v
	}
	entries, err := s.history.Recent(ctx, limit)
	if err != nil {
		s.report(err)
		return
	}
	s.report(renderHistory(s.cc, entries))
}

func (s *session) report(err error) {
	if err != nil {
		s.cc.Renderer.Error(err.Error())
	}
}

func (s *session) printHelp() {
	r := s.cc.Renderer
	r.Println("Commands:")
	for _, c := range replCommands {
		r.Printf("  %-26s %s\n", strings.TrimSpace(c.name+" "+c.args), c.help)
	}
	r.Println()
	r.Println("SQL statements end with a semicolon (;) and may span several lines.")
}

func filterTables(tables []core.DatabaseTable, name string) []core.DatabaseTable {
	var out []core.DatabaseTable
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) {
			out = append(out, t)
		}
	}
	return out
}

// changesSchema reports whether text is DDL that can change the table list.
func changesSchema(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "CREATE", "DROP", "ALTER", "ATTACH", "DETACH":
		return true
	}
	return false
}

// formatElapsed renders a duration for history listings.
func formatElapsed(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}
