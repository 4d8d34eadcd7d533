package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/dbview/internal/cli"
	"github.com/leapstack-labs/dbview/internal/cli/config"
)

const cliIntro = "dbview opens SQLite, DuckDB and PostgreSQL databases from the command line. " +
	"It lists tables, pages through rows and runs SQL, and can serve the same operations over HTTP."

// commandPage is the documented view of one cobra command.
type commandPage struct {
	name      string
	summary   string
	usage     string
	aliases   []string
	local     [][]string
	inherited [][]string
	example   string
}

func newCommandPage(cmd *cobra.Command) commandPage {
	p := commandPage{
		name:    cmd.Name(),
		summary: cmd.Long,
		usage:   cmd.UseLine(),
		aliases: cmd.Aliases,
	}
	if p.summary == "" {
		p.summary = cmd.Short
	}
	if !strings.HasPrefix(p.usage, "dbview") {
		p.usage = "dbview " + p.usage
	}
	if cmd.HasLocalFlags() {
		p.local = flagRows(cmd.LocalFlags())
	}
	if cmd.HasInheritedFlags() {
		p.inherited = flagRows(cmd.InheritedFlags())
	}
	if cmd.Example != "" {
		p.example = cleanExample(cmd.Example)
	}
	return p
}

func (p commandPage) render(w *MarkdownWriter) {
	w.Frontmatter(p.name, firstLine(p.summary))
	w.GeneratedMarker()
	w.Header(1, p.name)
	w.Paragraph(p.summary)

	w.Header(2, "Usage")
	w.CodeBlock("bash", p.usage)

	if len(p.aliases) > 0 {
		w.Header(2, "Aliases")
		items := make([]string, len(p.aliases))
		for i, a := range p.aliases {
			items[i] = InlineCode(a)
		}
		w.BulletList(items)
	}
	if len(p.local) > 0 {
		w.Header(2, "Options")
		w.Table(flagHeaders, p.local)
	}
	if len(p.inherited) > 0 {
		w.Header(2, "Global Options")
		w.Table(flagHeaders, p.inherited)
	}
	if p.example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", p.example)
	}
}

// generateCLIDocs writes index.md plus one page per command into outDir.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	commands := visibleCommands(root)

	if err := writePage(outDir, "index.md", renderIndex(root, commands)); err != nil {
		return err
	}
	for _, cmd := range commands {
		w := NewMarkdownWriter()
		newCommandPage(cmd).render(w)
		if err := writePage(outDir, cmd.Name()+".md", w); err != nil {
			return err
		}
	}
	return nil
}

func renderIndex(root *cobra.Command, commands []*cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for dbview")
	w.GeneratedMarker()
	w.Header(1, "CLI Reference")
	w.Paragraph(cliIntro)

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/dbview/cmd/dbview@latest")

	w.Header(2, "Commands")
	rows := make([][]string, 0, len(commands))
	for _, cmd := range commands {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Table(flagHeaders, flagRows(root.PersistentFlags()))

	w.Header(2, "Environment Variables")
	w.Paragraph("Scalar settings of dbview.yaml can also be set through the environment. " +
		"Flags win over the environment, and the environment wins over the file.")
	w.Table([]string{"Variable", "Setting"}, envRows())

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Any error, printed to stderr"},
	})
	return w
}

func writePage(dir, name string, w *MarkdownWriter) error {
	if err := os.WriteFile(filepath.Join(dir, name), w.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	log.Printf("  Generated %s", name)
	return nil
}

// visibleCommands returns the documented subcommands of root.
func visibleCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if !cmd.IsAvailableCommand() || cmd.Name() == "help" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// envRows lists the environment variable for every non-map config key.
func envRows() [][]string {
	var rows [][]string
	for _, f := range configSchema() {
		if strings.HasPrefix(f.Type, "map") {
			continue
		}
		name := config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, ".", "__"))
		rows = append(rows, []string{InlineCode(name), InlineCode(f.Name)})
	}
	return rows
}

var flagHeaders = []string{"Option", "Short", "Default", "Description"}

func flagRows(flags *pflag.FlagSet) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if def != "" && f.Value.Type() == "string" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, cleanDescription(f.Usage)})
	})
	return rows
}

// cleanExample strips the indentation shared by all non-blank lines.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if n := len(l) - len(strings.TrimLeft(l, " \t")); indent < 0 || n < indent {
			indent = n
		}
	}
	for i, l := range lines {
		if indent > 0 && len(l) >= indent {
			lines[i] = l[indent:]
		} else {
			lines[i] = strings.TrimSpace(l)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
