package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/dbview/internal/cli/config"
	"github.com/leapstack-labs/dbview/pkg/adapters"
)

// ConfigField is one documented dbview.yaml key.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
}

func configSchema() []ConfigField {
	return []ConfigField{
		{Name: "database", Type: "string", Description: "Database file to open, or " + config.MemoryDatabase + " for a private in-memory database"},
		{Name: "type", Type: "string", Description: "Backend type: " + strings.Join(adapters.Kinds(), ", ") + ". Inferred from the file extension or DSN when empty"},
		{Name: "driver", Type: "string", Default: "sqlite", Description: "SQLite driver: sqlite (pure Go) or sqlite3 (cgo)"},
		{Name: "dsn", Type: "string", Description: "Connection string for server backends. ${VAR} references are expanded"},
		{Name: "page_size", Type: "int", Default: strconv.Itoa(config.DefaultPageSize), Description: "Rows per page when browsing"},
		{Name: "output", Type: "string", Default: config.DefaultOutput, Description: "Output format: " + strings.Join(config.OutputFormats, ", ")},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Log debug output to stderr"},
		{Name: "history_db", Type: "string", Description: "Query history database. Defaults to dbview/history.db in the user config directory"},
		{Name: "history_file", Type: "string", Description: "Line editing history of the interactive shell"},
		{Name: "options", Type: "map[string]string", Description: "Driver options such as busy_timeout or read_only"},
		{Name: "params", Type: "map[string]any", Description: "Backend parameters, e.g. DuckDB settings"},
		{Name: "server.addr", Type: "string", Default: config.DefaultServerAddr, Description: "Listen address of dbview serve"},
		{Name: "server.watch", Type: "bool", Default: "false", Description: "Reload when the database file changes"},
	}
}

const exampleConfig = `database: ./app.db
output: table
page_size: 20

options:
  busy_timeout: "5000"

server:
  addr: 127.0.0.1:8080
  watch: true`

// generateConfigDocs writes configuration.md to outDir.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "dbview.yaml reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("dbview reads " + InlineCode("dbview.yaml") + " (or " + InlineCode("dbview.yml") + ") from the working directory, or the file given with " + InlineCode("--config") + ".")

	var rows [][]string
	for _, f := range configSchema() {
		def := ""
		if f.Default != "" {
			def = InlineCode(f.Default)
		}
		rows = append(rows, []string{InlineCode(f.Name), f.Type, def, f.Description})
	}
	w.Table([]string{"Key", "Type", "Default", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", exampleConfig)

	if err := os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}
