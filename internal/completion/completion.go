// Package completion provides SQL completions for the interactive shell.
package completion

import (
	"sort"
	"strings"
	"unicode"

	"github.com/chzyer/readline"

	"github.com/leapstack-labs/dbview/pkg/adapters"
	"github.com/leapstack-labs/dbview/pkg/core"
)

// Kind classifies a completion item.
type Kind int

// Item kinds, in display order.
const (
	KindKeyword Kind = iota
	KindTable
)

// Item is one completion candidate.
type Item struct {
	Label  string
	Detail string
	Kind   Kind
}

// TableSource returns the currently known tables. It may return nil.
type TableSource func() []core.DatabaseTable

// Completer completes SQL text. It plugs into readline directly.
type Completer interface {
	readline.AutoCompleter
	// Complete returns candidates for the word prefix.
	Complete(prefix string) []Item
}

// For returns the completer for the backend of h.
func For(h *adapters.Handle, tables TableSource) (Completer, error) {
	switch h.Kind {
	case adapters.KindSQLite:
		return &sqliteCompleter{tables: tables}, nil
	default:
		return nil, core.NewUnsupportedBackendError(string(h.Kind), "completion")
	}
}

type sqliteCompleter struct {
	tables TableSource
}

// Complete never offers a word that is already typed out completely.
func (c *sqliteCompleter) Complete(prefix string) []Item {
	if prefix == "" {
		return nil
	}
	upper := strings.ToUpper(prefix)

	var items []Item
	for _, kw := range sqliteKeywords {
		if strings.HasPrefix(kw, upper) && kw != upper {
			items = append(items, Item{Label: kw, Detail: "SQLite keyword: " + kw, Kind: KindKeyword})
		}
	}

	var tables []Item
	if c.tables != nil {
		for _, t := range c.tables() {
			if strings.HasPrefix(strings.ToLower(t.Name), strings.ToLower(prefix)) && t.Name != prefix {
				tables = append(tables, Item{Label: t.Name, Detail: "table", Kind: KindTable})
			}
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Label < tables[j].Label })
	return append(items, tables...)
}

// Do implements readline.AutoCompleter. Keywords follow the letter case of
// the typed prefix.
func (c *sqliteCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := wordStart(line, pos)
	prefix := string(line[start:pos])
	lower := prefix == strings.ToLower(prefix)

	items := c.Complete(prefix)
	if len(items) == 0 {
		return nil, 0
	}
	n := len([]rune(prefix))
	out := make([][]rune, 0, len(items))
	for _, item := range items {
		label := item.Label
		if item.Kind == KindKeyword && lower {
			label = strings.ToLower(label)
		}
		out = append(out, []rune(label)[n:])
	}
	return out, n
}

func wordStart(line []rune, pos int) int {
	if pos > len(line) {
		pos = len(line)
	}
	start := pos
	for start > 0 {
		r := line[start-1]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		start--
	}
	return start
}
