package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/dbview/pkg/core"
)

// record is a row that encodes as an object with keys in column order.
type record core.DatabaseRow

func (r record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(col.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, col := range r.Columns {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col.Value},
		)
	}
	return node, nil
}

// Records converts rows into values that encode with ordered keys.
func Records(rows []core.DatabaseRow) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = record(row)
	}
	return out
}

// Rows renders query result rows. Column order follows the first row.
func (r *Renderer) Rows(rows []core.DatabaseRow) error {
	if r.Structured() {
		return r.Value(Records(rows))
	}
	if len(rows) == 0 {
		if r.mode != ModeCSV {
			r.Println("(0 rows)")
		}
		return nil
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = row.Values()
	}
	if err := r.Grid(rows[0].Names(), records); err != nil {
		return err
	}
	if r.mode == ModeTable {
		r.Printf("(%d rows)\n", len(rows))
	}
	return nil
}

// Tables renders a table listing. withSQL adds the schema statement.
func (r *Renderer) Tables(tables []core.DatabaseTable, withSQL bool) error {
	if r.Structured() {
		if tables == nil {
			tables = []core.DatabaseTable{}
		}
		return r.Value(tables)
	}
	header := []string{"name"}
	if withSQL {
		header = append(header, "sql")
	}
	records := make([][]string, len(tables))
	for i, tbl := range tables {
		records[i] = []string{tbl.Name}
		if withSQL {
			records[i] = append(records[i], tbl.SQL)
		}
	}
	if err := r.Grid(header, records); err != nil {
		return err
	}
	if r.mode == ModeTable {
		r.Printf("(%d tables)\n", len(tables))
	}
	return nil
}

// Grid renders header and records as a table, markdown or CSV.
func (r *Renderer) Grid(header []string, records [][]string) error {
	if r.mode == ModeCSV {
		return r.writeCSV(append([][]string{header}, records...))
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(toRow(header))
	for _, rec := range records {
		t.AppendRow(toRow(rec))
	}
	if r.mode == ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

// writeCSV writes RFC 4180 records; go-pretty escapes CSV with backslashes.
func (r *Renderer) writeCSV(records [][]string) error {
	w := csv.NewWriter(r.out)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
