package core

// NullValue is the textual sentinel for SQL NULL cells.
const NullValue = "NULL"

// DatabaseName identifies an open database for display.
type DatabaseName struct {
	// Primary is a short human label, e.g. the file name.
	Primary string `json:"primary" yaml:"primary"`
	// Secondary is the full connection descriptor.
	Secondary string `json:"secondary" yaml:"secondary"`
}

// String renders the name as "primary (secondary)".
func (n DatabaseName) String() string {
	if n.Secondary == "" {
		return n.Primary
	}
	return n.Primary + " (" + n.Secondary + ")"
}

// DatabaseTable is one user visible table.
type DatabaseTable struct {
	// Name of the table.
	Name string `json:"name" yaml:"name"`
	// SQL holds the schema definition statement of the table.
	SQL string `json:"sql" yaml:"sql"`
}

// DatabaseColumn is one decoded cell of a row.
type DatabaseColumn struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// DatabaseRow is an ordered sequence of cells in result column order.
type DatabaseRow struct {
	Columns []DatabaseColumn `json:"columns" yaml:"columns"`
}

// Value returns the value of the named column.
func (r DatabaseRow) Value(name string) (string, bool) {
	for _, col := range r.Columns {
		if col.Name == name {
			return col.Value, true
		}
	}
	return "", false
}

// Names returns the column names of the row in order.
func (r DatabaseRow) Names() []string {
	names := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		names[i] = col.Name
	}
	return names
}

// Values returns the cell values of the row in order.
func (r DatabaseRow) Values() []string {
	values := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		values[i] = col.Value
	}
	return values
}

// DatabaseTableQuery identifies the target table of a paginated scan or count.
type DatabaseTableQuery struct {
	Table string `json:"table" yaml:"table"`
}

// PageCount returns ceil(count / pageSize), zero for an empty table.
func PageCount(count, pageSize int64) int64 {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}
