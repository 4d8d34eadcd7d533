package sqlite

import (
	"strings"
	"time"

	"github.com/leapstack-labs/dbview/pkg/adapter"
)

// Catalog introspects sqlite_master.
type Catalog struct{}

// TablesSQL lists user tables. Names starting with sqlite_ are reserved for
// the engine; the underscore is escaped so it is not a LIKE wildcard.
func (Catalog) TablesSQL() string {
	return `SELECT "name", "sql" FROM sqlite_master ` +
		`WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY "name"`
}

func (Catalog) TableExistsSQL() string {
	return `SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (Catalog) QuoteIdentifier(name string) string {
	return adapter.QuoteIdentifier(name)
}

// DecodeColumn undoes the time parsing both drivers apply to text in DATE,
// DATETIME and TIMESTAMP columns, rendering the value in the layout SQLite
// itself stores.
func (Catalog) DecodeColumn(dbType string, v any) (string, bool) {
	t, ok := v.(time.Time)
	if !ok {
		return "", false
	}
	return formatTime(strings.ToUpper(dbType), t), true
}

const sqliteTimeLayout = "2006-01-02 15:04:05.999999999"

func formatTime(dbType string, t time.Time) string {
	midnight := t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
	_, offset := t.Zone()
	if dbType == "DATE" && midnight && offset == 0 {
		return t.Format(time.DateOnly)
	}
	if offset != 0 {
		return t.Format(sqliteTimeLayout + "-07:00")
	}
	return t.Format(sqliteTimeLayout)
}

var _ adapter.ColumnDecoder = Catalog{}
