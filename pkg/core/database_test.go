package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageCount(t *testing.T) {
	tests := []struct {
		count    int64
		pageSize int64
		expected int64
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{3, 2, 2},
		{10, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PageCount(tt.count, tt.pageSize), "count=%d pageSize=%d", tt.count, tt.pageSize)
	}
}

func TestDatabaseRow_Accessors(t *testing.T) {
	row := DatabaseRow{Columns: []DatabaseColumn{
		{Name: "id", Value: "1"},
		{Name: "name", Value: NullValue},
	}}

	assert.Equal(t, []string{"id", "name"}, row.Names())
	assert.Equal(t, []string{"1", "NULL"}, row.Values())

	v, ok := row.Value("name")
	assert.True(t, ok)
	assert.Equal(t, "NULL", v)

	_, ok = row.Value("missing")
	assert.False(t, ok)
}

func TestDatabaseName_String(t *testing.T) {
	assert.Equal(t, "Memory", DatabaseName{Primary: "Memory"}.String())
	assert.Equal(t, "app.db (file:/tmp/app.db)", DatabaseName{Primary: "app.db", Secondary: "file:/tmp/app.db"}.String())
}

func TestOpenConfig_Option(t *testing.T) {
	cfg := OpenConfig{Options: map[string]string{"driver": "sqlite3", "empty": ""}}

	assert.Equal(t, "sqlite3", cfg.Option("driver", "sqlite"))
	assert.Equal(t, "x", cfg.Option("empty", "x"))
	assert.Equal(t, "y", cfg.Option("missing", "y"))
}
