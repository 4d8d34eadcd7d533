package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbview/internal/testutil"
	"github.com/leapstack-labs/dbview/pkg/core"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "postgres", "sqlite"}, Kinds())
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.OpenConfig
		want Kind
	}{
		{"explicit type", core.OpenConfig{Type: "DuckDB", Path: "a.db"}, KindDuckDB},
		{"dsn", core.OpenConfig{DSN: "postgres://localhost/x"}, KindPostgres},
		{"duckdb extension", core.OpenConfig{Path: "/data/warehouse.duckdb"}, KindDuckDB},
		{"ddb extension", core.OpenConfig{Path: "w.DDB"}, KindDuckDB},
		{"sqlite by default", core.OpenConfig{Path: "app.sqlite3"}, KindSQLite},
		{"memory default", core.OpenConfig{Memory: true}, KindSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferKind(tt.cfg))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), core.OpenConfig{Type: "oracle"}, nil)
	require.Error(t, err)

	var unknown *UnknownBackendError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Equal(t, Kinds(), unknown.Available)
	assert.ErrorIs(t, err, core.ErrUnsupportedBackend)
	assert.Contains(t, err.Error(), "Available backends")
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")
	require.NoError(t, CreateFile(KindSQLite, path))

	h, err := Open(ctx, core.OpenConfig{
		Path:    path,
		Options: map[string]string{"busy_timeout": "2s"},
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	assert.Equal(t, KindSQLite, h.Kind)
	assert.NotNil(t, h.SQLite)
	assert.Nil(t, h.DuckDB)
	assert.Equal(t, path, h.Path())
	assert.Equal(t, "app.db", h.Name().Primary)

	tables, err := h.Database().DatabaseTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []string{"sqlite", "duckdb"} {
		t.Run(kind, func(t *testing.T) {
			h, err := Open(ctx, core.OpenConfig{Type: kind, Memory: true}, nil)
			require.NoError(t, err)
			defer func() { _ = h.Close() }()

			assert.Equal(t, Kind(kind), h.Kind)
			assert.Equal(t, "Memory", h.Name().Primary)
			assert.Empty(t, h.Path())
		})
	}
}

func TestOpen_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  core.OpenConfig
		want error
	}{
		{
			name: "bad busy timeout",
			cfg:  core.OpenConfig{Memory: true, Options: map[string]string{"busy_timeout": "soon"}},
			want: core.ErrInvalidArgument,
		},
		{
			name: "bad read only",
			cfg:  core.OpenConfig{Type: "duckdb", Memory: true, Options: map[string]string{"read_only": "maybe"}},
			want: core.ErrInvalidArgument,
		},
		{
			name: "postgres without target",
			cfg:  core.OpenConfig{Type: "postgres"},
			want: core.ErrInvalidArgument,
		},
		{
			name: "postgres in memory",
			cfg:  core.OpenConfig{Type: "postgres", Memory: true},
			want: core.ErrUnsupportedBackend,
		},
		{
			name: "missing sqlite file",
			cfg:  core.OpenConfig{Path: filepath.Join(t.TempDir(), "nope.db")},
			want: core.ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateFile_Unsupported(t *testing.T) {
	err := CreateFile(KindPostgres, "x")
	assert.ErrorIs(t, err, core.ErrUnsupportedBackend)
}
