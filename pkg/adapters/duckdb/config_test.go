package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbview/pkg/core"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"httpfs", "json"},
				"settings": map[string]any{
					"memory_limit": "4GB",
					"threads":      4,
				},
			},
			want: &Params{
				Extensions: []string{"httpfs", "json"},
				Settings:   map[string]string{"memory_limit": "4GB", "threads": "4"},
			},
		},
		{
			name: "secret with optional fields",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":      "s3",
						"provider":  "config",
						"key_id":    "AKIA",
						"url_style": "path",
						"use_ssl":   false,
					},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{
					{Type: "s3", Provider: "config", KeyID: "AKIA", URLStyle: "path", UseSSL: boolPtr(false)},
				},
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"extension": []any{"httpfs"}},
			wantErr: true,
		},
		{
			name:    "setting name injection",
			input:   map[string]any{"settings": map[string]any{"threads = 1; DROP": "x"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Statements(t *testing.T) {
	p := &Params{
		Extensions: []string{"json"},
		Secrets:    []SecretConfig{{Type: "s3", Provider: "credential_chain", Region: "us-west-2"}},
		Settings:   map[string]string{"threads": "2", "memory_limit": "1GB"},
	}

	assert.Equal(t, []string{
		"INSTALL json",
		"LOAD json",
		"CREATE OR REPLACE SECRET dbview_secret_0 (TYPE s3, PROVIDER credential_chain, REGION 'us-west-2')",
		"SET memory_limit = '1GB'",
		"SET threads = '2'",
	}, p.statements())
}

func TestBuildCreateSecretSQL(t *testing.T) {
	got := buildCreateSecretSQL("s", SecretConfig{
		Type:     "s3",
		KeyID:    "id",
		Secret:   "it's",
		Endpoint: "localhost:9000",
		Scope:    "s3://bucket",
		UseSSL:   boolPtr(true),
	})
	assert.Equal(t,
		"CREATE OR REPLACE SECRET s (TYPE s3, KEY_ID 'id', SECRET 'it''s', ENDPOINT 'localhost:9000', SCOPE 's3://bucket', USE_SSL true)",
		got)
}

func boolPtr(b bool) *bool {
	return &b
}
