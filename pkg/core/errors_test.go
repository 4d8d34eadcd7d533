package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{"invalid path", NewInvalidPathError("/nope.db", nil), ErrInvalidPath, KindInvalidPath},
		{"connection", NewConnectionError(assert.AnError), ErrConnection, KindConnection},
		{"query", NewQueryError(assert.AnError), ErrQuery, KindQuery},
		{"not found", NewNotFoundError("users"), ErrNotFound, KindNotFound},
		{"unsupported", NewUnsupportedBackendError("duckdb", "completion"), ErrUnsupportedBackend, KindUnsupportedBackend},
		{"invalid argument", NewInvalidArgumentError("limit must be non-negative, got %d", -1), ErrInvalidArgument, KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))

			wrapped := fmt.Errorf("failed to load: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))

			for _, other := range sentinels {
				if other != tt.sentinel {
					assert.NotErrorIs(t, tt.err, other)
				}
			}
		})
	}
}

func TestNewQueryError_KeepsDiagnosticVerbatim(t *testing.T) {
	cause := errors.New(`near "not": syntax error`)
	err := NewQueryError(cause)

	assert.Equal(t, `near "not": syntax error`, err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
