package adapters

import (
	"fmt"

	"github.com/leapstack-labs/dbview/pkg/core"
)

// UnknownBackendError is returned when an unknown backend type is requested.
type UnknownBackendError struct {
	Type      string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown backend type %q\nAvailable backends: %v\nHint: check type in dbview.yaml or --type", e.Type, e.Available)
}

// Is reports the error as an unsupported backend.
func (e *UnknownBackendError) Is(target error) bool {
	return target == core.ErrUnsupportedBackend
}
