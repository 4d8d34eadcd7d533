package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of the database layer.
type ErrorKind string

// Error kinds.
const (
	// KindInvalidPath indicates the open target is missing or not a regular file.
	KindInvalidPath ErrorKind = "INVALID_PATH"
	// KindConnection indicates the physical connection could not be established or was lost.
	KindConnection ErrorKind = "CONNECTION"
	// KindQuery indicates malformed or failing query text.
	KindQuery ErrorKind = "QUERY"
	// KindNotFound indicates a referenced table does not exist.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindUnsupportedBackend indicates a capability dispatch miss.
	KindUnsupportedBackend ErrorKind = "UNSUPPORTED_BACKEND"
	// KindInvalidArgument indicates a caller supplied value out of range.
	KindInvalidArgument ErrorKind = "INVALID_ARGUMENT"
)

// Sentinel errors for errors.Is checks. Every *Error matches the sentinel of its kind.
var (
	ErrInvalidPath        = errors.New("invalid path")
	ErrConnection         = errors.New("connection error")
	ErrQuery              = errors.New("query error")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrInvalidArgument    = errors.New("invalid argument")
)

var sentinels = map[ErrorKind]error{
	KindInvalidPath:        ErrInvalidPath,
	KindConnection:         ErrConnection,
	KindQuery:              ErrQuery,
	KindNotFound:           ErrNotFound,
	KindUnsupportedBackend: ErrUnsupportedBackend,
	KindInvalidArgument:    ErrInvalidArgument,
}

// Error is the typed failure returned by backends.
type Error struct {
	Kind ErrorKind
	// Op names the database operation that failed, e.g. "query" or "rows".
	// It is left out of the message.
	Op      string
	Message string
	Err     error
}

// Error implements the error interface. The message is returned as is so
// backend diagnostics reach the user verbatim.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// NewInvalidPathError reports that path cannot be opened as a database file.
func NewInvalidPathError(path string, err error) *Error {
	return &Error{
		Kind:    KindInvalidPath,
		Message: fmt.Sprintf("database path '%s' is not a file", path),
		Err:     err,
	}
}

// NewConnectionError wraps a failure to establish or use the physical connection.
func NewConnectionError(err error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("connection error: %v", err),
		Err:     err,
	}
}

// NewQueryError wraps a backend query failure, keeping its diagnostic verbatim.
func NewQueryError(err error) *Error {
	return &Error{
		Kind:    KindQuery,
		Message: err.Error(),
		Err:     err,
	}
}

// NewNotFoundError reports a missing table.
func NewNotFoundError(table string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("table '%s' not found", table),
	}
}

// NewUnsupportedBackendError reports that backend kind has no support for capability.
func NewUnsupportedBackendError(kind, capability string) *Error {
	return &Error{
		Kind:    KindUnsupportedBackend,
		Message: fmt.Sprintf("%s backend does not support %s", kind, capability),
	}
}

// NewInvalidArgumentError reports an out of range argument.
func NewInvalidArgumentError(format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}
