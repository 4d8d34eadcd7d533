package adapter

import (
	"database/sql/driver"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/dbview/pkg/core"
)

// decoder attempts to render a native value. ok is false when the value is
// not of the decoder's type.
type decoder func(v any) (s string, ok bool)

// decoders are tried in priority order. Text comes first so text affinity
// columns are never rendered as numbers.
var decoders = []decoder{
	decodeText,
	decodeInteger,
	decodeFloat,
	decodeBool,
	decodeBytes,
}

// Decode converts one backend native cell value into its canonical string.
// It is total: unknown types, and values whose methods panic, produce a
// diagnostic placeholder, never an error.
func Decode(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = UnhandledPlaceholder(v)
		}
	}()

	if isNull(v) {
		return core.NullValue
	}
	for _, d := range decoders {
		if out, ok := d(v); ok {
			return out
		}
	}
	return UnhandledPlaceholder(v)
}

// UnhandledPlaceholder returns the placeholder rendered for values of unknown type.
func UnhandledPlaceholder(v any) string {
	return fmt.Sprintf("<unhandled type: %T>", v)
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface:
		if rv.IsNil() {
			return true
		}
	}
	if valuer, ok := v.(driver.Valuer); ok {
		inner, err := valuer.Value()
		return err == nil && inner == nil
	}
	return false
}

func decodeText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case time.Time:
		return t.Format(time.RFC3339Nano), true
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return "", false
		}
		return string(b), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

func decodeInteger(v any) (string, bool) {
	switch n := v.(type) {
	case int64:
		return strconv.FormatInt(n, 10), true
	case int:
		return strconv.FormatInt(int64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	default:
		return "", false
	}
}

func decodeFloat(v any) (string, bool) {
	switch f := v.(type) {
	case float64:
		return formatFloat(f, 64), true
	case float32:
		return formatFloat(float64(f), 32), true
	default:
		return "", false
	}
}

// formatFloat produces the shortest representation that parses back to f,
// switching to exponent form for very small or very large magnitudes.
func formatFloat(f float64, bits int) string {
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func decodeBool(v any) (string, bool) {
	b, ok := v.(bool)
	if !ok {
		return "", false
	}
	return strconv.FormatBool(b), true
}

// decodeBytes renders raw bytes as a byte array literal, e.g. [1, 2, 3].
func decodeBytes(v any) (string, bool) {
	b, ok := v.([]byte)
	if !ok {
		return "", false
	}
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = strconv.Itoa(int(c))
	}
	return "[" + strings.Join(parts, ", ") + "]", true
}
