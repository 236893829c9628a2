package ecoflow

import (
	"fmt"
	"strconv"
)

// Inputs holds the values the flow designer supplied for a step's declared
// fields. The host materializes one Inputs per invocation; steps treat it as
// read-only.
type Inputs map[string]any

// Empty reports whether no inputs were supplied at all.
func (in Inputs) Empty() bool {
	return len(in) == 0
}

// String returns the value under key coerced to a string, or "" when absent.
func (in Inputs) String(key string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// StringOr returns the value under key, or def when it is absent or empty.
func (in Inputs) StringOr(key, def string) string {
	if s := in.String(key); s != "" {
		return s
	}
	return def
}

// Bool returns the checkbox value under key. JSON-decoded inputs arrive as
// bool; string forms of truth are accepted for hosts that pass raw form
// values through.
func (in Inputs) Bool(key string) bool {
	v, ok := in[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}
