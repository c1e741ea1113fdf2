package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MissingArgError reports a required argument that was absent or empty.
type MissingArgError struct {
	Name string
}

func (e *MissingArgError) Error() string {
	return fmt.Sprintf("missing required argument: %s", e.Name)
}

// String returns args[key] as a trimmed string. Numbers and booleans are formatted.
func String(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64, int, int64, bool, json.Number:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

func RequireString(args map[string]any, key string) (string, error) {
	s, ok := String(args, key)
	if !ok {
		return "", &MissingArgError{Name: key}
	}
	return s, nil
}

// Int accepts integral numbers in any numeric representation, including numeric strings.
func Int(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		return int(t), true
	case float32:
		return Int(map[string]any{key: float64(t)}, key)
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func RequireInt(args map[string]any, key string) (int, error) {
	n, ok := Int(args, key)
	if !ok {
		return 0, &MissingArgError{Name: key}
	}
	return n, nil
}

// Strings accepts a list of strings or a single comma separated string.
func Strings(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
	case string:
		out = strings.Split(t, ",")
	}
	cleaned := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
