package provider

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"socialhub-server-go/internal/platform/logging"
)

// NormalizeArguments converts provider-native argument values into plain
// JSON-safe values: string, float64, bool, nil, []any and map[string]any.
// A value that cannot be converted degrades to its string form (or nil) and
// is logged; it never fails the call.
func NormalizeArguments(raw map[string]any, logger *logging.Logger) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalizeValue(k, v, logger, 0)
	}
	return out
}

const maxDepth = 32

func normalizeValue(path string, v any, logger *logging.Logger, depth int) any {
	if depth > maxDepth {
		logger.WarnTag("LLM", "argument %s nested too deeply, truncated", path)
		return nil
	}

	switch t := v.(type) {
	case nil:
		return nil
	case string, bool:
		return t
	case float64:
		return finite(path, t, logger)
	case float32:
		return finite(path, float64(t), logger)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return finite(path, f, logger)
		}
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []byte:
		return string(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = normalizeValue(path+"."+k, item, logger, depth+1)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, item := range t {
			s[i] = normalizeValue(fmt.Sprintf("%s[%d]", path, i), item, logger, depth+1)
		}
		return s
	}

	return normalizeReflect(path, v, logger, depth)
}

func normalizeReflect(path string, v any, logger *logging.Logger, depth int) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(path, rv.Elem().Interface(), logger, depth+1)
	case reflect.Slice, reflect.Array:
		s := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s[i] = normalizeValue(fmt.Sprintf("%s[%d]", path, i), rv.Index(i).Interface(), logger, depth+1)
		}
		return s
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			m[key] = normalizeValue(path+"."+key, iter.Value().Interface(), logger, depth+1)
		}
		return m
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return finite(path, rv.Float(), logger)
	case reflect.Struct:
		data, err := json.Marshal(v)
		if err == nil {
			var decoded any
			if json.Unmarshal(data, &decoded) == nil {
				return normalizeValue(path, decoded, logger, depth+1)
			}
		}
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		logger.WarnTag("LLM", "argument %s has unsupported type %T, dropped", path, v)
		return nil
	}

	if s, ok := v.(fmt.Stringer); ok {
		logger.WarnTag("LLM", "argument %s of type %T degraded to string", path, v)
		return s.String()
	}
	logger.WarnTag("LLM", "argument %s of type %T degraded to string", path, v)
	return fmt.Sprintf("%v", v)
}

func finite(path string, f float64, logger *logging.Logger) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		logger.WarnTag("LLM", "argument %s is not a finite number, dropped", path)
		return nil
	}
	return f
}
