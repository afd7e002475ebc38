// Package llmjson reads loosely typed fields out of decoded model replies.
//
// Models return numbers as strings, lists as comma separated text and so on;
// these helpers accept the common variants and report whether a usable value
// was present.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// String returns m[key] as trimmed text.
func String(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case fmt.Stringer:
		return strings.TrimSpace(t.String()), true
	case float64, int, int64, bool, json.Number:
		return fmt.Sprint(t), true
	}
	return "", false
}

// StringOr returns String(m, key) or def when missing or empty.
func StringOr(m map[string]any, key, def string) string {
	if s, ok := String(m, key); ok && s != "" {
		return s
	}
	return def
}

// Strings returns m[key] as a list of non-empty strings. A bare string is
// treated as a one-element list.
func Strings(m map[string]any, key string) []string {
	out := []string{}
	switch t := m[key].(type) {
	case []any:
		for _, item := range t {
			if s, ok := scalar(item); ok && s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Float returns m[key] as a float64.
func Float(m map[string]any, key string) (float64, bool) {
	switch t := m[key].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns m[key] truncated to an int.
func Int(m map[string]any, key string) (int, bool) {
	f, ok := Float(m, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Objects returns m[key] as a list of JSON objects, skipping anything else.
func Objects(m map[string]any, key string) []map[string]any {
	list, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64, int, int64, bool, json.Number:
		return fmt.Sprint(t), true
	}
	return "", false
}
