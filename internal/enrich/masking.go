package enrich

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
)

// maxFieldSize bounds a single string field before it is replaced with a
// size warning, preventing a single oversized metadata value from bloating
// an outbound batch payload.
const maxFieldSize = 2048

// maxMaskDepth limits recursion into nested maps/slices to guard against
// deeply nested or circular caller-supplied metadata.
const maxMaskDepth = 3

// sensitiveKeys flags metadata keys whose values are always redacted
// before a record is queued for delivery.
var sensitiveKeys = []string{"password", "token", "secret", "otp", "credential", "authorization"}

// MaskMetadata redacts sensitive keys and oversized values from a
// caller-supplied metadata map before it is attached to a record.
func MaskMetadata(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	masked := maskRecursive(data, 0)
	m, _ := masked.(map[string]any)
	return m
}

// IsSensitiveKey reports whether a key name contains a sensitive keyword,
// case-insensitively, matching substrings (e.g. "access_token" matches
// "token").
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return slices.ContainsFunc(sensitiveKeys, func(s string) bool {
		return strings.Contains(lower, s)
	})
}

func maskRecursive(data any, depth int) any {
	if data == nil || depth > maxMaskDepth {
		return data
	}

	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.String:
		return maskString(val.String())
	case reflect.Slice, reflect.Array:
		return maskSlice(val, depth)
	case reflect.Map:
		return maskMap(val, depth)
	case reflect.Struct:
		b, err := json.Marshal(data)
		if err != nil {
			return data
		}
		var m any
		if err := json.Unmarshal(b, &m); err == nil {
			return maskRecursive(m, depth)
		}
		return data
	default:
		return data
	}
}

func maskSlice(val reflect.Value, depth int) []any {
	out := make([]any, val.Len())
	for i := 0; i < val.Len(); i++ {
		out[i] = maskRecursive(val.Index(i).Interface(), depth+1)
	}
	return out
}

func maskMap(val reflect.Value, depth int) map[string]any {
	out := make(map[string]any, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		if IsSensitiveKey(key) {
			out[key] = "[REDACTED]"
			continue
		}
		out[key] = maskRecursive(iter.Value().Interface(), depth+1)
	}
	return out
}

func maskString(v string) any {
	if len(v) > maxFieldSize {
		return "[field too large to log]"
	}
	lower := strings.ToLower(v)
	for _, word := range sensitiveKeys {
		if strings.Contains(lower, word) {
			return "[REDACTED]"
		}
	}
	return v
}
