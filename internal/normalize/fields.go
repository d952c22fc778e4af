package normalize

import (
	"math"
	"strconv"
)

// stringField returns the first key that holds a non-empty string.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// floatField resolves the first present key in order. Absence is not an
// error; a present value that cannot be read as a number is.
func floatField(m map[string]any, keys ...string) (float64, bool, error) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true, nil
		case int:
			return float64(n), true, nil
		case int64:
			return float64(n), true, nil
		case string:
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return 0, true, invalid(k, "cannot parse %q as number", n)
			}
			return f, true, nil
		default:
			return 0, true, invalid(k, "unexpected type %T", v)
		}
	}
	return 0, false, nil
}

// intField is floatField restricted to whole numbers.
func intField(m map[string]any, keys ...string) (int, bool, error) {
	f, ok, err := floatField(m, keys...)
	if err != nil || !ok {
		return 0, ok, err
	}
	if f != math.Trunc(f) {
		return 0, true, invalid(keys[0], "expected integer, got %v", f)
	}
	return int(f), true, nil
}

// boolField resolves the first key holding a bool.
func boolField(m map[string]any, keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			return b, true
		}
	}
	return false, false
}

// resolveID resolves a stable string id from the given keys. String values
// win as-is, whole numbers are stringified, and Mongo-style wrapper objects
// ({"$oid": "..."}) are unwrapped. An id is never fabricated: no usable
// source is a validation error.
func resolveID(m map[string]any, keys ...string) (string, error) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch id := v.(type) {
		case string:
			if id != "" {
				return id, nil
			}
		case float64:
			if id == math.Trunc(id) {
				return strconv.FormatInt(int64(id), 10), nil
			}
			return "", invalid(k, "non-integer numeric id %v", id)
		case map[string]any:
			if s := stringField(id, "$oid", "id", "_id"); s != "" {
				return s, nil
			}
		}
	}
	return "", invalid(keys[0], "no usable id in any of %v", keys)
}
