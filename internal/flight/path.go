package flight

import (
	"encoding/json"
	"strconv"
)

// Lookup walks a decoded JSON tree along path. It stops with ok=false as soon
// as a key is missing or the value at that step is not an object.
func Lookup(root any, path ...string) (any, bool) {
	cur := root
	for _, key := range path {
		node, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, found := node[key]
		if !found {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// String returns the string at path, or def when the path is absent or the
// value there is not a string.
func String(root any, def string, path ...string) string {
	v, ok := Lookup(root, path...)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return def
}

// Object returns the object at path. An absent path yields def; a present
// value that is not an object yields ok=false.
func Object(root any, def map[string]any, path ...string) (map[string]any, bool) {
	v, found := Lookup(root, path...)
	if !found {
		return def, true
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// List returns the array at path, or nil.
func List(root any, path ...string) []any {
	v, ok := Lookup(root, path...)
	if !ok {
		return nil
	}
	l, _ := v.([]any)
	return l
}

// Epoch returns the unix timestamp at path. An absent path yields 0; a present
// value that is not numeric yields ok=false.
func Epoch(root any, path ...string) (int64, bool) {
	v, found := Lookup(root, path...)
	if !found {
		return 0, true
	}
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return int64(f), true
		}
	case int64:
		return t, true
	case int:
		return int64(t), true
	}
	return 0, false
}
