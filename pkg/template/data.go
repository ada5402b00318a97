package template

import (
	"fmt"
	"strings"
)

// Data maps placeholder keys to values. A value is a scalar or, for dotted keys, a
// nested map[string]any (map[string]string is accepted too when formatting).
type Data = map[string]any

// Lookup returns the value stored at the dotted key, descending through nested maps.
func Lookup(data Data, key string) (any, bool) {
	value, _, ok := lookupPath(data, strings.Split(key, nestingMarker))
	return value, ok
}

// lookupPath descends data along path. On failure it returns the prefix of path that
// could not be resolved.
func lookupPath(data Data, path []string) (any, string, bool) {
	var current any = data
	for i, key := range path {
		var (
			value any
			ok    bool
		)
		switch m := current.(type) {
		case map[string]any:
			value, ok = m[key]
		case map[string]string:
			value, ok = m[key]
		default:
			return nil, strings.Join(path[:i], nestingMarker), false
		}
		if !ok {
			return nil, strings.Join(path[:i+1], nestingMarker), false
		}
		current = value
	}
	return current, "", true
}

// insertPath stores value at path, creating intermediate maps as needed. It fails
// when a scalar already occupies an intermediate position or a map occupies the leaf.
func insertPath(data Data, path []string, value string) error {
	current := data
	for i, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			child := make(map[string]any)
			current[key] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("key %q holds a value, not a mapping", strings.Join(path[:i+1], nestingMarker))
		}
		current = child
	}
	leaf := path[len(path)-1]
	if existing, ok := current[leaf]; ok {
		if _, isMap := existing.(map[string]any); isMap {
			return fmt.Errorf("key %q holds a mapping, not a value", strings.Join(path, nestingMarker))
		}
	}
	current[leaf] = value
	return nil
}

// FormatValue renders a scalar the way Format substitutes it: integers zero-padded to
// padding digits, everything else via its natural string form. Maps and nil are not
// formattable.
func FormatValue(value any, padding int) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%0*d", padding, v), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%0*d", padding, v), true
	case map[string]any, map[string]string:
		return "", false
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}
