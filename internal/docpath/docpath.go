// Package docpath resolves dot-separated field paths against a document,
// the addressing scheme matchesCondition and the index engine use for
// nested fields (e.g. "address.city").
package docpath

import "strings"

// Get resolves a dot-separated path against doc, descending through nested
// maps. It returns (value, true) if every segment resolved to a concrete
// value, or (nil, false) if any segment was missing, nil, or not a map.
func Get(doc map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var current interface{} = doc
	for _, seg := range segments {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		v, exists := m[seg]
		if !exists {
			return nil, false
		}
		current = v
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	default:
		return nil, false
	}
}
