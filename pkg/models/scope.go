package models

import "strings"

// Scope is the read view of an execution context used to resolve field
// names: variable bindings first, then the raw trigger payload.
type Scope struct {
	Variables   map[string]any
	TriggerData map[string]any
}

// Resolve looks up field, which may be a dotted path into nested maps.
// The boolean is false when the field is undefined.
func (s Scope) Resolve(field string) (any, bool) {
	if field == "" {
		return nil, false
	}

	if value, ok := lookupPath(s.Variables, field); ok {
		return value, true
	}

	return lookupPath(s.TriggerData, field)
}

func lookupPath(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}

	if value, ok := data[path]; ok {
		return value, true
	}

	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}

	nested, ok := data[head].(map[string]any)
	if !ok {
		return nil, false
	}

	return lookupPath(nested, rest)
}
