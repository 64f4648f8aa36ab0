// Package template substitutes {{variable}} placeholders in action parameters.
package template

import (
	"regexp"
	"strings"

	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/values"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*\}\}`)

// Render replaces every {{name}} in input with the value resolved from scope.
// Unresolved placeholders are left verbatim and nil renders as "".
func Render(input string, scope models.Scope) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return placeholder.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]

		value, ok := scope.Resolve(name)
		if !ok {
			return match
		}

		return values.ToString(value)
	})
}

// RenderValue renders strings, and the strings nested in maps and slices.
// A string that is exactly one placeholder keeps the resolved value's type.
func RenderValue(value any, scope models.Scope) any {
	switch v := value.(type) {
	case string:
		if m := placeholder.FindStringSubmatch(v); m != nil && m[0] == strings.TrimSpace(v) {
			if resolved, ok := scope.Resolve(m[1]); ok {
				return resolved
			}

			return v
		}

		return Render(v, scope)
	case map[string]any:
		return RenderParams(v, scope)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RenderValue(item, scope)
		}

		return out
	default:
		return value
	}
}

// RenderParams returns a copy of params with every placeholder rendered.
func RenderParams(params map[string]any, scope models.Scope) map[string]any {
	if params == nil {
		return nil
	}

	out := make(map[string]any, len(params))
	for key, value := range params {
		out[key] = RenderValue(value, scope)
	}

	return out
}

// Placeholders lists the variable names referenced by input, in order.
func Placeholders(input string) []string {
	matches := placeholder.FindAllStringSubmatch(input, -1)

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}

	return names
}
