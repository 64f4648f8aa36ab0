package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukex/autoflow/pkg/values"
	"github.com/spf13/cast"
)

func stringParam(params map[string]any, key string) string {
	return strings.TrimSpace(values.ToString(params[key]))
}

func requireString(params map[string]any, key string) (string, error) {
	s := stringParam(params, key)
	if s == "" || strings.Contains(s, "{{") {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}

	return s, nil
}

// stringList accepts an array or a comma separated string.
func stringList(params map[string]any, key string) []string {
	raw := params[key]

	var items []string

	if values.IsArray(raw) {
		for _, item := range values.Items(raw) {
			items = append(items, values.ToString(item))
		}
	} else {
		items = strings.Split(values.ToString(raw), ",")
	}

	out := items[:0]

	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func boolParam(params map[string]any, key string) bool {
	return cast.ToBool(params[key])
}

func timeParam(params map[string]any, key string) (time.Time, bool) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return time.Time{}, false
	}

	t, err := cast.ToTimeE(raw)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
