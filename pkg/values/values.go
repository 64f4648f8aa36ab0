// Package values normalises the loosely typed values carried by trigger
// payloads and variable bindings so operators and actions compare them
// consistently.
package values

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// Normalize maps every numeric representation to float64 and leaves other
// values untouched.
func Normalize(v any) any {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, json.Number:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return v
		}

		return f
	default:
		return v
	}
}

// ToNumber coerces v to a float64. Values that cannot be coerced yield NaN,
// so every ordered comparison against them is false.
func ToNumber(v any) float64 {
	switch x := Normalize(v).(type) {
	case nil:
		return math.NaN()
	case float64:
		return x
	case bool:
		if x {
			return 1
		}

		return 0
	case string:
		trimmed := strings.TrimSpace(x)
		if trimmed == "" {
			return 0
		}

		f, err := cast.ToFloat64E(trimmed)
		if err != nil {
			return math.NaN()
		}

		return f
	default:
		return math.NaN()
	}
}

// ToString renders v the way it is shown to users and matched by string
// operators. nil renders as the empty string; maps and slices as JSON.
func ToString(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64, bool:
		return cast.ToString(x)
	default:
		if s, err := cast.ToStringE(x); err == nil {
			return s
		}

		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}

		return string(data)
	}
}

// IsNumber reports whether v holds a numeric value that is not NaN.
func IsNumber(v any) bool {
	f, ok := Normalize(v).(float64)

	return ok && !math.IsNaN(f)
}

// IsArray reports whether v is a slice or an array.
func IsArray(v any) bool {
	if v == nil {
		return false
	}

	kind := reflect.TypeOf(v).Kind()

	return kind == reflect.Slice || kind == reflect.Array
}

// Len returns the length of a slice or array value, or -1.
func Len(v any) int {
	if !IsArray(v) {
		return -1
	}

	return reflect.ValueOf(v).Len()
}

// Items returns the elements of a slice or array value.
func Items(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}

	if !IsArray(v) {
		return nil
	}

	rv := reflect.ValueOf(v)
	items := make([]any, rv.Len())

	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items
}

// Truthy mirrors the usual scripting notion of truthiness: nil, false, 0,
// NaN and "" are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch x := Normalize(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// LooseEqual compares with type coercion: numbers, numeric strings and
// booleans compare by numeric value; nil only equals nil.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	a, b = Normalize(a), Normalize(b)

	switch x := a.(type) {
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case string, bool:
			return x == ToNumber(y)
		}
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case float64, bool:
			return ToNumber(x) == ToNumber(y)
		}
	case bool:
		switch y := b.(type) {
		case bool:
			return x == y
		case float64, string:
			return ToNumber(x) == ToNumber(y)
		}
	}

	return reflect.DeepEqual(a, b)
}

// StrictEqual compares type and value. All numeric representations count as
// the same type.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return reflect.DeepEqual(Normalize(a), Normalize(b))
}
