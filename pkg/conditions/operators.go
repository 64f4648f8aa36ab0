package conditions

import (
	"math"
	"regexp"
	"strings"

	"github.com/dukex/autoflow/pkg/values"
)

// Operator names accepted in a condition. Symbolic aliases map to the same
// comparison as their spelled-out form.
const (
	OpEquals             = "equals"
	OpNotEquals          = "not_equals"
	OpStrictEquals       = "strict_equals"
	OpStrictNotEquals    = "strict_not_equals"
	OpGreaterThan        = "greater_than"
	OpGreaterThanOrEqual = "greater_than_or_equal"
	OpLessThan           = "less_than"
	OpLessThanOrEqual    = "less_than_or_equal"
	OpContains           = "contains"
	OpNotContains        = "not_contains"
	OpStartsWith         = "starts_with"
	OpEndsWith           = "ends_with"
	OpMatchesRegex       = "matches_regex"
	OpIsEmpty            = "is_empty"
	OpIsNotEmpty         = "is_not_empty"
	OpIsNull             = "is_null"
	OpIsNotNull          = "is_not_null"
	OpIsNumber           = "is_number"
	OpIsBoolean          = "is_boolean"
	OpIsArray            = "is_array"
	OpInRange            = "in_range"
	OpInList             = "in_list"
)

// operatorFunc compares a resolved field value against the condition value.
// It reports ok=false when the comparison value itself is malformed.
type operatorFunc func(field, value any) (result bool, ok bool)

var operators = map[string]operatorFunc{
	OpEquals:             always(values.LooseEqual),
	"==":                 always(values.LooseEqual),
	OpNotEquals:          always(not(values.LooseEqual)),
	"!=":                 always(not(values.LooseEqual)),
	OpStrictEquals:       always(values.StrictEqual),
	"===":                always(values.StrictEqual),
	OpStrictNotEquals:    always(not(values.StrictEqual)),
	"!==":                always(not(values.StrictEqual)),
	OpGreaterThan:        numeric(func(a, b float64) bool { return a > b }),
	">":                  numeric(func(a, b float64) bool { return a > b }),
	OpGreaterThanOrEqual: numeric(func(a, b float64) bool { return a >= b }),
	">=":                 numeric(func(a, b float64) bool { return a >= b }),
	OpLessThan:           numeric(func(a, b float64) bool { return a < b }),
	"<":                  numeric(func(a, b float64) bool { return a < b }),
	OpLessThanOrEqual:    numeric(func(a, b float64) bool { return a <= b }),
	"<=":                 numeric(func(a, b float64) bool { return a <= b }),
	OpContains:           text(strings.Contains),
	OpNotContains:        text(func(s, sub string) bool { return !strings.Contains(s, sub) }),
	OpStartsWith:         text(strings.HasPrefix),
	OpEndsWith:           text(strings.HasSuffix),
	OpMatchesRegex:       matchesRegex,
	OpIsEmpty:            unary(isEmpty),
	OpIsNotEmpty:         unary(func(v any) bool { return !isEmpty(v) }),
	OpIsNull:             unary(func(v any) bool { return v == nil }),
	OpIsNotNull:          unary(func(v any) bool { return v != nil }),
	OpIsNumber:           unary(values.IsNumber),
	OpIsBoolean: unary(func(v any) bool {
		_, ok := v.(bool)

		return ok
	}),
	OpIsArray: unary(values.IsArray),
	OpInRange: inRange,
	OpInList:  inList,
}

// Supported reports whether name is a known operator.
func Supported(name string) bool {
	_, ok := operators[name]

	return ok
}

func always(fn func(a, b any) bool) operatorFunc {
	return func(field, value any) (bool, bool) {
		return fn(field, value), true
	}
}

func not(fn func(a, b any) bool) func(a, b any) bool {
	return func(a, b any) bool {
		return !fn(a, b)
	}
}

func numeric(cmp func(a, b float64) bool) operatorFunc {
	return func(field, value any) (bool, bool) {
		return cmp(values.ToNumber(field), values.ToNumber(value)), true
	}
}

func text(fn func(s, sub string) bool) operatorFunc {
	return func(field, value any) (bool, bool) {
		s := strings.ToLower(values.ToString(field))
		sub := strings.ToLower(values.ToString(value))

		return fn(s, sub), true
	}
}

func unary(fn func(v any) bool) operatorFunc {
	return func(field, _ any) (bool, bool) {
		return fn(field), true
	}
}

func isEmpty(v any) bool {
	if !values.Truthy(v) {
		return true
	}

	return values.Len(v) == 0
}

func matchesRegex(field, value any) (bool, bool) {
	pattern, ok := value.(string)
	if !ok {
		return false, false
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, false
	}

	return re.MatchString(values.ToString(field)), true
}

// inRange accepts {"min": x, "max": y} or [x, y]; bounds are inclusive and a
// missing bound is open.
func inRange(field, value any) (bool, bool) {
	lower, upper := math.Inf(-1), math.Inf(1)

	switch bounds := value.(type) {
	case map[string]any:
		if v, ok := bounds["min"]; ok {
			lower = values.ToNumber(v)
		}

		if v, ok := bounds["max"]; ok {
			upper = values.ToNumber(v)
		}
	default:
		items := values.Items(value)
		if len(items) != 2 {
			return false, false
		}

		lower, upper = values.ToNumber(items[0]), values.ToNumber(items[1])
	}

	if math.IsNaN(lower) || math.IsNaN(upper) {
		return false, false
	}

	n := values.ToNumber(field)

	return n >= lower && n <= upper, true
}

// inList accepts an array or a comma separated string.
func inList(field, value any) (bool, bool) {
	var candidates []any

	equal := values.StrictEqual

	switch list := value.(type) {
	case string:
		for _, item := range strings.Split(list, ",") {
			candidates = append(candidates, strings.TrimSpace(item))
		}

		equal = values.LooseEqual
	default:
		if !values.IsArray(value) {
			return false, false
		}

		candidates = values.Items(value)
	}

	for _, candidate := range candidates {
		if equal(field, candidate) {
			return true, true
		}
	}

	return false, true
}
