package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	assert.InDelta(t, 10.0, ToNumber(10), 0)
	assert.InDelta(t, 2.5, ToNumber(" 2.5 "), 0)
	assert.InDelta(t, 1.0, ToNumber(true), 0)
	assert.InDelta(t, 0.0, ToNumber(""), 0)
	assert.True(t, math.IsNaN(ToNumber(nil)))
	assert.True(t, math.IsNaN(ToNumber("abc")))
	assert.True(t, math.IsNaN(ToNumber([]any{1})))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "10", ToString(10))
	assert.Equal(t, "1500.5", ToString(1500.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, `{"a":1}`, ToString(map[string]any{"a": 1}))
}

func TestLooseEqual(t *testing.T) {
	assert.True(t, LooseEqual(10, "10"))
	assert.True(t, LooseEqual(1.0, true))
	assert.True(t, LooseEqual("abc", "abc"))
	assert.True(t, LooseEqual(nil, nil))
	assert.False(t, LooseEqual(nil, ""))
	assert.False(t, LooseEqual(0, nil))
	assert.False(t, LooseEqual("abc", 1))
	assert.True(t, LooseEqual([]any{1.0}, []any{1.0}))
}

func TestStrictEqual(t *testing.T) {
	assert.True(t, StrictEqual(int64(3), 3.0))
	assert.False(t, StrictEqual(3, "3"))
	assert.False(t, StrictEqual(nil, 0))
}

func TestTruthyAndLen(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(""))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy([]any{}))

	assert.Equal(t, 2, Len([]string{"a", "b"}))
	assert.Equal(t, -1, Len("ab"))
	assert.Equal(t, []any{"a", "b"}, Items([]string{"a", "b"}))
	assert.True(t, IsArray([]int{}))
	assert.False(t, IsArray(map[string]any{}))
	assert.True(t, IsNumber(uint8(1)))
	assert.False(t, IsNumber(math.NaN()))
}
