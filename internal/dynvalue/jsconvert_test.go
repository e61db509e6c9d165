package dynvalue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatJSNumber(t *testing.T) {
	t.Parallel()
	tenth, fifth := 0.1, 0.2

	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1.5, "1.5"},
		{-1.5, "-1.5"},
		{100, "100"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e21, "1.5e+21"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.23e-18, "1.23e-18"},
		{tenth + fifth, "0.30000000000000004"},
		{123.456, "123.456"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.MaxFloat64, "1.7976931348623157e+308"},
		{5e-324, "5e-324"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatJSNumber(tc.in), "FormatJSNumber(%v)", tc.in)
	}
}

func TestStringToNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{" 42 ", 42},
		{" \t7\n", 7},
		{"+5", 5},
		{"-5.5", -5.5},
		{".5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"1E-2", 0.01},
		{"0x1F", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"1e400", math.Inf(1)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StringToNumber(tc.in), "StringToNumber(%q)", tc.in)
	}

	for _, in := range []string{"abc", "inf", "NaN", "nan", "1_000", "0x", "-0x10", "0x1p-2", "1e", ".", "+", "12abc", "infinity"} {
		assert.True(t, math.IsNaN(StringToNumber(in)), "StringToNumber(%q) should be NaN", in)
	}
}

func TestAsJSString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{Bool(false), "false"},
		{Int64(42), "42"},
		{Int64(1 << 53), "9007199254740992"},
		{Int64(1 << 60), "1152921504606847000"},
		{Int64(-1 << 60), "-1152921504606847000"},
		{Int64(math.MaxInt64), "9223372036854776000"},
		{Double(1e21), "1e+21"},
		{Double(math.NaN()), "NaN"},
		{String("s"), "s"},
		{NewArray(), ""},
		{NewArray(Int64(1), Null(), String("x")), "1,,x"},
		{NewArray(NewArray(Int64(1), Int64(2)), Int64(3)), "1,2,3"},
		{NewArray(NewObject()), "[object Object]"},
		{NewObject(Prop("a", Int64(1))), "[object Object]"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.v.AsJSString(), "AsJSString(%v)", tc.v)
	}
}

func TestAsJSBoolean(t *testing.T) {
	t.Parallel()

	assert.False(t, Null().AsJSBoolean())
	assert.False(t, String("").AsJSBoolean())
	assert.True(t, String("false").AsJSBoolean(), "any non-empty string is truthy")
	assert.True(t, String("0").AsJSBoolean())
	assert.False(t, Int64(0).AsJSBoolean())
	assert.False(t, Double(math.NaN()).AsJSBoolean())
	assert.False(t, Double(math.Copysign(0, -1)).AsJSBoolean())
	assert.True(t, NewArray().AsJSBoolean())
	assert.True(t, NewObject().AsJSBoolean())
}

func TestAsJSNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Null().AsJSNumber())
	assert.Equal(t, 1.0, Bool(true).AsJSNumber())
	assert.Equal(t, 0.0, NewArray().AsJSNumber())
	assert.Equal(t, 7.0, NewArray(String(" 7 ")).AsJSNumber())
	assert.Equal(t, 0.0, NewArray(Null()).AsJSNumber())
	assert.True(t, math.IsNaN(NewArray(Int64(1), Int64(2)).AsJSNumber()))
	assert.True(t, math.IsNaN(NewObject().AsJSNumber()))
	assert.True(t, math.IsNaN(String("true").AsJSNumber()))
}
