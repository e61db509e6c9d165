package scripting

import (
	"math"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

func fromScript(t *testing.T, vm *goja.Runtime, src string, maxDepth int) (dynvalue.Value, error) {
	t.Helper()
	v, err := vm.RunString("(" + src + ")")
	require.NoError(t, err)
	return FromValue(vm, v, maxDepth)
}

func TestFromValue(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name string
		src  string
		want string
	}{
		{"integer", `3`, `3`},
		{"fraction", `1.5`, `1.5`},
		{"integral double", `4.0`, `4`},
		{"string", `"hi"`, `"hi"`},
		{"boolean", `true`, `true`},
		{"null", `null`, `null`},
		{"undefined", `undefined`, `null`},
		{"function", `function () {}`, `null`},
		{"symbol", `Symbol("s")`, `null`},
		{"symbol property", `{s: Symbol("x"), n: 1}`, `{"s":null,"n":1}`},
		{"symbol item", `[Symbol.iterator, 2]`, `[null,2]`},
		{"key order", `{b: 1, a: 2, c: {z: true, y: false}}`, `{"b":1,"a":2,"c":{"z":true,"y":false}}`},
		{"nested array", `[1, [2, "x"], {}]`, `[1,[2,"x"],{}]`},
		{"function property", `{f: function () {}, n: 1}`, `{"f":null,"n":1}`},
		{"hole", `[1, , 3]`, `[1,null,3]`},
		{"date", `new Date(Date.UTC(2024, 0, 2, 3, 4, 5, 6))`, `"2024-01-02T03:04:05.006Z"`},
		{"bigint", `10n`, `10`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v, err := fromScript(t, goja.New(), tc.src, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.String())
		})
	}
}

func TestFromValueNumericRule(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	v, err := fromScript(t, vm, `-0`, 0)
	require.NoError(t, err)
	f, ok := v.TryDouble()
	require.True(t, ok, "negative zero stays a double")
	assert.True(t, math.Signbit(f))

	v, err = fromScript(t, vm, `2 ** 60`, 0)
	require.NoError(t, err)
	assert.Equal(t, dynvalue.TypeDouble, v.Type())

	v, err = fromScript(t, vm, `2 ** 53`, 0)
	require.NoError(t, err)
	assert.Equal(t, dynvalue.TypeInt64, v.Type())

	v, err = fromScript(t, vm, `NaN`, 0)
	require.NoError(t, err)
	f, _ = v.TryDouble()
	assert.True(t, math.IsNaN(f))
}

func TestFromValueRejectsCycles(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	_, err := fromScript(t, vm, `(() => { const o = {a: {}}; o.a.self = o; return o })()`, 0)
	assert.ErrorIs(t, err, ErrCyclic)
	assert.Contains(t, err.Error(), "a: self:")

	_, err = fromScript(t, vm, `(() => { const a = []; a.push(a); return a })()`, 0)
	assert.ErrorIs(t, err, ErrCyclic)

	// shared but acyclic
	v, err := fromScript(t, vm, `(() => { const s = {n: 1}; return [s, s] })()`, 0)
	require.NoError(t, err)
	assert.Equal(t, `[{"n":1},{"n":1}]`, v.String())
}

func TestFromValueMaxDepth(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	_, err := fromScript(t, vm, `[[[1]]]`, 2)
	assert.ErrorIs(t, err, ErrTooDeep)

	v, err := fromScript(t, vm, `[[1]]`, 2)
	require.NoError(t, err)
	assert.Equal(t, `[[1]]`, v.String())

	_, err = fromScript(t, vm, `(() => { let v = 0; for (let i = 0; i < 100; i++) v = [v]; return v })()`, 0)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestFromValueArrayLength(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	_, err := fromScript(t, vm, `(() => { const a = []; a[1e9] = 1; return a })()`, 0)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = fromScript(t, vm, `{nested: [0, (() => { const a = []; a.length = 2 ** 32 - 1; return a })()]}`, 0)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "nested: [1]:")

	v, err := fromScript(t, vm, `(() => { const a = []; a[4] = "x"; return a })()`, 0)
	require.NoError(t, err)
	assert.Equal(t, `[null,null,null,null,"x"]`, v.String())
}

func TestToValue(t *testing.T) {
	t.Parallel()
	vm := goja.New()

	v := dynvalue.NewObject(
		dynvalue.Prop("z", dynvalue.Int64(1)),
		dynvalue.Prop("a", dynvalue.NewArray(dynvalue.Double(1.5), dynvalue.String("s"), dynvalue.Null())),
		dynvalue.Prop("ok", dynvalue.Bool(true)),
	)
	require.NoError(t, vm.Set("v", ToValue(vm, v)))
	out, err := vm.RunString(`JSON.stringify(v) + "|" + Object.keys(v).join(",") + "|" + Array.isArray(v.a)`)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[1.5,"s",null],"ok":true}|z,a,ok|true`, out.String())

	assert.True(t, goja.IsNull(ToValue(vm, dynvalue.Null())))
}

func TestToValueFromValueRoundTrip(t *testing.T) {
	t.Parallel()
	vm := goja.New()
	v := dynvalue.NewObject(
		dynvalue.Prop("list", dynvalue.NewArray(dynvalue.Int64(-4), dynvalue.Double(0.25))),
		dynvalue.Prop("name", dynvalue.String("x")),
	)
	back, err := FromValue(vm, ToValue(vm, v), 0)
	require.NoError(t, err)
	assert.True(t, v.Equals(back), back.String())
}
