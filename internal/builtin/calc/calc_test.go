package calc

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/joeycumines/go-nativebridge/internal/testutil"
)

func newHost(t *testing.T) (*bridge.Host, *testutil.Outbound) {
	t.Helper()
	reg := bridge.NewRegistry()
	reg.MustRegister(Name, Provider(nil))
	h, out, col := testutil.NewHost(t, reg)
	t.Cleanup(func() {
		assert.Empty(t, col.Reports())
	})
	return h, out
}

func args(t *testing.T, v ...any) dynvalue.Value {
	t.Helper()
	items := make([]dynvalue.Value, len(v))
	for i, x := range v {
		dv, err := dynvalue.FromAny(x)
		require.NoError(t, err)
		items[i] = dv
	}
	return dynvalue.NewArray(items...)
}

func TestAddResolves(t *testing.T) {
	t.Parallel()
	h, out := newHost(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "add", args(t, 3, 5, 1, 2)))
	f := out.WaitResult(t, 1, 2)
	assert.Equal(t, int64(1), f.ChannelID)
	assert.Equal(t, `[8]`, f.Args.String())
}

func TestDivideRejectsDivisionByZero(t *testing.T) {
	t.Parallel()
	h, out := newHost(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "divide", args(t, 6, 0, 1, 2)))
	f := out.WaitResult(t, 1, 2)
	assert.Equal(t, int64(2), f.ChannelID)
	payload := bridge.ParseErrorPayload(f.Args.AsArray().Items()[0])
	assert.Equal(t, ErrDivisionByZero, payload.Message)
	assert.Equal(t, `{"message":"Division by 0","code":"E_DIVIDE","dividend":6}`, f.Args.AsArray().Items()[0].String())

	require.NoError(t, h.InvokeByName(context.Background(), Name, "divide", args(t, 6, 4, 3, 4)))
	assert.Equal(t, `[1]`, out.WaitResult(t, 3).Args.String())
}

func TestQuotientRejectsWithPlainError(t *testing.T) {
	t.Parallel()
	h, out := newHost(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "quotient", args(t, 1, 0, 1, 2)))
	f := out.WaitResult(t, 2)
	assert.Equal(t, `[{"message":"quotient: Division by 0"}]`, f.Args.String())

	require.NoError(t, h.InvokeByName(context.Background(), Name, "quotient", args(t, 1, 4, 3, 4)))
	assert.Equal(t, `[0.25]`, out.WaitResult(t, 3).Args.String())
}

func TestSyncMethods(t *testing.T) {
	t.Parallel()
	h, _ := newHost(t)
	ctx := context.Background()

	v, err := h.InvokeSyncByName(ctx, Name, "multiply", args(t, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, `42`, v.String())

	points, err := codec.Marshal(codec.Slice(PointCodec), []Point{{1, 2}, {3, 4}, {5, 6}})
	require.NoError(t, err)
	v, err = h.InvokeSyncByName(ctx, Name, "centroid", dynvalue.NewArray(points))
	require.NoError(t, err)
	p, err := codec.Unmarshal(PointCodec, v)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 3, Y: 4}, p)

	_, err = h.InvokeSyncByName(ctx, Name, "centroid", args(t, []any{}))
	assert.EqualError(t, err, "centroid of no points")
}

func TestNegateCallback(t *testing.T) {
	t.Parallel()
	h, out := newHost(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "negate", args(t, 2.5, 9)))
	assert.Equal(t, `[-2.5]`, out.WaitResult(t, 9).Args.String())
}

func TestTranslate(t *testing.T) {
	t.Parallel()
	h, out := newHost(t)
	points, err := codec.Marshal(codec.Slice(PointCodec), []Point{{1, 2}, {3, 4}})
	require.NoError(t, err)
	call := dynvalue.NewArray(points, dynvalue.Int64(10), dynvalue.Int64(-1), dynvalue.Int64(1), dynvalue.Int64(2))
	require.NoError(t, h.InvokeByName(context.Background(), Name, "translate", call))
	assert.Equal(t, `[[{"X":11,"Y":1},{"X":13,"Y":3}]]`, out.WaitResult(t, 1).Args.String())
}

func TestArea(t *testing.T) {
	t.Parallel()
	h, _ := newHost(t)
	for _, tc := range []struct {
		name  string
		shape Shape
		want  float64
	}{
		{"circle", &Circle{Radius: 2}, 4 * math.Pi},
		{"rect", &Rect{Min: Point{1, 1}, Max: Point{4, 3}}, 6},
		{"polygon", &Polygon{Points: []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}}, 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := codec.Marshal(ShapeCodec, tc.shape)
			require.NoError(t, err)
			v, err := h.InvokeSyncByName(context.Background(), Name, "area", dynvalue.NewArray(s))
			require.NoError(t, err)
			assert.InDelta(t, tc.want, v.AsDouble(), 1e-9)
		})
	}

	// the discriminator need not come first
	shape := dynvalue.NewObject(
		dynvalue.Prop("Max", dynvalue.NewObject(dynvalue.Prop("X", dynvalue.Int64(2)), dynvalue.Prop("Y", dynvalue.Int64(5)))),
		dynvalue.Prop("Kind", dynvalue.String("rect")),
	)
	v, err := h.InvokeSyncByName(context.Background(), Name, "area", dynvalue.NewArray(shape))
	require.NoError(t, err)
	assert.Equal(t, float64(10), v.AsDouble())
}

func TestAreaUnknownKind(t *testing.T) {
	t.Parallel()
	h, _ := newHost(t)
	shape := dynvalue.NewObject(dynvalue.Prop("Kind", dynvalue.String("hexagon")))
	_, err := h.InvokeSyncByName(context.Background(), Name, "area", dynvalue.NewArray(shape))
	assert.ErrorIs(t, err, codec.ErrUnknownKind)
}

func TestConstants(t *testing.T) {
	t.Parallel()
	h, _ := newHost(t)
	c, ok := h.Constants(Name)
	require.True(t, ok)
	assert.Equal(t, `{"const1":"A","const2":{"X":1,"Y":2},"maxSafeInteger":9007199254740992}`, c.String())
}

func TestMethodShapes(t *testing.T) {
	t.Parallel()
	h, _ := newHost(t)
	shapes := map[string]bridge.ReturnShape{}
	for _, m := range h.ModuleConfigs()[0].Methods {
		shapes[m.Name] = m.Shape
	}
	assert.Equal(t, map[string]bridge.ReturnShape{
		"add":       bridge.ShapePromise,
		"divide":    bridge.ShapeTwoCallbacks,
		"quotient":  bridge.ShapePromise,
		"multiply":  bridge.ShapeSync,
		"negate":    bridge.ShapeCallback,
		"centroid":  bridge.ShapeSync,
		"translate": bridge.ShapePromise,
		"area":      bridge.ShapeSync,
		"log":       bridge.ShapeVoid,
	}, shapes)
}

func TestLog(t *testing.T) {
	t.Parallel()
	h, out := newHost(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "log", args(t, "hello")))
	assert.Empty(t, out.Results())
}
