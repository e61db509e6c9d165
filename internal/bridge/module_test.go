package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsBeforeInitialization(t *testing.T) {
	t.Parallel()
	var (
		tick  *Event[int]
		moved *Function[codec.Tuple2[int, point]]
	)
	reg := NewRegistry()
	reg.MustRegister("clock", func(b *ModuleBuilder) {
		tick = NewEvent(b, "tick", codec.Int)
		moved = NewFunction(b, "Listener", "moved", codec.TupleOf2(codec.Int, pointCodec))
	})

	// Providers only run inside NewHost, so build the handles by hand.
	b := newModuleBuilder("early")
	early := NewEvent(b, "tick", codec.Int)
	assert.ErrorIs(t, early.Emit(1), ErrNotInitialized)
	assert.ErrorIs(t, Emitter{}.Emit(), ErrNotInitialized)

	rec := &recorder{}
	_, err := NewHost(context.Background(), reg, rec)
	require.NoError(t, err)

	require.NoError(t, tick.Emit(7))
	require.NoError(t, moved.Call(codec.Tuple2[int, point]{First: 1, Second: point{X: 3, Y: 4}}))

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, DefaultEventEmitter, calls[0].Module)
	assert.Equal(t, "emit", calls[0].Method)
	assert.True(t, calls[0].Args.Equals(dynvalue.NewArray(dynvalue.String("tick"), dynvalue.Int64(7))), calls[0].Args.String())

	assert.Equal(t, "Listener", calls[1].Module)
	assert.Equal(t, "moved", calls[1].Method)
	assert.Equal(t, `[1,{"X":3,"Y":4}]`, calls[1].Args.String())
}

func TestFunctionWrapsNonArrayPayload(t *testing.T) {
	t.Parallel()
	var f *Function[point]
	reg := NewRegistry()
	reg.MustRegister("geo", func(b *ModuleBuilder) {
		f = NewFunction(b, "", "update", pointCodec)
	})
	rec := &recorder{}
	_, err := NewHost(context.Background(), reg, rec)
	require.NoError(t, err)

	require.NoError(t, f.Call(point{X: 1}))
	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "geo", calls[0].Module)
	assert.Equal(t, `[{"X":1,"Y":0}]`, calls[0].Args.String())
}

func TestInitializationOrder(t *testing.T) {
	t.Parallel()
	var steps []string
	reg := NewRegistry()
	for _, name := range []string{"first", "second"} {
		reg.MustRegister(name, func(b *ModuleBuilder) {
			steps = append(steps, "provide "+name)
			b.AddConstantProvider(func(w dynio.Writer) error {
				steps = append(steps, "constants "+name)
				return nil
			})
			b.AddEventHandlerSetter("ready", func(Emitter) {
				steps = append(steps, "wire "+name)
			})
			b.AddInitializer(func(_ context.Context, mc *ModuleContext) error {
				steps = append(steps, "init "+mc.Name())
				assert.Equal(t, 0, mc.Constants().Len())
				return mc.EmitEvent("ready", dynvalue.String(mc.Name()))
			})
		})
	}
	rec := &recorder{}
	_, err := NewHost(context.Background(), reg, rec, WithEventEmitter("Emitter"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"provide first", "provide second",
		"constants first", "constants second",
		"wire first", "wire second",
		"init first", "init second",
	}, steps)
	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Emitter", calls[0].Module)
	assert.Equal(t, `["ready","first"]`, calls[0].Args.String())
}

func TestModuleContextCallsAndCustomEmitter(t *testing.T) {
	t.Parallel()
	var mc *ModuleContext
	reg := NewRegistry()
	reg.MustRegister("m", func(b *ModuleBuilder) {
		b.SetEventEmitterName("CustomEmitter")
		b.AddInitializer(func(_ context.Context, c *ModuleContext) error {
			mc = c
			return nil
		})
	})
	rec := &recorder{}
	col := &diag.Collector{}
	h, err := NewHost(context.Background(), reg, rec, WithReporter(col))
	require.NoError(t, err)

	require.NoError(t, mc.EmitEvent("changed"))
	require.NoError(t, mc.CallFunction("AppRegistry", "run", dynvalue.String("main")))
	assert.NotNil(t, mc.Logger())
	assert.Same(t, h.Reporter(), mc.Reporter())

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, `["changed"]`, calls[0].Args.String())
	assert.Equal(t, "CustomEmitter", calls[0].Module)
	assert.Equal(t, "AppRegistry", calls[1].Module)
	assert.Equal(t, "run", calls[1].Method)
	assert.Equal(t, "CustomEmitter", h.ModuleConfigs()[0].EventEmitter)

	rec.mu.Lock()
	rec.fail = errors.New("closed")
	rec.mu.Unlock()
	assert.Error(t, mc.EmitEvent("changed"))
	assert.Equal(t, 1, col.Count(diag.KindOutbound))
}

func TestNewHostErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	handler := func(context.Context, dynio.Reader, ...Sink) error { return nil }

	for _, tc := range []struct {
		name     string
		provider ModuleProvider
		want     error
	}{
		{"duplicate method", func(b *ModuleBuilder) {
			b.AddMethod("a", ShapeVoid, handler)
			b.AddMethod("a", ShapePromise, handler)
		}, ErrDuplicate},
		{"duplicate event", func(b *ModuleBuilder) {
			b.AddEventHandlerSetter("e", func(Emitter) {})
			b.AddEventHandlerSetter("e", func(Emitter) {})
		}, ErrDuplicate},
		{"sync through AddMethod", func(b *ModuleBuilder) {
			b.AddMethod("a", ShapeSync, handler)
		}, ErrWrongShape},
		{"constant provider error", func(b *ModuleBuilder) {
			b.AddConstantProvider(func(dynio.Writer) error { return dynio.ErrInvalidOperation })
		}, dynio.ErrInvalidOperation},
		{"constant provider leaves a dangling name", func(b *ModuleBuilder) {
			b.AddConstantProvider(func(w dynio.Writer) error { return w.WritePropertyName("x") })
		}, dynio.ErrInvalidOperation},
		{"constant provider writes a bare value", func(b *ModuleBuilder) {
			b.AddConstantProvider(func(w dynio.Writer) error { return w.WriteInt64(1) })
		}, dynio.ErrInvalidOperation},
		{"initializer error", func(b *ModuleBuilder) {
			b.AddInitializer(func(context.Context, *ModuleContext) error { return context.Canceled })
		}, context.Canceled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.MustRegister("m", tc.provider)
			_, err := NewHost(ctx, reg, &recorder{})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := NewHost(ctx, NewRegistry(), nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	require.NoError(t, reg.Register("b", calcModule))
	require.NoError(t, reg.Register("a", calcModule))
	assert.ErrorIs(t, reg.Register("a", calcModule), ErrDuplicate)
	assert.Error(t, reg.Register("", calcModule))
	assert.Error(t, reg.Register("c", nil))
	assert.Panics(t, func() { reg.MustRegister("a", calcModule) })
	assert.Equal(t, []string{"b", "a"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
}

func TestAddConstants(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.MustRegister("geo", func(b *ModuleBuilder) {
		AddConstants(b, pointCodec, point{X: 5, Y: 6})
		b.AddConstant("name", dynvalue.String("geo"))
	})
	reg.MustRegister("bad", func(b *ModuleBuilder) {
		AddConstants(b, codec.Int, 1)
	})
	_, err := NewHost(context.Background(), reg, &recorder{})
	var mismatch *codec.MismatchError
	require.ErrorAs(t, err, &mismatch)

	reg = NewRegistry()
	reg.MustRegister("geo", func(b *ModuleBuilder) {
		AddConstants(b, pointCodec, point{X: 5, Y: 6})
		b.AddConstant("name", dynvalue.String("geo"))
	})
	h, err := NewHost(context.Background(), reg, &recorder{})
	require.NoError(t, err)
	constants, _ := h.Constants("geo")
	assert.Equal(t, `{"X":5,"Y":6,"name":"geo"}`, constants.String())
}

func TestParamsDecode(t *testing.T) {
	t.Parallel()
	p := Params3(codec.String, codec.Slice(codec.Int), pointCodec)
	assert.Equal(t, 3, p.Arity())
	assert.Equal(t, []string{"string", "[]int", "point"}, p.Names())

	got, err := p.Decode([]dynvalue.Value{
		dynvalue.String("s"),
		ints(1, 2),
		dynvalue.NewObject(dynvalue.Prop("X", dynvalue.String("oops")), dynvalue.Prop("Y", dynvalue.Double(2.9))),
	})
	require.NoError(t, err)
	assert.Equal(t, "s", got.First)
	assert.Equal(t, []int{1, 2}, got.Second)
	assert.Equal(t, point{X: 0, Y: 2}, got.Third, "nested contents are forgiving")

	_, err = p.Decode([]dynvalue.Value{dynvalue.String("s"), dynvalue.Int64(1), dynvalue.Null()})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 1, argErr.Index)
	assert.Equal(t, "bridge: argument 1: codec: expected []int, got Int64", err.Error())

	_, err = NoParams().Decode([]dynvalue.Value{dynvalue.Null()})
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 0, argErr.Index)
	assert.ErrorIs(t, err, ErrArgumentCount)

	_, err = Params1(codec.Int).Read(dynio.NewValueReader(dynvalue.String("x")))
	require.ErrorAs(t, err, &argErr)

	four, err := Params4(codec.Int, codec.Int, codec.Bool, codec.String).Decode([]dynvalue.Value{
		dynvalue.Int64(1), dynvalue.Double(2.5), dynvalue.Bool(true), dynvalue.String("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, codec.Tuple4[int, int, bool, string]{First: 1, Second: 2, Third: true, Fourth: "x"}, four)
}

func TestErrorPayload(t *testing.T) {
	t.Parallel()
	wrapped := errors.Join(errors.New("context"), NewJSError("not found", dynvalue.Prop("code", dynvalue.Int64(404)), dynvalue.Prop("message", dynvalue.String("ignored"))))
	p := ErrorPayloadFrom(wrapped)
	assert.Equal(t, "not found", p.Message)
	assert.Equal(t, `{"message":"not found","code":404}`, p.Value().String())

	assert.Equal(t, "plain", ErrorPayloadFrom(errors.New("plain")).Message)
	assert.Equal(t, ErrorPayload{}, ErrorPayloadFrom(nil))

	parsed := ParseErrorPayload(dynvalue.NewObject(dynvalue.Prop("code", dynvalue.Int64(1)), dynvalue.Prop("message", dynvalue.String("m"))))
	assert.Equal(t, "m", parsed.Message)
	require.Len(t, parsed.Extra, 1)
	assert.Equal(t, "code", parsed.Extra[0].Key)
	assert.Equal(t, "42", ParseErrorPayload(dynvalue.Int64(42)).Message)
}

func TestReturnShape(t *testing.T) {
	t.Parallel()
	for shape, want := range map[ReturnShape]struct {
		name  string
		count int
	}{
		ShapeVoid:         {"void", 0},
		ShapeCallback:     {"callback", 1},
		ShapeTwoCallbacks: {"twoCallbacks", 2},
		ShapePromise:      {"promise", 2},
		ShapeSync:         {"sync", 0},
	} {
		assert.Equal(t, want.name, shape.String())
		assert.Equal(t, want.count, shape.CallbackCount())
	}
	assert.Equal(t, "ReturnShape(9)", ReturnShape(9).String())
	assert.False(t, ShapeSync.IsAsync())
}
