package dynio

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

func sample() dynvalue.Value {
	return dynvalue.NewObject(
		dynvalue.Prop("name", dynvalue.String("calc")),
		dynvalue.Prop("ids", dynvalue.NewArray(dynvalue.Int64(1), dynvalue.Double(2.5), dynvalue.NewArray())),
		dynvalue.Prop("nested", dynvalue.NewObject(dynvalue.Prop("ok", dynvalue.Bool(true)))),
		dynvalue.Prop("none", dynvalue.Null()),
	)
}

func TestValueReaderTraversal(t *testing.T) {
	t.Parallel()

	r := NewValueReader(sample())
	require.Equal(t, dynvalue.TypeObject, r.ValueType())

	name, ok := r.NextObjectProperty()
	require.True(t, ok)
	assert.Equal(t, "name", name)
	assert.Equal(t, "calc", r.ReadString())

	name, ok = r.NextObjectProperty()
	require.True(t, ok)
	assert.Equal(t, "ids", name)
	require.Equal(t, dynvalue.TypeArray, r.ValueType())
	require.True(t, r.NextArrayItem())
	assert.Equal(t, int64(1), r.ReadInt64())
	require.True(t, r.NextArrayItem())
	assert.Equal(t, 2.5, r.ReadDouble())
	assert.Equal(t, int64(2), r.ReadInt64(), "doubles truncate")
	require.True(t, r.NextArrayItem())
	assert.Equal(t, dynvalue.TypeArray, r.ValueType())
	assert.False(t, r.NextArrayItem(), "entering the empty array exhausts it")
	assert.Equal(t, 2, r.Depth())
	assert.False(t, r.NextArrayItem(), "then the ids array is exhausted")
	assert.Equal(t, 1, r.Depth())

	name, ok = r.NextObjectProperty()
	require.True(t, ok)
	assert.Equal(t, "nested", name)
	inner, ok := r.NextObjectProperty()
	require.True(t, ok)
	assert.Equal(t, "ok", inner)
	assert.True(t, r.ReadBoolean())
	_, ok = r.NextObjectProperty()
	assert.False(t, ok)

	name, ok = r.NextObjectProperty()
	require.True(t, ok)
	assert.Equal(t, "none", name)
	assert.Equal(t, dynvalue.TypeNull, r.ValueType())

	_, ok = r.NextObjectProperty()
	assert.False(t, ok)
	assert.Equal(t, 0, r.Depth())
	_, ok = r.NextObjectProperty()
	assert.False(t, ok, "the root stays exhausted")
}

func TestValueReaderForgivingGetters(t *testing.T) {
	t.Parallel()

	r := NewValueReader(dynvalue.String("x"))
	assert.Equal(t, int64(0), r.ReadInt64())
	assert.Equal(t, 0.0, r.ReadDouble())
	assert.False(t, r.ReadBoolean())
	assert.Equal(t, "x", r.ReadString())

	r = NewValueReader(dynvalue.Int64(3))
	assert.Equal(t, "", r.ReadString())
	assert.True(t, r.ReadBoolean())
	assert.Equal(t, 3.0, r.ReadDouble())

	r = NewValueReader(dynvalue.Double(math.NaN()))
	assert.Equal(t, int64(0), r.ReadInt64())
}

func TestValueReaderWrongContainerKind(t *testing.T) {
	t.Parallel()

	v := dynvalue.NewArray(
		dynvalue.NewObject(dynvalue.Prop("a", dynvalue.Int64(1))),
		dynvalue.Int64(2),
	)
	r := NewValueReader(v)
	_, ok := r.NextObjectProperty()
	assert.False(t, ok, "root is an array")
	assert.False(t, r.NextArrayItem(), "the mismatched root was consumed")

	r = NewValueReader(v)
	require.True(t, r.NextArrayItem())
	require.Equal(t, dynvalue.TypeObject, r.ValueType())
	assert.False(t, r.NextArrayItem(), "object item is not an array, and is skipped")
	require.True(t, r.NextArrayItem())
	assert.Equal(t, int64(2), r.ReadInt64())
}

func TestValueReaderScalarGetterConsumesContainer(t *testing.T) {
	t.Parallel()

	r := NewValueReader(dynvalue.NewArray(dynvalue.NewArray(dynvalue.Int64(9)), dynvalue.Int64(5)))
	require.True(t, r.NextArrayItem())
	assert.Equal(t, "", r.ReadString())
	require.True(t, r.NextArrayItem(), "advances the outer array")
	assert.Equal(t, int64(5), r.ReadInt64())
}

func TestSkipValue(t *testing.T) {
	t.Parallel()

	r := NewValueReader(sample())
	var names []string
	for {
		name, ok := r.NextObjectProperty()
		if !ok {
			break
		}
		names = append(names, name)
		SkipValue(r)
	}
	assert.Equal(t, []string{"name", "ids", "nested", "none"}, names)
}

func TestSkipValueGenericReader(t *testing.T) {
	t.Parallel()

	r := &wrappedReader{NewValueReader(sample())}
	_, ok := r.NextObjectProperty()
	require.True(t, ok)
	_, ok = r.NextObjectProperty()
	require.True(t, ok)
	SkipValue(r)
	name, ok := r.NextObjectProperty()
	require.True(t, ok)
	assert.Equal(t, "nested", name)
}

// wrappedReader hides the concrete type, forcing the generic code paths.
type wrappedReader struct{ Reader }

func TestReadValue(t *testing.T) {
	t.Parallel()

	for _, r := range []Reader{NewValueReader(sample()), &wrappedReader{NewValueReader(sample())}} {
		got := ReadValue(r)
		assert.True(t, got.Equals(sample()), "got %v", got)
		assert.Equal(t, []string{"name", "ids", "nested", "none"}, got.AsObject().Keys())
	}
}

func TestWriterBuildsNestedValue(t *testing.T) {
	t.Parallel()

	w := NewValueWriter()
	require.NoError(t, w.WriteObjectBegin())
	require.NoError(t, w.WritePropertyName("name"))
	require.NoError(t, w.WriteString("calc"))
	require.NoError(t, w.WritePropertyName("ids"))
	require.NoError(t, w.WriteArrayBegin())
	require.NoError(t, w.WriteInt64(1))
	require.NoError(t, w.WriteDouble(2.5))
	require.NoError(t, w.WriteArrayBegin())
	require.NoError(t, w.WriteArrayEnd())
	require.NoError(t, w.WriteArrayEnd())
	require.NoError(t, w.WritePropertyName("nested"))
	require.NoError(t, w.WriteObjectBegin())
	require.NoError(t, w.WritePropertyName("ok"))
	require.NoError(t, w.WriteBoolean(true))
	require.NoError(t, w.WriteObjectEnd())
	require.NoError(t, w.WritePropertyName("none"))
	require.NoError(t, w.WriteNull())
	assert.Equal(t, StatePropertyName, w.State())
	require.NoError(t, w.WriteObjectEnd())
	assert.Equal(t, StateFinish, w.State())

	v, err := w.TakeValue()
	require.NoError(t, err)
	assert.True(t, v.Equals(sample()))
	assert.Equal(t, StateStart, w.State(), "TakeValue resets")
}

func TestWriterStateMachineViolations(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		steps func(w *ValueWriter) error
		state State
	}{
		{"object end before begin", func(w *ValueWriter) error {
			return w.WriteObjectEnd()
		}, StateStart},
		{"property name at start", func(w *ValueWriter) error {
			return w.WritePropertyName("x")
		}, StateStart},
		{"property name while awaiting a value", func(w *ValueWriter) error {
			_ = w.WriteObjectBegin()
			_ = w.WritePropertyName("a")
			return w.WritePropertyName("b")
		}, StatePropertyValue},
		{"scalar inside object without name", func(w *ValueWriter) error {
			_ = w.WriteObjectBegin()
			return w.WriteInt64(1)
		}, StatePropertyName},
		{"container inside object without name", func(w *ValueWriter) error {
			_ = w.WriteObjectBegin()
			return w.WriteArrayBegin()
		}, StatePropertyName},
		{"second root scalar", func(w *ValueWriter) error {
			_ = w.WriteInt64(1)
			return w.WriteInt64(2)
		}, StateFinish},
		{"array end inside object", func(w *ValueWriter) error {
			_ = w.WriteObjectBegin()
			return w.WriteArrayEnd()
		}, StatePropertyName},
		{"object end inside array", func(w *ValueWriter) error {
			_ = w.WriteArrayBegin()
			return w.WriteObjectEnd()
		}, StateArrayElement},
		{"object end with pending value", func(w *ValueWriter) error {
			_ = w.WriteObjectBegin()
			_ = w.WritePropertyName("a")
			return w.WriteObjectEnd()
		}, StatePropertyValue},
		{"take before finish", func(w *ValueWriter) error {
			_ = w.WriteArrayBegin()
			_, err := w.TakeValue()
			return err
		}, StateArrayElement},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := NewValueWriter()
			err := tc.steps(w)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOperation)
			var se *StateError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tc.state, se.State)
			assert.Equal(t, tc.state, w.State(), "a rejected call does not change state")
		})
	}
}

func TestWriteValue(t *testing.T) {
	t.Parallel()

	w := NewValueWriter()
	require.NoError(t, w.WriteArrayBegin())
	require.NoError(t, WriteValue(w, sample()))
	require.NoError(t, WriteValue(w, dynvalue.Int64(7)))
	require.NoError(t, w.WriteArrayEnd())
	v, err := w.TakeValue()
	require.NoError(t, err)
	assert.True(t, v.Equals(dynvalue.NewArray(sample(), dynvalue.Int64(7))))

	err = WriteValue(w, dynvalue.Null())
	require.NoError(t, err)
	err = WriteValue(w, dynvalue.Null())
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestCopyValueThroughGenericWriter(t *testing.T) {
	t.Parallel()

	rec := &recordingWriter{}
	require.NoError(t, CopyValue(NewValueReader(dynvalue.NewArray(dynvalue.Int64(1), dynvalue.NewObject(dynvalue.Prop("k", dynvalue.String("v"))))), rec))
	assert.Equal(t, []string{"[", "i:1", "{", "k", "s:v", "}", "]"}, rec.ops)
}

type recordingWriter struct{ ops []string }

func (w *recordingWriter) add(op string) error {
	w.ops = append(w.ops, op)
	return nil
}

func (w *recordingWriter) WriteNull() error { return w.add("null") }
func (w *recordingWriter) WriteBoolean(v bool) error { return w.add("b") }
func (w *recordingWriter) WriteInt64(v int64) error { return w.add("i:" + dynvalue.Int64(v).AsString()) }
func (w *recordingWriter) WriteDouble(v float64) error { return w.add("d") }
func (w *recordingWriter) WriteString(v string) error { return w.add("s:" + v) }
func (w *recordingWriter) WriteObjectBegin() error { return w.add("{") }
func (w *recordingWriter) WritePropertyName(n string) error { return w.add(n) }
func (w *recordingWriter) WriteObjectEnd() error { return w.add("}") }
func (w *recordingWriter) WriteArrayBegin() error { return w.add("[") }
func (w *recordingWriter) WriteArrayEnd() error { return w.add("]") }

func TestDeepNestingIsIterative(t *testing.T) {
	t.Parallel()

	const depth = 200000
	v := dynvalue.Int64(1)
	for range depth {
		v = dynvalue.NewArray(v)
	}
	w := NewValueWriter()
	require.NoError(t, CopyValue(&wrappedReader{NewValueReader(v)}, w))
	out, err := w.TakeValue()
	require.NoError(t, err)
	for range depth {
		out = out.Index(0)
	}
	assert.True(t, out.Equals(dynvalue.Int64(1)))
}
