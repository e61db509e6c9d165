package codec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Pointer returns a codec for *T that maps nil to Null.
func Pointer[T any](c Codec[T]) Codec[*T] {
	return New("*"+c.name,
		func(t dynvalue.Type) bool { return t == dynvalue.TypeNull || c.accepts(t) },
		func(r dynio.Reader) (*T, error) {
			if r.ValueType() == dynvalue.TypeNull {
				dynio.SkipValue(r)
				return nil, nil
			}
			v, err := c.read(r)
			if err != nil {
				return nil, err
			}
			return &v, nil
		},
		func(w dynio.Writer, v *T) error {
			if v == nil {
				return w.WriteNull()
			}
			return c.write(w, *v)
		},
	)
}

// Optional holds a value that may be absent. It marshals as the value or
// Null.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Valid: true} }

// OptionalOf returns a codec for Optional[T].
func OptionalOf[T any](c Codec[T]) Codec[Optional[T]] {
	return New("?"+c.name,
		func(t dynvalue.Type) bool { return t == dynvalue.TypeNull || c.accepts(t) },
		func(r dynio.Reader) (Optional[T], error) {
			if r.ValueType() == dynvalue.TypeNull {
				dynio.SkipValue(r)
				return Optional[T]{}, nil
			}
			v, err := c.read(r)
			if err != nil {
				return Optional[T]{}, err
			}
			return Some(v), nil
		},
		func(w dynio.Writer, v Optional[T]) error {
			if !v.Valid {
				return w.WriteNull()
			}
			return c.write(w, v.Value)
		},
	)
}

var arrayOrNull = acceptTypes(dynvalue.TypeArray, dynvalue.TypeNull)

// Slice returns a codec marshalling []T as an Array. A nil slice marshals as
// Null, and anything other than an Array reads as nil.
func Slice[T any](c Codec[T]) Codec[[]T] {
	return New("[]"+c.name, arrayOrNull,
		func(r dynio.Reader) ([]T, error) {
			if r.ValueType() != dynvalue.TypeArray {
				dynio.SkipValue(r)
				return nil, nil
			}
			out := []T{}
			for i := 0; r.NextArrayItem(); i++ {
				v, err := c.read(r)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, v)
			}
			return out, nil
		},
		func(w dynio.Writer, v []T) error {
			if v == nil {
				return w.WriteNull()
			}
			if err := w.WriteArrayBegin(); err != nil {
				return err
			}
			for i, item := range v {
				if err := c.write(w, item); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return w.WriteArrayEnd()
		},
	)
}

var objectOrNull = acceptTypes(dynvalue.TypeObject, dynvalue.TypeNull)

// Map returns a codec marshalling map[string]V as an Object, one property per
// key. Keys are written in sorted order. A nil map marshals as Null.
func Map[V any](c Codec[V]) Codec[map[string]V] {
	return New("map[string]"+c.name, objectOrNull,
		func(r dynio.Reader) (map[string]V, error) {
			if r.ValueType() != dynvalue.TypeObject {
				dynio.SkipValue(r)
				return nil, nil
			}
			out := map[string]V{}
			for {
				key, ok := r.NextObjectProperty()
				if !ok {
					return out, nil
				}
				v, err := c.read(r)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				out[key] = v
			}
		},
		func(w dynio.Writer, v map[string]V) error {
			if v == nil {
				return w.WriteNull()
			}
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if err := w.WriteObjectBegin(); err != nil {
				return err
			}
			for _, k := range keys {
				if err := w.WritePropertyName(k); err != nil {
					return err
				}
				if err := c.write(w, v[k]); err != nil {
					return fmt.Errorf("%s: %w", k, err)
				}
			}
			return w.WriteObjectEnd()
		},
	)
}

// Tuple2 is a fixed-arity pair, marshalled positionally as an Array.
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// Tuple3 is a fixed-arity triple, marshalled positionally as an Array.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// Tuple4 is a fixed-arity quadruple, marshalled positionally as an Array.
type Tuple4[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// positional is one slot of a tuple.
type positional[T any] struct {
	codec interface {
		Name() string
		Accepts(dynvalue.Type) bool
	}
	read  func(r dynio.Reader, t *T) error
	write func(w dynio.Writer, t *T) error
}

func slot[T, F any](c Codec[F], get func(*T) *F) positional[T] {
	return positional[T]{
		codec: c,
		read: func(r dynio.Reader, t *T) (err error) {
			*get(t), err = c.read(r)
			return err
		},
		write: func(w dynio.Writer, t *T) error { return c.write(w, *get(t)) },
	}
}

// tuple builds an Array codec from slots. Missing trailing items leave their
// slots at zero; extra items are skipped.
func tuple[T any](slots ...positional[T]) Codec[T] {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = s.codec.Name()
	}
	return New("("+strings.Join(names, ", ")+")", acceptTypes(dynvalue.TypeArray),
		func(r dynio.Reader) (T, error) {
			var out T
			if r.ValueType() != dynvalue.TypeArray {
				dynio.SkipValue(r)
				return out, nil
			}
			for i := 0; r.NextArrayItem(); i++ {
				if i >= len(slots) {
					dynio.SkipValue(r)
					continue
				}
				if err := slots[i].read(r, &out); err != nil {
					var zero T
					return zero, fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return out, nil
		},
		func(w dynio.Writer, v T) error {
			if err := w.WriteArrayBegin(); err != nil {
				return err
			}
			for i, s := range slots {
				if err := s.write(w, &v); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			return w.WriteArrayEnd()
		},
	)
}

// TupleOf2 returns a codec for Tuple2.
func TupleOf2[A, B any](a Codec[A], b Codec[B]) Codec[Tuple2[A, B]] {
	return tuple(
		slot(a, func(t *Tuple2[A, B]) *A { return &t.First }),
		slot(b, func(t *Tuple2[A, B]) *B { return &t.Second }),
	)
}

// TupleOf3 returns a codec for Tuple3.
func TupleOf3[A, B, C any](a Codec[A], b Codec[B], c Codec[C]) Codec[Tuple3[A, B, C]] {
	return tuple(
		slot(a, func(t *Tuple3[A, B, C]) *A { return &t.First }),
		slot(b, func(t *Tuple3[A, B, C]) *B { return &t.Second }),
		slot(c, func(t *Tuple3[A, B, C]) *C { return &t.Third }),
	)
}

// TupleOf4 returns a codec for Tuple4.
func TupleOf4[A, B, C, D any](a Codec[A], b Codec[B], c Codec[C], d Codec[D]) Codec[Tuple4[A, B, C, D]] {
	return tuple(
		slot(a, func(t *Tuple4[A, B, C, D]) *A { return &t.First }),
		slot(b, func(t *Tuple4[A, B, C, D]) *B { return &t.Second }),
		slot(c, func(t *Tuple4[A, B, C, D]) *C { return &t.Third }),
		slot(d, func(t *Tuple4[A, B, C, D]) *D { return &t.Fourth }),
	)
}
