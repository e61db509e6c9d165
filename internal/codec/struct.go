package codec

import (
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// FieldSpec binds one property of an Object to a field of T. Create with
// Field.
type FieldSpec[T any] struct {
	name  string
	read  func(r dynio.Reader, t *T) error
	write func(w dynio.Writer, t *T) error
}

// Name returns the property name.
func (f FieldSpec[T]) Name() string { return f.name }

// Field declares a property named name whose value is the F returned by get
// and stored by set.
func Field[T, F any](name string, c Codec[F], get func(*T) F, set func(*T, F)) FieldSpec[T] {
	return FieldSpec[T]{
		name: name,
		read: func(r dynio.Reader, t *T) error {
			v, err := c.read(r)
			if err != nil {
				return err
			}
			set(t, v)
			return nil
		},
		write: func(w dynio.Writer, t *T) error { return c.write(w, get(t)) },
	}
}

// FieldRef is Field for an addressable field, e.g.
//
//	codec.FieldRef("X", codec.Int, func(p *Point) *int { return &p.X })
func FieldRef[T, F any](name string, c Codec[F], ref func(*T) *F) FieldSpec[T] {
	return Field(name, c,
		func(t *T) F { return *ref(t) },
		func(t *T, v F) { *ref(t) = v },
	)
}

// Struct returns a codec marshalling T as an Object with one property per
// field, written in declaration order. Reading skips unknown properties and
// leaves missing fields at their zero value; a non-Object reads as the zero
// T.
func Struct[T any](name string, fields ...FieldSpec[T]) Codec[T] {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := byName[f.name]; dup {
			panic(fmt.Sprintf("codec: struct %s: duplicate field %q", name, f.name))
		}
		byName[f.name] = i
	}
	return New(name, acceptTypes(dynvalue.TypeObject),
		func(r dynio.Reader) (T, error) {
			var out T
			if r.ValueType() != dynvalue.TypeObject {
				dynio.SkipValue(r)
				return out, nil
			}
			for {
				key, ok := r.NextObjectProperty()
				if !ok {
					return out, nil
				}
				i, known := byName[key]
				if !known {
					dynio.SkipValue(r)
					continue
				}
				if err := fields[i].read(r, &out); err != nil {
					var zero T
					return zero, fmt.Errorf("%s.%s: %w", name, key, err)
				}
			}
		},
		func(w dynio.Writer, v T) error {
			if err := w.WriteObjectBegin(); err != nil {
				return err
			}
			if err := writeFields(w, fields, &v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return w.WriteObjectEnd()
		},
	)
}

func writeFields[T any](w dynio.Writer, fields []FieldSpec[T], v *T) error {
	for _, f := range fields {
		if err := w.WritePropertyName(f.name); err != nil {
			return err
		}
		if err := f.write(w, v); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}
