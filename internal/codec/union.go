package codec

import (
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// DefaultDiscriminator is the property naming the active variant of a union.
const DefaultDiscriminator = "Kind"

// VariantSpec is one shape of a union over T. Create with Variant or Case.
type VariantSpec[T any] struct {
	kind  string
	match func(T) bool
	read  func(r dynio.Reader) (T, error)
	write func(v T) (dynvalue.Value, error)
}

// Kind returns the discriminator value selecting this variant.
func (v VariantSpec[T]) Kind() string { return v.kind }

// Variant declares the shape kind, marshalled by c, which must produce
// Objects. wrap converts the shape into the union type; unwrap reports
// whether a union value holds this shape.
func Variant[T, V any](kind string, c Codec[V], wrap func(V) T, unwrap func(T) (V, bool)) VariantSpec[T] {
	return VariantSpec[T]{
		kind: kind,
		match: func(t T) bool {
			_, ok := unwrap(t)
			return ok
		},
		read: func(r dynio.Reader) (T, error) {
			v, err := c.read(r)
			if err != nil {
				var zero T
				return zero, err
			}
			return wrap(v), nil
		},
		write: func(t T) (dynvalue.Value, error) {
			v, _ := unwrap(t)
			return Marshal(c, v)
		},
	}
}

// Case is Variant for a union type T implemented by V, typically an
// interface implemented by a pointer to a struct.
func Case[T, V any](kind string, c Codec[V]) VariantSpec[T] {
	var zero V
	if _, ok := any(zero).(T); !ok {
		panic(fmt.Sprintf("codec: case %q: %T does not implement the union type", kind, zero))
	}
	return Variant(kind, c,
		func(v V) T { return any(v).(T) },
		func(t T) (V, bool) {
			v, ok := any(t).(V)
			return v, ok
		},
	)
}

// Union returns a codec for a closed sum type using DefaultDiscriminator.
func Union[T any](name string, variants ...VariantSpec[T]) Codec[T] {
	return UnionOn(name, DefaultDiscriminator, variants...)
}

// UnionOn returns a codec for a closed sum type marshalled as an Object that
// carries the variant's kind under the discriminator property.
//
// Reading buffers the Object, so the discriminator may appear anywhere among
// its properties, then re-reads it with the selected variant. Writing emits
// the discriminator first, then the variant's own properties.
func UnionOn[T any](name, discriminator string, variants ...VariantSpec[T]) Codec[T] {
	byKind := make(map[string]int, len(variants))
	for i, v := range variants {
		if _, dup := byKind[v.kind]; dup {
			panic(fmt.Sprintf("codec: union %s: duplicate kind %q", name, v.kind))
		}
		byKind[v.kind] = i
	}
	return New(name, acceptTypes(dynvalue.TypeObject),
		func(r dynio.Reader) (T, error) {
			var zero T
			if t := r.ValueType(); t != dynvalue.TypeObject {
				dynio.SkipValue(r)
				return zero, &MismatchError{Expected: name, Got: t}
			}
			buffered := dynio.ReadValue(r)
			kind, ok := buffered.Property(discriminator).TryString()
			if !ok {
				return zero, fmt.Errorf("%w: %s has no string %s property", ErrMissingKind, name, discriminator)
			}
			i, ok := byKind[kind]
			if !ok {
				return zero, fmt.Errorf("%w %q for %s", ErrUnknownKind, kind, name)
			}
			v, err := variants[i].read(dynio.NewValueReader(buffered))
			if err != nil {
				return zero, fmt.Errorf("%s(%s): %w", name, kind, err)
			}
			return v, nil
		},
		func(w dynio.Writer, v T) error {
			var variant *VariantSpec[T]
			for i := range variants {
				if variants[i].match(v) {
					variant = &variants[i]
					break
				}
			}
			if variant == nil {
				return fmt.Errorf("%w: %s has no variant for %T", ErrUnknownKind, name, v)
			}
			body, err := variant.write(v)
			if err != nil {
				return fmt.Errorf("%s(%s): %w", name, variant.kind, err)
			}
			obj, ok := body.TryObject()
			if !ok {
				return &MismatchError{Expected: name + "(" + variant.kind + ") object", Got: body.Type()}
			}
			if err := w.WriteObjectBegin(); err != nil {
				return err
			}
			if err := w.WritePropertyName(discriminator); err != nil {
				return err
			}
			if err := w.WriteString(variant.kind); err != nil {
				return err
			}
			for i := 0; i < obj.Len(); i++ {
				key := obj.KeyAt(i)
				if key == discriminator {
					continue
				}
				if err := w.WritePropertyName(key); err != nil {
					return err
				}
				prop, _ := obj.Get(key)
				if err := dynio.WriteValue(w, prop); err != nil {
					return err
				}
			}
			return w.WriteObjectEnd()
		},
	)
}
