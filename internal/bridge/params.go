package bridge

import (
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

type checker interface {
	Name() string
	Check(t dynvalue.Type) error
}

// Params decodes a positional argument list into P. The list must have
// exactly one item per declared parameter, and the top-level type of each
// item must be accepted by its codec; the contents of nested containers are
// read forgivingly.
type Params[P any] struct {
	checks []checker
	read   func(items []dynvalue.Value) (P, error)
}

// Arity returns the number of parameters.
func (p Params[P]) Arity() int { return len(p.checks) }

// Names returns the codec name of each parameter.
func (p Params[P]) Names() []string {
	names := make([]string, len(p.checks))
	for i, c := range p.checks {
		names[i] = c.Name()
	}
	return names
}

// Decode validates and reads items. Failures are *ArgumentError.
func (p Params[P]) Decode(items []dynvalue.Value) (P, error) {
	var zero P
	if len(items) != len(p.checks) {
		return zero, &ArgumentError{
			Index: min(len(items), len(p.checks)),
			Err:   fmt.Errorf("%w: want %d, got %d", ErrArgumentCount, len(p.checks), len(items)),
		}
	}
	for i, c := range p.checks {
		if err := c.Check(items[i].Type()); err != nil {
			return zero, &ArgumentError{Index: i, Err: err}
		}
	}
	return p.read(items)
}

// Read decodes the argument Array under r's cursor.
func (p Params[P]) Read(r dynio.Reader) (P, error) {
	v := dynio.ReadValue(r)
	arr, ok := v.TryArray()
	if !ok {
		var zero P
		return zero, &ArgumentError{Err: &codec.MismatchError{Expected: "argument list", Got: v.Type()}}
	}
	return p.Decode(arr.Items())
}

func readArg[T any](c codec.Codec[T], items []dynvalue.Value, i int) (T, error) {
	v, err := codec.Unmarshal(c, items[i])
	if err != nil {
		return v, &ArgumentError{Index: i, Err: err}
	}
	return v, nil
}

// NoParams accepts an empty argument list.
func NoParams() Params[struct{}] {
	return Params[struct{}]{
		read: func([]dynvalue.Value) (struct{}, error) { return struct{}{}, nil },
	}
}

// Params1 accepts a single argument.
func Params1[A any](a codec.Codec[A]) Params[A] {
	return Params[A]{
		checks: []checker{a},
		read: func(items []dynvalue.Value) (A, error) {
			return readArg(a, items, 0)
		},
	}
}

// Params2 accepts two arguments.
func Params2[A, B any](a codec.Codec[A], b codec.Codec[B]) Params[codec.Tuple2[A, B]] {
	return Params[codec.Tuple2[A, B]]{
		checks: []checker{a, b},
		read: func(items []dynvalue.Value) (out codec.Tuple2[A, B], err error) {
			if out.First, err = readArg(a, items, 0); err != nil {
				return out, err
			}
			out.Second, err = readArg(b, items, 1)
			return out, err
		},
	}
}

// Params3 accepts three arguments.
func Params3[A, B, C any](a codec.Codec[A], b codec.Codec[B], c codec.Codec[C]) Params[codec.Tuple3[A, B, C]] {
	return Params[codec.Tuple3[A, B, C]]{
		checks: []checker{a, b, c},
		read: func(items []dynvalue.Value) (out codec.Tuple3[A, B, C], err error) {
			if out.First, err = readArg(a, items, 0); err != nil {
				return out, err
			}
			if out.Second, err = readArg(b, items, 1); err != nil {
				return out, err
			}
			out.Third, err = readArg(c, items, 2)
			return out, err
		},
	}
}

// Params4 accepts four arguments.
func Params4[A, B, C, D any](a codec.Codec[A], b codec.Codec[B], c codec.Codec[C], d codec.Codec[D]) Params[codec.Tuple4[A, B, C, D]] {
	return Params[codec.Tuple4[A, B, C, D]]{
		checks: []checker{a, b, c, d},
		read: func(items []dynvalue.Value) (out codec.Tuple4[A, B, C, D], err error) {
			if out.First, err = readArg(a, items, 0); err != nil {
				return out, err
			}
			if out.Second, err = readArg(b, items, 1); err != nil {
				return out, err
			}
			if out.Third, err = readArg(c, items, 2); err != nil {
				return out, err
			}
			out.Fourth, err = readArg(d, items, 3)
			return out, err
		},
	}
}
