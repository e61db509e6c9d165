// Package codec resolves the (de)serialization of native Go types to and
// from the dynamic value model at compile time.
//
// A Codec[T] is a pair of read/write functions over dynio.Reader and
// dynio.Writer. Codecs for composite types are built by composing the codecs
// of their parts (Slice, Map, Struct, Union, ...), so the hot path never
// inspects types at runtime.
package codec

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

var (
	// ErrUnknownKind is returned when a union's discriminator names no
	// registered variant.
	ErrUnknownKind = errors.New("codec: unknown kind")

	// ErrMissingKind is returned when a union value carries no discriminator.
	ErrMissingKind = errors.New("codec: missing kind")
)

// MismatchError reports a value whose type a codec cannot accept.
type MismatchError struct {
	Expected string
	Got      dynvalue.Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("codec: expected %s, got %s", e.Expected, e.Got)
}

// Codec reads and writes values of type T. The zero Codec is not usable;
// construct codecs with New or the helpers in this package.
type Codec[T any] struct {
	name    string
	accepts func(dynvalue.Type) bool
	read    func(dynio.Reader) (T, error)
	write   func(dynio.Writer, T) error
}

// New assembles a codec from its parts. A nil accepts allows every type.
func New[T any](
	name string,
	accepts func(dynvalue.Type) bool,
	read func(dynio.Reader) (T, error),
	write func(dynio.Writer, T) error,
) Codec[T] {
	if read == nil || write == nil {
		panic("codec: New requires read and write")
	}
	if accepts == nil {
		accepts = func(dynvalue.Type) bool { return true }
	}
	return Codec[T]{name: name, accepts: accepts, read: read, write: write}
}

// Name describes the codec's type, for error messages.
func (c Codec[T]) Name() string { return c.name }

// Accepts reports whether a value of type t is a well-formed input for c.
// Reading is forgiving regardless; callers use Accepts to reject mistyped
// top-level inputs such as method arguments.
func (c Codec[T]) Accepts(t dynvalue.Type) bool { return c.accepts(t) }

// Read consumes the node under r's cursor.
func (c Codec[T]) Read(r dynio.Reader) (T, error) { return c.read(r) }

// Write emits v at w's cursor.
func (c Codec[T]) Write(w dynio.Writer, v T) error { return c.write(w, v) }

// Check returns a *MismatchError unless c accepts t.
func (c Codec[T]) Check(t dynvalue.Type) error {
	if c.accepts(t) {
		return nil
	}
	return &MismatchError{Expected: c.name, Got: t}
}

// Marshal writes v to a fresh value.
func Marshal[T any](c Codec[T], v T) (dynvalue.Value, error) {
	w := dynio.NewValueWriter()
	if err := c.Write(w, v); err != nil {
		return dynvalue.Value{}, err
	}
	return w.TakeValue()
}

// Unmarshal reads a T from v.
func Unmarshal[T any](c Codec[T], v dynvalue.Value) (T, error) {
	return c.Read(dynio.NewValueReader(v))
}

func acceptTypes(types ...dynvalue.Type) func(dynvalue.Type) bool {
	var set uint32
	for _, t := range types {
		set |= 1 << t
	}
	return func(t dynvalue.Type) bool { return set&(1<<t) != 0 }
}
