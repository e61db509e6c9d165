package codec

import (
	"math"

	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Integer is the set of types that marshal as Int64.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Float is the set of types that marshal as Double.
type Float interface {
	~float32 | ~float64
}

var numeric = acceptTypes(dynvalue.TypeInt64, dynvalue.TypeDouble)

// IntOf returns a codec for an integer type. Doubles are truncated toward
// zero, and values are narrowed by Go conversion rules. Unsigned values
// above math.MaxInt64 are written as Double, the engine's number type, so
// they round trip only to the nearest float64: 1<<63+1 reads back as 1<<63,
// and anything from 1<<64-1024 up reads back as math.MaxUint64.
func IntOf[T Integer](name string) Codec[T] {
	var zero T
	unsigned := zero-1 > 0
	return New(name, numeric,
		func(r dynio.Reader) (T, error) {
			if r.ValueType() == dynvalue.TypeDouble {
				f := r.ReadDouble()
				if unsigned && f >= math.MaxInt64 {
					return T(truncateUnsigned(f)), nil
				}
				return T(dynvalue.Double(f).AsInt64()), nil
			}
			return T(r.ReadInt64()), nil
		},
		func(w dynio.Writer, v T) error {
			if v > 0 && uint64(v) > math.MaxInt64 {
				return w.WriteDouble(float64(uint64(v)))
			}
			return w.WriteInt64(int64(v))
		},
	)
}

func truncateUnsigned(f float64) uint64 {
	if f >= 1<<64 {
		return math.MaxUint64
	}
	return uint64(f)
}

// FloatOf returns a codec for a floating point type.
func FloatOf[T Float](name string) Codec[T] {
	return New(name, numeric,
		func(r dynio.Reader) (T, error) { return T(r.ReadDouble()), nil },
		func(w dynio.Writer, v T) error { return w.WriteDouble(float64(v)) },
	)
}

// Enum returns a codec for an enumeration whose underlying type is an
// integer. Enums marshal as their numeric value.
func Enum[E Integer](name string) Codec[E] {
	return IntOf[E](name)
}

var (
	Bool = New("bool", acceptTypes(dynvalue.TypeBoolean, dynvalue.TypeInt64, dynvalue.TypeDouble),
		func(r dynio.Reader) (bool, error) { return r.ReadBoolean(), nil },
		func(w dynio.Writer, v bool) error { return w.WriteBoolean(v) },
	)

	String = New("string", acceptTypes(dynvalue.TypeString),
		func(r dynio.Reader) (string, error) { return r.ReadString(), nil },
		func(w dynio.Writer, v string) error { return w.WriteString(v) },
	)

	Int     = IntOf[int]("int")
	Int8    = IntOf[int8]("int8")
	Int16   = IntOf[int16]("int16")
	Int32   = IntOf[int32]("int32")
	Int64   = IntOf[int64]("int64")
	Uint    = IntOf[uint]("uint")
	Uint8   = IntOf[uint8]("uint8")
	Uint16  = IntOf[uint16]("uint16")
	Uint32  = IntOf[uint32]("uint32")
	Uint64  = IntOf[uint64]("uint64")
	Float32 = FloatOf[float32]("float32")
	Float64 = FloatOf[float64]("float64")

	// Value passes dynamic values through untouched.
	Value = New("any", nil,
		func(r dynio.Reader) (dynvalue.Value, error) { return dynio.ReadValue(r), nil },
		dynio.WriteValue,
	)
)
