// Package dynvalue implements the dynamic, JSON-like value model exchanged
// between native modules and the scripting engine.
//
// A Value is a closed tagged union over seven variants (see Type). Values are
// immutable: every conversion produces a new value or a default fallback, and
// containers are sealed once built. The zero Value is Null.
package dynvalue

import (
	"math"
	"strconv"
)

// Type identifies the variant held by a Value. The declaration order matters:
// loose equality compares through numbers whenever either operand's type is
// Boolean or greater.
type Type uint8

const (
	TypeNull Type = iota
	TypeObject
	TypeArray
	TypeString
	TypeBoolean
	TypeInt64
	TypeDouble
)

var typeNames = [...]string{
	TypeNull:    "Null",
	TypeObject:  "Object",
	TypeArray:   "Array",
	TypeString:  "String",
	TypeBoolean: "Boolean",
	TypeInt64:   "Int64",
	TypeDouble:  "Double",
}

// String returns the variant name, e.g. "Int64".
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// IsContainer reports whether t is Object or Array.
func (t Type) IsContainer() bool {
	return t == TypeObject || t == TypeArray
}

// IsNumber reports whether t is Int64 or Double.
func (t Type) IsNumber() bool {
	return t == TypeInt64 || t == TypeDouble
}

// Value is a single dynamic value. It may be freely copied and shared.
type Value struct {
	typ Type
	b   bool
	i   int64
	f   float64
	s   string
	arr *Array
	obj *Object
}

// maxSafeInteger is 2^53, the largest magnitude at which every integer is
// exactly representable as a float64.
const maxSafeInteger = 1 << 53

// Null returns the Null value.
func Null() Value { return Value{} }

// Bool returns a Boolean value.
func Bool(b bool) Value { return Value{typ: TypeBoolean, b: b} }

// Int64 returns an Int64 value.
func Int64(i int64) Value { return Value{typ: TypeInt64, i: i} }

// Int returns an Int64 value from any integer kind. Unsigned values above
// math.MaxInt64 become Double.
func Int[T ~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr](i T) Value {
	if i < 0 {
		return Int64(int64(i))
	}
	if uint64(i) > math.MaxInt64 {
		return Double(float64(uint64(i)))
	}
	return Int64(int64(i))
}

// Double returns a Double value. NaN and the infinities are valid.
func Double(f float64) Value { return Value{typ: TypeDouble, f: f} }

// String returns a String value.
func String(s string) Value { return Value{typ: TypeString, s: s} }

// Number applies the numeric literal rule: integral values that are exactly
// representable (magnitude at most 2^53, and not negative zero) become
// Int64, everything else Double.
func Number(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger && !(f == 0 && math.Signbit(f)) {
		return Int64(int64(f))
	}
	return Double(f)
}

// Type returns the variant held by v.
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.typ == TypeNull }

// TryObject returns the Object held by v, without coercion.
func (v Value) TryObject() (Object, bool) {
	if v.typ != TypeObject {
		return Object{}, false
	}
	return *v.obj, true
}

// TryArray returns the Array held by v, without coercion.
func (v Value) TryArray() (Array, bool) {
	if v.typ != TypeArray {
		return Array{}, false
	}
	return *v.arr, true
}

// TryString returns the string held by v, without coercion.
func (v Value) TryString() (string, bool) {
	return v.s, v.typ == TypeString
}

// TryBoolean returns the bool held by v, without coercion.
func (v Value) TryBoolean() (bool, bool) {
	return v.b, v.typ == TypeBoolean
}

// TryInt64 returns the int64 held by v, without coercion.
func (v Value) TryInt64() (int64, bool) {
	return v.i, v.typ == TypeInt64
}

// TryDouble returns the float64 held by v, without coercion.
func (v Value) TryDouble() (float64, bool) {
	return v.f, v.typ == TypeDouble
}

// AsObject returns the Object held by v, or an empty Object.
func (v Value) AsObject() Object {
	o, _ := v.TryObject()
	return o
}

// AsArray returns the Array held by v, or an empty Array.
func (v Value) AsArray() Array {
	a, _ := v.TryArray()
	return a
}

// Len returns the number of properties or items for containers, else 0.
func (v Value) Len() int {
	switch v.typ {
	case TypeObject:
		return v.obj.Len()
	case TypeArray:
		return v.arr.Len()
	default:
		return 0
	}
}

// Property returns the property key of an Object value, or Null.
func (v Value) Property(key string) Value {
	if v.typ != TypeObject {
		return Value{}
	}
	p, _ := v.obj.Get(key)
	return p
}

// Index returns item i of an Array value, or Null when out of range.
func (v Value) Index(i int) Value {
	if v.typ != TypeArray || i < 0 || i >= v.arr.Len() {
		return Value{}
	}
	return v.arr.At(i)
}
