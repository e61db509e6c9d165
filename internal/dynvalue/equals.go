package dynvalue

import "math"

// Equals reports strict equality: identical Type and deep-equal contents,
// with no coercion. Object key order is ignored. NaN equals NaN, so that a
// value always equals a faithful copy of itself.
func (v Value) Equals(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNull:
		return true
	case TypeObject:
		return equalObjects(v.obj, other.obj, Value.Equals)
	case TypeArray:
		return equalArrays(v.arr, other.arr, Value.Equals)
	case TypeString:
		return v.s == other.s
	case TypeBoolean:
		return v.b == other.b
	case TypeInt64:
		return v.i == other.i
	default:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	}
}

// JSEquals implements the engine's loose (==) equality.
//
// Values of the same type compare by content (objects and arrays deeply,
// through JSEquals; NaN is never equal). Null equals only Null. Otherwise, if
// either type is Boolean, Int64 or Double, both sides compare as numbers,
// else as strings.
func (v Value) JSEquals(other Value) bool {
	if v.typ == other.typ {
		switch v.typ {
		case TypeNull:
			return true
		case TypeObject:
			return equalObjects(v.obj, other.obj, Value.JSEquals)
		case TypeArray:
			return equalArrays(v.arr, other.arr, Value.JSEquals)
		case TypeString:
			return v.s == other.s
		case TypeBoolean:
			return v.b == other.b
		case TypeInt64:
			return v.i == other.i
		default:
			return v.f == other.f
		}
	}
	if v.typ == TypeNull || other.typ == TypeNull {
		return false
	}
	if max(v.typ, other.typ) >= TypeBoolean {
		return v.AsJSNumber() == other.AsJSNumber()
	}
	return v.AsJSString() == other.AsJSString()
}

func equalObjects(a, b *Object, eq func(Value, Value) bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.keys {
		bv, ok := b.props[k]
		if !ok || !eq(a.props[k], bv) {
			return false
		}
	}
	return true
}

func equalArrays(a, b *Array, eq func(Value, Value) bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.items {
		if !eq(a.items[i], b.items[i]) {
			return false
		}
	}
	return true
}
