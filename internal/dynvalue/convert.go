package dynvalue

import (
	"math"
	"strconv"
	"strings"
)

// Loose conversions. These follow common dynamic-language expectations and
// never fail; see the AsJS* methods for the engine's exact algorithms.

// AsString converts v to a string. Arrays join their items' AsString with
// commas, objects render as "[object Object]".
func (v Value) AsString() string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeString:
		return v.s
	case TypeBoolean:
		return strconv.FormatBool(v.b)
	case TypeInt64:
		return strconv.FormatInt(v.i, 10)
	case TypeDouble:
		return formatGoDouble(v.f)
	case TypeArray:
		parts := make([]string, v.arr.Len())
		for i, item := range v.arr.items {
			parts[i] = item.AsString()
		}
		return strings.Join(parts, ",")
	default:
		return objectString
	}
}

// AsBoolean converts v to a bool. Strings that parse as a boolean use that
// value, other non-empty strings are true.
func (v Value) AsBoolean() bool {
	switch v.typ {
	case TypeNull:
		return false
	case TypeString:
		if b, err := strconv.ParseBool(v.s); err == nil {
			return b
		}
		return v.s != ""
	case TypeBoolean:
		return v.b
	case TypeInt64:
		return v.i != 0
	case TypeDouble:
		return v.f != 0 && !math.IsNaN(v.f)
	default:
		return true
	}
}

// AsInt64 converts v to an int64, truncating doubles toward zero.
func (v Value) AsInt64() int64 {
	switch v.typ {
	case TypeString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return truncateToInt64(f)
		}
		return 0
	case TypeBoolean:
		if v.b {
			return 1
		}
		return 0
	case TypeInt64:
		return v.i
	case TypeDouble:
		return truncateToInt64(v.f)
	default:
		return 0
	}
}

// AsDouble converts v to a float64. Non-numeric strings and objects give NaN.
func (v Value) AsDouble() float64 {
	switch v.typ {
	case TypeNull:
		return 0
	case TypeObject:
		return math.NaN()
	case TypeArray:
		return v.AsJSNumber()
	case TypeString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil || isRangeErr(err) {
			return f
		}
		return math.NaN()
	case TypeBoolean:
		if v.b {
			return 1
		}
		return 0
	case TypeInt64:
		return float64(v.i)
	default:
		return v.f
	}
}

// AsInt8 narrows AsInt64 to int8.
func (v Value) AsInt8() int8 { return int8(v.AsInt64()) }

// AsInt16 narrows AsInt64 to int16.
func (v Value) AsInt16() int16 { return int16(v.AsInt64()) }

// AsInt32 narrows AsInt64 to int32.
func (v Value) AsInt32() int32 { return int32(v.AsInt64()) }

// AsUint8 narrows AsInt64 to uint8.
func (v Value) AsUint8() uint8 { return uint8(v.AsInt64()) }

// AsUint16 narrows AsInt64 to uint16.
func (v Value) AsUint16() uint16 { return uint16(v.AsInt64()) }

// AsUint32 narrows AsInt64 to uint32.
func (v Value) AsUint32() uint32 { return uint32(v.AsInt64()) }

// AsUint64 converts v to a uint64. Doubles above math.MaxInt64 keep their
// magnitude instead of saturating.
func (v Value) AsUint64() uint64 {
	if v.typ == TypeDouble && v.f >= math.MaxInt64 && v.f < math.MaxUint64 {
		return uint64(v.f)
	}
	return uint64(v.AsInt64())
}

// AsFloat32 narrows AsDouble to float32.
func (v Value) AsFloat32() float32 { return float32(v.AsDouble()) }

// truncateToInt64 truncates toward zero, mapping NaN to 0 and saturating at
// the int64 bounds.
func truncateToInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func formatGoDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
