package dynvalue

import (
	"fmt"
	"sort"
)

// Export converts v to plain Go values: nil, bool, int64, float64, string,
// []any and map[string]any. Key order is lost for objects.
func (v Value) Export() any {
	switch v.typ {
	case TypeNull:
		return nil
	case TypeBoolean:
		return v.b
	case TypeInt64:
		return v.i
	case TypeDouble:
		return v.f
	case TypeString:
		return v.s
	case TypeArray:
		out := make([]any, len(v.arr.items))
		for i, item := range v.arr.items {
			out[i] = item.Export()
		}
		return out
	default:
		out := make(map[string]any, len(v.obj.keys))
		for _, k := range v.obj.keys {
			out[k] = v.obj.props[k].Export()
		}
		return out
	}
}

// FromAny converts a tree of plain Go values, such as produced by a generic
// decoder, into a Value. Map keys must be strings; maps are converted in
// sorted key order so the result is deterministic.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(t), nil
	case int8:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(t), nil
	case uint8:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint64:
		return Int(t), nil
	case float32:
		return Double(float64(t)), nil
	case float64:
		return Double(t), nil
	case []any:
		b := NewArrayBuilder(len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			b.Append(v)
		}
		return b.Seal(), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b := NewObjectBuilder(len(keys))
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			b.Set(k, v)
		}
		return b.Seal(), nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("dynvalue: unsupported map key type %T", k)
			}
			m[ks] = item
		}
		return FromAny(m)
	default:
		return Value{}, fmt.Errorf("dynvalue: unsupported type %T", x)
	}
}
