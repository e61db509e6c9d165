package scripting

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/dop251/goja"

	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// DefaultMaxDepth bounds the nesting FromValue converts.
const DefaultMaxDepth = 64

// MaxArrayLength bounds the length of an array FromValue converts. Sparse
// arrays count their holes.
const MaxArrayLength = 1 << 20

const maxSafeInteger = 1 << 53

var (
	// ErrCyclic is returned for a value that contains itself.
	ErrCyclic = errors.New("scripting: cyclic value")
	// ErrTooDeep is returned for a value nested beyond the maximum depth.
	ErrTooDeep = errors.New("scripting: value nested too deeply")
	// ErrTooLarge is returned for an array longer than MaxArrayLength.
	ErrTooLarge = errors.New("scripting: array too large")
)

// ToValue converts v to a JS value. Objects keep their key order; Int64
// and Double both become numbers.
func ToValue(vm *goja.Runtime, v dynvalue.Value) goja.Value {
	switch v.Type() {
	case dynvalue.TypeBoolean:
		b, _ := v.TryBoolean()
		return vm.ToValue(b)
	case dynvalue.TypeInt64:
		i, _ := v.TryInt64()
		return vm.ToValue(i)
	case dynvalue.TypeDouble:
		f, _ := v.TryDouble()
		return vm.ToValue(f)
	case dynvalue.TypeString:
		s, _ := v.TryString()
		return vm.ToValue(s)
	case dynvalue.TypeArray:
		items := v.AsArray().Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = ToValue(vm, item)
		}
		return vm.NewArray(out...)
	case dynvalue.TypeObject:
		obj := vm.NewObject()
		v.AsObject().Range(func(key string, value dynvalue.Value) bool {
			_ = obj.Set(key, ToValue(vm, value))
			return true
		})
		return obj
	default:
		return goja.Null()
	}
}

// FromValue converts a JS value to a dynvalue.Value.
//
// undefined, null, functions and symbols become Null. Numbers follow the
// numeric literal rule. Dates become ISO strings. Arrays keep holes as Null;
// other objects contribute their own enumerable string keys. A value nested
// deeper than maxDepth (DefaultMaxDepth when not positive), containing
// itself, or holding an array longer than MaxArrayLength is an error.
func FromValue(vm *goja.Runtime, v goja.Value, maxDepth int) (dynvalue.Value, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	c := converter{maxDepth: maxDepth, path: make(map[*goja.Object]struct{})}
	return c.convert(v, 0)
}

type converter struct {
	maxDepth int
	// path holds the objects enclosing the current one.
	path map[*goja.Object]struct{}
}

func (c *converter) convert(v goja.Value, depth int) (dynvalue.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return dynvalue.Null(), nil
	}
	obj, isObject := v.(*goja.Object)
	if !isObject {
		if _, isSymbol := v.(*goja.Symbol); isSymbol {
			return dynvalue.Null(), nil
		}
		return primitive(v.Export()), nil
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return dynvalue.Null(), nil
	}
	if t, ok := obj.Export().(time.Time); ok && obj.ClassName() == "Date" {
		return dynvalue.String(t.UTC().Format("2006-01-02T15:04:05.000Z")), nil
	}

	if depth >= c.maxDepth {
		return dynvalue.Value{}, fmt.Errorf("%w (max %d)", ErrTooDeep, c.maxDepth)
	}
	if _, seen := c.path[obj]; seen {
		return dynvalue.Value{}, ErrCyclic
	}
	c.path[obj] = struct{}{}
	defer delete(c.path, obj)

	if obj.ClassName() == "Array" {
		length := obj.Get("length").ToInteger()
		if length > MaxArrayLength {
			return dynvalue.Value{}, fmt.Errorf("%w (length %d, max %d)", ErrTooLarge, length, MaxArrayLength)
		}
		n := int(length)
		b := dynvalue.NewArrayBuilder(n)
		for i := range n {
			item, err := c.convert(obj.Get(strconv.Itoa(i)), depth+1)
			if err != nil {
				return dynvalue.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			b.Append(item)
		}
		return b.Seal(), nil
	}

	keys := obj.Keys()
	b := dynvalue.NewObjectBuilder(len(keys))
	for _, key := range keys {
		item, err := c.convert(obj.Get(key), depth+1)
		if err != nil {
			return dynvalue.Value{}, fmt.Errorf("%s: %w", key, err)
		}
		b.Set(key, item)
	}
	return b.Seal(), nil
}

func primitive(x any) dynvalue.Value {
	switch x := x.(type) {
	case bool:
		return dynvalue.Bool(x)
	case int64:
		if x > maxSafeInteger || x < -maxSafeInteger {
			return dynvalue.Double(float64(x))
		}
		return dynvalue.Int64(x)
	case float64:
		return dynvalue.Number(x)
	case string:
		return dynvalue.String(x)
	case *big.Int:
		if x.IsInt64() {
			return dynvalue.Int64(x.Int64())
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return dynvalue.Double(f)
	default:
		return dynvalue.Null()
	}
}
