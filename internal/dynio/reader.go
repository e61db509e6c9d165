// Package dynio provides pull-style Reader and push-style Writer visitors
// over the dynvalue model, used to (de)serialize native values without
// building intermediate trees by hand at every call site.
package dynio

import (
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Reader is a forgiving, depth-first cursor over a dynamic value.
//
// NextObjectProperty and NextArrayItem enter the current node when it is an
// unvisited container of the matching kind, and otherwise advance within the
// innermost open container. Both return false once that container is
// exhausted, and when the cursor is not positioned on the requested kind.
// The scalar getters never fail: a type mismatch yields the zero value.
type Reader interface {
	ValueType() dynvalue.Type
	NextObjectProperty() (string, bool)
	NextArrayItem() bool
	ReadString() string
	ReadBoolean() bool
	ReadInt64() int64
	ReadDouble() float64
}

// ValueReader implements Reader over an in-memory dynvalue.Value. Traversal
// uses an explicit frame stack, so depth is not limited by the goroutine
// stack.
type ValueReader struct {
	stack   []readFrame
	current dynvalue.Value
	// pending is set while current is a container that has not been
	// entered or skipped.
	pending bool
}

type readFrame struct {
	container dynvalue.Value
	obj       dynvalue.Object
	arr       dynvalue.Array
	isObject  bool
	next      int
}

var _ Reader = (*ValueReader)(nil)

// NewValueReader returns a reader positioned on v.
func NewValueReader(v dynvalue.Value) *ValueReader {
	return &ValueReader{current: v, pending: v.Type().IsContainer()}
}

// ValueType returns the type of the node under the cursor.
func (r *ValueReader) ValueType() dynvalue.Type {
	return r.current.Type()
}

// Depth returns the number of containers currently entered.
func (r *ValueReader) Depth() int {
	return len(r.stack)
}

func (r *ValueReader) NextObjectProperty() (string, bool) {
	if r.pending {
		r.pending = false
		obj, ok := r.current.TryObject()
		if !ok {
			return "", false
		}
		r.stack = append(r.stack, readFrame{container: r.current, obj: obj, isObject: true})
	}
	if len(r.stack) == 0 {
		return "", false
	}
	top := &r.stack[len(r.stack)-1]
	if !top.isObject {
		return "", false
	}
	if top.next >= top.obj.Len() {
		r.pop()
		return "", false
	}
	key := top.obj.KeyAt(top.next)
	top.next++
	value, _ := top.obj.Get(key)
	r.visit(value)
	return key, true
}

func (r *ValueReader) NextArrayItem() bool {
	if r.pending {
		r.pending = false
		arr, ok := r.current.TryArray()
		if !ok {
			return false
		}
		r.stack = append(r.stack, readFrame{container: r.current, arr: arr})
	}
	if len(r.stack) == 0 {
		return false
	}
	top := &r.stack[len(r.stack)-1]
	if top.isObject {
		return false
	}
	if top.next >= top.arr.Len() {
		r.pop()
		return false
	}
	item := top.arr.At(top.next)
	top.next++
	r.visit(item)
	return true
}

// ReadString returns the current String, or "". A container under the
// cursor is consumed.
func (r *ValueReader) ReadString() string {
	r.pending = false
	s, _ := r.current.TryString()
	return s
}

// ReadBoolean returns the current Boolean. Numbers read as non-zero; other
// types read as false.
func (r *ValueReader) ReadBoolean() bool {
	r.pending = false
	switch r.current.Type() {
	case dynvalue.TypeBoolean, dynvalue.TypeInt64, dynvalue.TypeDouble:
		return r.current.AsBoolean()
	default:
		return false
	}
}

// ReadInt64 returns the current number, truncating a Double toward zero.
func (r *ValueReader) ReadInt64() int64 {
	r.pending = false
	switch r.current.Type() {
	case dynvalue.TypeInt64, dynvalue.TypeDouble:
		return r.current.AsInt64()
	default:
		return 0
	}
}

// ReadDouble returns the current number as a float64.
func (r *ValueReader) ReadDouble() float64 {
	r.pending = false
	switch r.current.Type() {
	case dynvalue.TypeInt64, dynvalue.TypeDouble:
		return r.current.AsDouble()
	default:
		return 0
	}
}

// take returns the node under the cursor and consumes it.
func (r *ValueReader) take() dynvalue.Value {
	r.pending = false
	return r.current
}

func (r *ValueReader) visit(v dynvalue.Value) {
	r.current = v
	r.pending = v.Type().IsContainer()
}

func (r *ValueReader) pop() {
	top := r.stack[len(r.stack)-1]
	r.stack[len(r.stack)-1] = readFrame{}
	r.stack = r.stack[:len(r.stack)-1]
	r.current = top.container
	r.pending = false
}
