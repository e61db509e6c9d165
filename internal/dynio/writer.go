package dynio

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Writer is a push-style visitor producing a single dynamic value.
// Implementations reject calls that are illegal in their current state with
// an error matching ErrInvalidOperation.
type Writer interface {
	WriteNull() error
	WriteBoolean(v bool) error
	WriteInt64(v int64) error
	WriteDouble(v float64) error
	WriteString(v string) error
	WriteObjectBegin() error
	WritePropertyName(name string) error
	WriteObjectEnd() error
	WriteArrayBegin() error
	WriteArrayEnd() error
}

// ErrInvalidOperation is matched by every writer state-machine violation.
var ErrInvalidOperation = errors.New("dynio: invalid operation")

// State is the cursor state of a ValueWriter.
type State uint8

const (
	// StateStart accepts a root scalar or container.
	StateStart State = iota
	// StatePropertyName expects WritePropertyName or WriteObjectEnd.
	StatePropertyName
	// StatePropertyValue expects the value for the pending property name.
	StatePropertyValue
	// StateArrayElement expects another element or WriteArrayEnd.
	StateArrayElement
	// StateFinish holds a complete root value, ready for TakeValue.
	StateFinish
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StatePropertyName:
		return "PropertyName"
	case StatePropertyValue:
		return "PropertyValue"
	case StateArrayElement:
		return "ArrayElement"
	case StateFinish:
		return "Finish"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// StateError reports a call that the writer's state machine does not allow.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("dynio: %s not allowed in state %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidOperation }

// ValueWriter implements Writer, building a dynvalue.Value.
//
// The zero value is ready to use. Each nested container pushes a frame that
// records the parent's state, restored once the child is sealed.
type ValueWriter struct {
	stack  []writeFrame
	state  State
	result dynvalue.Value
}

type writeFrame struct {
	obj    *dynvalue.ObjectBuilder
	arr    *dynvalue.ArrayBuilder
	key    string
	parent State
}

var _ Writer = (*ValueWriter)(nil)

// NewValueWriter returns a writer in StateStart.
func NewValueWriter() *ValueWriter {
	return &ValueWriter{}
}

// State returns the current cursor state.
func (w *ValueWriter) State() State { return w.state }

// Reset discards any partial or finished value.
func (w *ValueWriter) Reset() {
	clear(w.stack)
	w.stack = w.stack[:0]
	w.state = StateStart
	w.result = dynvalue.Value{}
}

// TakeValue returns the finished root value and resets the writer. It fails
// unless the root value is complete.
func (w *ValueWriter) TakeValue() (dynvalue.Value, error) {
	if w.state != StateFinish {
		return dynvalue.Value{}, &StateError{Op: "TakeValue", State: w.state}
	}
	v := w.result
	w.Reset()
	return v, nil
}

func (w *ValueWriter) WriteNull() error { return w.place("WriteNull", dynvalue.Null()) }

func (w *ValueWriter) WriteBoolean(v bool) error {
	return w.place("WriteBoolean", dynvalue.Bool(v))
}

func (w *ValueWriter) WriteInt64(v int64) error {
	return w.place("WriteInt64", dynvalue.Int64(v))
}

func (w *ValueWriter) WriteDouble(v float64) error {
	return w.place("WriteDouble", dynvalue.Double(v))
}

func (w *ValueWriter) WriteString(v string) error {
	return w.place("WriteString", dynvalue.String(v))
}

func (w *ValueWriter) WriteObjectBegin() error {
	if !w.acceptsValue() {
		return &StateError{Op: "WriteObjectBegin", State: w.state}
	}
	w.stack = append(w.stack, writeFrame{obj: dynvalue.NewObjectBuilder(0), parent: w.state})
	w.state = StatePropertyName
	return nil
}

func (w *ValueWriter) WritePropertyName(name string) error {
	if w.state != StatePropertyName {
		return &StateError{Op: "WritePropertyName", State: w.state}
	}
	w.stack[len(w.stack)-1].key = name
	w.state = StatePropertyValue
	return nil
}

func (w *ValueWriter) WriteObjectEnd() error {
	if w.state != StatePropertyName {
		return &StateError{Op: "WriteObjectEnd", State: w.state}
	}
	top := w.popFrame()
	w.state = top.parent
	return w.place("WriteObjectEnd", top.obj.Seal())
}

func (w *ValueWriter) WriteArrayBegin() error {
	if !w.acceptsValue() {
		return &StateError{Op: "WriteArrayBegin", State: w.state}
	}
	w.stack = append(w.stack, writeFrame{arr: dynvalue.NewArrayBuilder(0), parent: w.state})
	w.state = StateArrayElement
	return nil
}

func (w *ValueWriter) WriteArrayEnd() error {
	if w.state != StateArrayElement {
		return &StateError{Op: "WriteArrayEnd", State: w.state}
	}
	top := w.popFrame()
	w.state = top.parent
	return w.place("WriteArrayEnd", top.arr.Seal())
}

func (w *ValueWriter) acceptsValue() bool {
	switch w.state {
	case StateStart, StatePropertyValue, StateArrayElement:
		return true
	default:
		return false
	}
}

// place stores a complete value at the cursor.
func (w *ValueWriter) place(op string, v dynvalue.Value) error {
	switch w.state {
	case StateStart:
		w.result = v
		w.state = StateFinish
	case StatePropertyValue:
		top := &w.stack[len(w.stack)-1]
		top.obj.Set(top.key, v)
		top.key = ""
		w.state = StatePropertyName
	case StateArrayElement:
		w.stack[len(w.stack)-1].arr.Append(v)
	default:
		return &StateError{Op: op, State: w.state}
	}
	return nil
}

func (w *ValueWriter) popFrame() writeFrame {
	top := w.stack[len(w.stack)-1]
	w.stack[len(w.stack)-1] = writeFrame{}
	w.stack = w.stack[:len(w.stack)-1]
	return top
}

// Discard is a Writer that accepts and drops every call.
var Discard Writer = discard{}

type discard struct{}

func (discard) WriteNull() error { return nil }
func (discard) WriteBoolean(bool) error { return nil }
func (discard) WriteInt64(int64) error { return nil }
func (discard) WriteDouble(float64) error { return nil }
func (discard) WriteString(string) error { return nil }
func (discard) WriteObjectBegin() error { return nil }
func (discard) WritePropertyName(string) error { return nil }
func (discard) WriteObjectEnd() error { return nil }
func (discard) WriteArrayBegin() error { return nil }
func (discard) WriteArrayEnd() error { return nil }
