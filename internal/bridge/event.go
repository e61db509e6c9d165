package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// DefaultEventEmitter is the engine module receiving events of modules that
// do not name one.
const DefaultEventEmitter = "RCTDeviceEventEmitter"

// Emitter sends fire-and-forget calls toward the engine. Events become
// emit(name, args...) on the module's event emitter; functions call the
// named function of an engine module with args. The zero Emitter returns
// ErrNotInitialized.
type Emitter struct {
	host   *Host
	module string
	// event is empty for functions.
	event  string
	target string
	method string
}

func (e Emitter) Name() string {
	if e.event != "" {
		return e.event
	}
	return e.method
}

// Emit sends args.
func (e Emitter) Emit(args ...dynvalue.Value) error {
	return e.EmitWith(func(w dynio.Writer) error {
		for _, arg := range args {
			if err := dynio.WriteValue(w, arg); err != nil {
				return err
			}
		}
		return nil
	})
}

// EmitWith sends the arguments fn writes. w is positioned inside the
// argument Array.
func (e Emitter) EmitWith(fn func(w dynio.Writer) error) error {
	if e.host == nil {
		return ErrNotInitialized
	}
	w := dynio.NewValueWriter()
	if err := w.WriteArrayBegin(); err != nil {
		return err
	}
	if e.event != "" {
		if err := w.WriteString(e.event); err != nil {
			return err
		}
	}
	if err := fn(w); err != nil {
		return err
	}
	if err := w.WriteArrayEnd(); err != nil {
		return err
	}
	args, err := w.TakeValue()
	if err != nil {
		return err
	}
	return e.host.callEngine(context.Background(), e.module, EngineCall{Module: e.target, Method: e.method, Args: args})
}

// Event is a typed outbound event handle.
type Event[T any] struct {
	name    string
	codec   codec.Codec[T]
	emitter atomic.Pointer[Emitter]
}

// NewEvent registers the event name on b and returns its handle. Emit
// returns ErrNotInitialized until NewHost has wired the handle.
func NewEvent[T any](b *ModuleBuilder, name string, c codec.Codec[T]) *Event[T] {
	e := &Event[T]{name: name, codec: c}
	b.AddEventHandlerSetter(name, func(em Emitter) { e.emitter.Store(&em) })
	return e
}

// Name returns the event name.
func (e *Event[T]) Name() string { return e.name }

// Emit sends v as the single argument of the event.
func (e *Event[T]) Emit(v T) error {
	em := e.emitter.Load()
	if em == nil {
		return fmt.Errorf("%w: event %s", ErrNotInitialized, e.name)
	}
	return em.EmitWith(func(w dynio.Writer) error { return e.codec.Write(w, v) })
}

// Function is a typed handle to a function exported by an engine module.
type Function[A any] struct {
	name    string
	codec   codec.Codec[A]
	emitter atomic.Pointer[Emitter]
}

// NewFunction registers an outbound function call on b. See
// ModuleBuilder.AddFunctionSetter for jsModule.
func NewFunction[A any](b *ModuleBuilder, jsModule, name string, c codec.Codec[A]) *Function[A] {
	f := &Function[A]{name: name, codec: c}
	b.AddFunctionSetter(jsModule, name, func(em Emitter) { f.emitter.Store(&em) })
	return f
}

// Call sends v. A value marshalling to an Array is spread as the argument
// list, anything else is passed as the only argument.
func (f *Function[A]) Call(v A) error {
	em := f.emitter.Load()
	if em == nil {
		return fmt.Errorf("%w: function %s", ErrNotInitialized, f.name)
	}
	out, err := codec.Marshal(f.codec, v)
	if err != nil {
		return err
	}
	if arr, ok := out.TryArray(); ok {
		return em.Emit(arr.Items()...)
	}
	return em.Emit(out)
}
