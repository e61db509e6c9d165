package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// MethodHandler serves an asynchronous method. args is positioned on the
// argument Array, with the trailing channel ids removed; sinks holds one
// Sink per channel id.
//
// An *ArgumentError is returned to the caller of Host.Invoke. Any other
// error is reported (Void, Callback) or rejects the call if it is still
// pending (TwoCallbacks, Promise).
type MethodHandler func(ctx context.Context, args dynio.Reader, sinks ...Sink) error

// SyncHandler serves a Sync method by writing a single value to result.
// Writing nothing returns Null.
type SyncHandler func(ctx context.Context, args dynio.Reader, result dynio.Writer) error

// ConstantProvider writes zero or more properties into the module's
// constants Object. w is positioned to accept a property name.
type ConstantProvider func(w dynio.Writer) error

// Initializer runs once, after every module's constants are flushed and
// handles are wired, and before any method is callable.
type Initializer func(ctx context.Context, mc *ModuleContext) error

// ModuleProvider describes a module by registering its members on b.
type ModuleProvider func(b *ModuleBuilder)

type method struct {
	name    string
	shape   ReturnShape
	handler MethodHandler
	sync    SyncHandler
}

type handleSetter struct {
	// target is empty for events; functions name the engine module.
	target string
	name   string
	set    func(Emitter)
}

// ModuleBuilder collects the members of one module. Registration errors are
// accumulated and surface from NewHost.
type ModuleBuilder struct {
	name         string
	methods      []*method
	methodIndex  map[string]int
	constants    []ConstantProvider
	setters      []handleSetter
	setterIndex  map[string]struct{}
	initializers []Initializer
	emitterName  string
	errs         []error
}

func newModuleBuilder(name string) *ModuleBuilder {
	return &ModuleBuilder{
		name:        name,
		methodIndex: make(map[string]int),
		setterIndex: make(map[string]struct{}),
	}
}

// Name returns the module name.
func (b *ModuleBuilder) Name() string { return b.name }

func (b *ModuleBuilder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Errorf(format, args...))
}

func (b *ModuleBuilder) addMethod(m *method) {
	if m.name == "" {
		b.fail("bridge: method name is empty")
		return
	}
	if _, dup := b.methodIndex[m.name]; dup {
		b.fail("%w: method %s.%s", ErrDuplicate, b.name, m.name)
		return
	}
	b.methodIndex[m.name] = len(b.methods)
	b.methods = append(b.methods, m)
}

// AddMethod registers an asynchronous method. shape must not be ShapeSync.
func (b *ModuleBuilder) AddMethod(name string, shape ReturnShape, handler MethodHandler) {
	switch {
	case handler == nil:
		b.fail("bridge: method %s.%s: nil handler", b.name, name)
	case !shape.IsAsync() || shape > ShapeSync:
		b.fail("%w: method %s.%s registered as %s", ErrWrongShape, b.name, name, shape)
	default:
		b.addMethod(&method{name: name, shape: shape, handler: handler})
	}
}

// AddSyncMethod registers a Sync method.
func (b *ModuleBuilder) AddSyncMethod(name string, handler SyncHandler) {
	if handler == nil {
		b.fail("bridge: method %s.%s: nil handler", b.name, name)
		return
	}
	b.addMethod(&method{name: name, shape: ShapeSync, sync: handler})
}

// AddConstantProvider registers a provider run once by NewHost.
func (b *ModuleBuilder) AddConstantProvider(p ConstantProvider) {
	if p == nil {
		b.fail("bridge: module %s: nil constant provider", b.name)
		return
	}
	b.constants = append(b.constants, p)
}

// AddConstant registers a single constant.
func (b *ModuleBuilder) AddConstant(key string, value dynvalue.Value) {
	b.AddConstantProvider(func(w dynio.Writer) error {
		if err := w.WritePropertyName(key); err != nil {
			return err
		}
		return dynio.WriteValue(w, value)
	})
}

// AddConstants registers every property of v, which c must marshal to an
// Object, as a constant.
func AddConstants[T any](b *ModuleBuilder, c codec.Codec[T], v T) {
	b.AddConstantProvider(func(w dynio.Writer) error {
		out, err := codec.Marshal(c, v)
		if err != nil {
			return err
		}
		obj, ok := out.TryObject()
		if !ok {
			return &codec.MismatchError{Expected: "constants object", Got: out.Type()}
		}
		var werr error
		obj.Range(func(key string, value dynvalue.Value) bool {
			if werr = w.WritePropertyName(key); werr == nil {
				werr = dynio.WriteValue(w, value)
			}
			return werr == nil
		})
		return werr
	})
}

func (b *ModuleBuilder) addSetter(s handleSetter) {
	if s.set == nil {
		b.fail("bridge: module %s: nil setter for %s", b.name, s.name)
		return
	}
	key := s.target + "\x00" + s.name
	if _, dup := b.setterIndex[key]; dup {
		b.fail("%w: handle %s.%s", ErrDuplicate, b.name, s.name)
		return
	}
	b.setterIndex[key] = struct{}{}
	b.setters = append(b.setters, s)
}

// AddEventHandlerSetter registers an outbound event. set receives the
// emitter before any initializer runs.
func (b *ModuleBuilder) AddEventHandlerSetter(name string, set func(Emitter)) {
	if name == "" {
		b.fail("bridge: module %s: event name is empty", b.name)
		return
	}
	b.addSetter(handleSetter{name: name, set: set})
}

// AddFunctionSetter registers an outbound call to the function name exported
// by the engine module jsModule. An empty jsModule means the module's own
// name.
func (b *ModuleBuilder) AddFunctionSetter(jsModule, name string, set func(Emitter)) {
	if name == "" {
		b.fail("bridge: module %s: function name is empty", b.name)
		return
	}
	if jsModule == "" {
		jsModule = b.name
	}
	b.addSetter(handleSetter{target: jsModule, name: name, set: set})
}

// AddInitializer registers an initializer. Initializers of one module run
// in registration order; an error aborts NewHost.
func (b *ModuleBuilder) AddInitializer(fn Initializer) {
	if fn == nil {
		b.fail("bridge: module %s: nil initializer", b.name)
		return
	}
	b.initializers = append(b.initializers, fn)
}

// SetEventEmitterName overrides the engine module that receives this
// module's events.
func (b *ModuleBuilder) SetEventEmitterName(name string) {
	b.emitterName = name
}

func (b *ModuleBuilder) err() error {
	return errors.Join(b.errs...)
}
