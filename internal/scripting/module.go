package scripting

import (
	"github.com/dop251/goja"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/joeycumines/go-nativebridge/internal/transport"
)

// require implements require("bridge").
//
//	const { NativeModules, DeviceEventEmitter, registerCallableModule } = require("bridge");
func (e *Engine) require(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	natives := vm.NewObject()
	for _, mc := range e.host.ModuleConfigs() {
		_ = natives.Set(mc.Name, e.proxy(vm, mc))
	}
	_ = exports.Set("NativeModules", natives)
	_ = exports.Set("DeviceEventEmitter", e.deviceEventEmitter(vm))
	_ = exports.Set("registerCallableModule", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		obj, ok := call.Argument(1).(*goja.Object)
		if name == "" || !ok {
			panic(vm.NewTypeError("registerCallableModule: expected a name and an object"))
		}
		e.callables[name] = obj
		return goja.Undefined()
	})
	_ = exports.Set("instanceId", e.id.String())
	_ = exports.Set("eventEmitterName", e.emitter)
}

// proxy builds the script-facing object of one native module: its
// constants as properties, getConstants(), and one function per method.
func (e *Engine) proxy(vm *goja.Runtime, mc bridge.ModuleConfig) *goja.Object {
	obj := vm.NewObject()
	if constants, ok := mc.Constants.TryObject(); ok {
		constants.Range(func(key string, value dynvalue.Value) bool {
			_ = obj.Set(key, ToValue(vm, value))
			return true
		})
	}
	_ = obj.Set("getConstants", func(goja.FunctionCall) goja.Value {
		return ToValue(vm, mc.Constants)
	})
	for _, m := range mc.Methods {
		_ = obj.Set(m.Name, e.method(vm, mc, m))
	}
	return obj
}

// jsCallbacks is the number of trailing function arguments a script
// passes for shape.
func jsCallbacks(shape bridge.ReturnShape) int {
	switch shape {
	case bridge.ShapeCallback:
		return 1
	case bridge.ShapeTwoCallbacks:
		return 2
	default:
		return 0
	}
}

func (e *Engine) method(vm *goja.Runtime, mc bridge.ModuleConfig, m bridge.MethodConfig) func(goja.FunctionCall) goja.Value {
	name := mc.Name + "." + m.Name
	return func(call goja.FunctionCall) goja.Value {
		argv := call.Arguments
		n := jsCallbacks(m.Shape)
		if len(argv) < n {
			panic(vm.NewTypeError("%s: expected %d callback arguments, got %d arguments", name, n, len(argv)))
		}
		fns := make([]goja.Callable, n)
		for i, a := range argv[len(argv)-n:] {
			fn, ok := goja.AssertFunction(a)
			if !ok {
				panic(vm.NewTypeError("%s: argument %d is not a function", name, len(argv)-n+i))
			}
			fns[i] = fn
		}
		argv = argv[:len(argv)-n]

		b := dynvalue.NewArrayBuilder(len(argv) + 2)
		for i, a := range argv {
			v, err := FromValue(vm, a, e.maxDepth)
			if err != nil {
				panic(vm.NewTypeError("%s: argument %d: %v", name, i, err))
			}
			b.Append(v)
		}

		switch m.Shape {
		case bridge.ShapeSync:
			result, err := e.host.InvokeSync(e.ctx, bridge.CallFrame{ModuleID: mc.ID, MethodID: m.ID, Args: b.Seal()})
			if err != nil {
				panic(errorValue(vm, bridge.ErrorPayloadFrom(err)))
			}
			return ToValue(vm, result)

		case bridge.ShapeVoid:
			e.enqueue(vm, mc, m, b.Seal())
			return goja.Undefined()

		case bridge.ShapeCallback:
			id := e.register(&callback{module: mc.Name, method: m.Name, invoke: spread(fns[0])})
			b.Append(dynvalue.Int64(id))
			e.enqueue(vm, mc, m, b.Seal(), id)
			return goja.Undefined()

		case bridge.ShapeTwoCallbacks:
			okID, failID := e.registerPair(
				&callback{module: mc.Name, method: m.Name, invoke: spread(fns[0])},
				&callback{module: mc.Name, method: m.Name, invoke: spread(fns[1])},
			)
			b.Append(dynvalue.Int64(okID), dynvalue.Int64(failID))
			e.enqueue(vm, mc, m, b.Seal(), okID)
			return goja.Undefined()

		default:
			promise, resolve, reject := vm.NewPromise()
			okID, failID := e.registerPair(
				&callback{module: mc.Name, method: m.Name, invoke: func(vm *goja.Runtime, args []dynvalue.Value) error {
					result := goja.Undefined()
					if len(args) > 0 {
						result = ToValue(vm, args[0])
					}
					resolve(result)
					return nil
				}},
				&callback{module: mc.Name, method: m.Name, invoke: func(vm *goja.Runtime, args []dynvalue.Value) error {
					var reason dynvalue.Value
					if len(args) > 0 {
						reason = args[0]
					}
					reject(errorValue(vm, bridge.ParseErrorPayload(reason)))
					return nil
				}},
			)
			b.Append(dynvalue.Int64(okID), dynvalue.Int64(failID))
			e.enqueue(vm, mc, m, b.Seal(), okID)
			return vm.ToValue(promise)
		}
	}
}

// enqueue queues a call frame. If that fails the call's callback channel,
// identified by id, is released and the script sees the error.
func (e *Engine) enqueue(vm *goja.Runtime, mc bridge.ModuleConfig, m bridge.MethodConfig, args dynvalue.Value, id ...int64) {
	e.inflight.Add(1)
	err := e.calls.Enqueue(transport.CallOf(bridge.CallFrame{ModuleID: mc.ID, MethodID: m.ID, Args: args}))
	if err == nil {
		return
	}
	e.inflight.Add(-1)
	for _, i := range id {
		e.release(i)
	}
	panic(vm.NewGoError(err))
}

func spread(fn goja.Callable) func(vm *goja.Runtime, args []dynvalue.Value) error {
	return func(vm *goja.Runtime, args []dynvalue.Value) error {
		_, err := fn(goja.Undefined(), jsArgs(vm, args)...)
		return err
	}
}

func (e *Engine) deviceEventEmitter(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("addListener", func(event string, fn goja.Value) *goja.Object {
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			panic(vm.NewTypeError("addListener: listener for %q is not a function", event))
		}
		l := &listener{fn: callable}
		e.listeners[event] = append(e.listeners[event], l)

		sub := vm.NewObject()
		_ = sub.Set("remove", func() {
			e.removeListener(event, l)
		})
		return sub
	})
	_ = obj.Set("removeAllListeners", func(call goja.FunctionCall) goja.Value {
		if event := call.Argument(0); goja.IsUndefined(event) {
			clear(e.listeners)
		} else {
			delete(e.listeners, event.String())
		}
		return goja.Undefined()
	})
	_ = obj.Set("listenerCount", func(event string) int {
		return len(e.listeners[event])
	})
	_ = obj.Set("emit", func(call goja.FunctionCall) goja.Value {
		args := make([]dynvalue.Value, 0, len(call.Arguments))
		for i, a := range call.Arguments[min(1, len(call.Arguments)):] {
			v, err := FromValue(vm, a, e.maxDepth)
			if err != nil {
				panic(vm.NewTypeError("emit: argument %d: %v", i+1, err))
			}
			args = append(args, v)
		}
		e.emit(vm, call.Argument(0).String(), args)
		return goja.Undefined()
	})
	return obj
}

func (e *Engine) removeListener(event string, l *listener) {
	ls := e.listeners[event]
	for i, x := range ls {
		if x == l {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(e.listeners, event)
	} else {
		e.listeners[event] = ls
	}
}
