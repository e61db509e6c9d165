// Package scripting hosts the JS engine side of the bridge: a goja runtime
// on an event loop, value conversion, and an Engine that exposes every
// registered native module to scripts.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/joeycumines/go-nativebridge/internal/transport"
)

// ModuleName is the name scripts require the bridge by.
const ModuleName = "bridge"

// Options configures NewEngine.
type Options struct {
	Logger *slog.Logger
	// Reporter receives host reports. Nil logs them through Logger.
	Reporter  diag.Reporter
	Developer diag.DeveloperSettings
	// EventEmitter names the engine module events are emitted through.
	EventEmitter string
	// WireCodec, when set, round trips every frame batch in both
	// directions.
	WireCodec   transport.Codec
	SyncTimeout time.Duration
	// MaxDepth bounds the nesting of arguments passed from scripts.
	MaxDepth    int
	ModulePaths []string
}

// Engine runs scripts against a bridge.Host.
//
// Calls from scripts are queued as call frames and invoked in order on a
// dispatch goroutine, so handlers never block the event loop; Sync methods
// run on the loop. Results and engine calls are queued back and delivered
// on the loop.
type Engine struct {
	id       uuid.UUID
	ctx      context.Context
	rt       *Runtime
	host     *bridge.Host
	logger   *slog.Logger
	reporter diag.Reporter
	emitter  string
	maxDepth int

	calls   *transport.Queue
	results *transport.Queue
	shapes  map[[2]int64]bridge.ReturnShape

	dispatch   chan func()
	done       chan struct{}
	workerDone chan struct{}
	// inflight counts calls enqueued but not yet invoked.
	inflight   atomic.Int64
	closeOnce  sync.Once
	closeErr   error

	// owned by the event loop
	vm        *goja.Runtime
	nextID    int64
	callbacks map[int64]*callback
	listeners map[string][]*listener
	callables map[string]*goja.Object
}

type callback struct {
	module, method string
	// pair is the other channel of a two-channel call, or 0.
	pair   int64
	invoke func(vm *goja.Runtime, args []dynvalue.Value) error
}

type listener struct {
	fn goja.Callable
}

// NewEngine initializes a bridge.Host over reg and makes its modules
// available to scripts as require("bridge").NativeModules.
func NewEngine(ctx context.Context, reg *bridge.Registry, opts Options) (*Engine, error) {
	id := uuid.New()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("engine", id.String())
	reporter := opts.Reporter
	if reporter == nil {
		reporter = &diag.LogReporter{Logger: logger, Settings: opts.Developer}
	}
	emitter := opts.EventEmitter
	if emitter == "" {
		emitter = bridge.DefaultEventEmitter
	}

	rt, err := NewRuntime(ctx, RuntimeOptions{
		ModulePaths: opts.ModulePaths,
		Timeout:     opts.SyncTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:         id,
		ctx:        ctx,
		rt:         rt,
		logger:     logger,
		reporter:   reporter,
		emitter:    emitter,
		maxDepth:   opts.MaxDepth,
		dispatch:   make(chan func(), 1),
		done:       make(chan struct{}),
		workerDone: make(chan struct{}),
		callbacks:  make(map[int64]*callback),
		listeners:  make(map[string][]*listener),
		callables:  make(map[string]*goja.Object),
	}
	if err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		e.vm = vm
		return nil
	}); err != nil {
		rt.Close()
		return nil, err
	}

	if e.results, err = transport.NewQueue(transport.QueueOptions{
		Deliver:   e.deliverResults,
		Scheduler: e.scheduleOnLoop,
		Codec:     opts.WireCodec,
		Logger:    logger,
	}); err != nil {
		rt.Close()
		return nil, err
	}
	if e.calls, err = transport.NewQueue(transport.QueueOptions{
		Deliver:   e.deliverCalls,
		Scheduler: e.scheduleDispatch,
		Codec:     opts.WireCodec,
		Logger:    logger,
	}); err != nil {
		rt.Close()
		return nil, err
	}
	go e.worker()

	e.host, err = bridge.NewHost(ctx, reg, e.results,
		bridge.WithLogger(logger),
		bridge.WithReporter(reporter),
		bridge.WithDeveloperSettings(opts.Developer),
		bridge.WithEventEmitter(emitter),
	)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.shapes = make(map[[2]int64]bridge.ReturnShape)
	for _, mc := range e.host.ModuleConfigs() {
		for _, m := range mc.Methods {
			e.shapes[[2]int64{mc.ID, m.ID}] = m.Shape
		}
	}

	rt.Registry().RegisterNativeModule(ModuleName, e.require)
	logger.Debug("engine started", "modules", len(e.shapes))
	return e, nil
}

// ID identifies the engine instance. Scripts see it as instanceId.
func (e *Engine) ID() uuid.UUID { return e.id }

func (e *Engine) Host() *bridge.Host { return e.host }

func (e *Engine) Logger() *slog.Logger { return e.logger }

func (e *Engine) Runtime() *Runtime { return e.rt }

// RunScript runs src on the event loop, returning its completion value.
func (e *Engine) RunScript(name, src string) (any, error) {
	return e.rt.RunScript(name, src)
}

// Eval is RunScript, converting the completion value as arguments are.
// A promise converts to an empty object.
func (e *Engine) Eval(name, src string) (dynvalue.Value, error) {
	var result dynvalue.Value
	err := e.rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, src, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		v, err := vm.RunProgram(prg)
		if err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		result, err = FromValue(vm, v, e.maxDepth)
		return err
	})
	return result, err
}

// Pending returns the number of callback channels awaiting a result.
func (e *Engine) Pending() (int, error) {
	var n int
	err := e.rt.RunOnLoopSync(func(*goja.Runtime) error {
		n = len(e.callbacks)
		return nil
	})
	return n, err
}

// WaitIdle blocks until no call is queued or running and no callback
// channel is pending, polling every interval.
func (e *Engine) WaitIdle(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		// a flush that took the last frames runs on the loop before Pending
		queued := e.inflight.Load() + int64(e.results.Len())
		pending, err := e.Pending()
		if err != nil {
			return err
		}
		if queued == 0 && pending == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("scripting: %d queued, %d callbacks pending: %w", queued, pending, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close delivers queued calls and results, then stops the runtime.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if e.calls != nil {
			errs = append(errs, e.calls.Close())
		}
		close(e.done)
		if e.calls != nil {
			<-e.workerDone
		}
		if e.results != nil {
			// flushed on the loop, where scheduled flushes also run
			err := e.rt.TryRunOnLoopSync(e.vm, func(*goja.Runtime) error { return e.results.Close() })
			if !errors.Is(err, ErrNotRunning) {
				errs = append(errs, err)
			}
		}
		errs = append(errs, e.rt.Close())
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}

func (e *Engine) worker() {
	defer close(e.workerDone)
	for {
		select {
		case flush := <-e.dispatch:
			flush()
		case <-e.done:
			return
		}
	}
}

func (e *Engine) scheduleDispatch(flush func()) {
	select {
	case e.dispatch <- flush:
	case <-e.done:
	}
}

func (e *Engine) scheduleOnLoop(flush func()) {
	if !e.rt.RunOnLoop(func(*goja.Runtime) { flush() }) {
		e.logger.Debug("result flush dropped, runtime stopped")
	}
}

func (e *Engine) deliverCalls(b transport.Batch) error {
	for _, f := range b {
		call, ok := f.Call()
		if !ok {
			e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindProtocol, Err: fmt.Errorf("%w: %s frame on the call queue", bridge.ErrMalformedCall, f.Kind())})
			continue
		}
		if err := e.host.Invoke(e.ctx, call); err != nil {
			e.callFailed(call, err)
		}
		e.inflight.Add(-1)
	}
	return nil
}

// callFailed settles the callback channels of a call the host refused.
func (e *Engine) callFailed(call bridge.CallFrame, err error) {
	var argErr *bridge.ArgumentError
	if errors.As(err, &argErr) {
		e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindProtocol, Module: argErr.Module, Method: argErr.Method, Err: err})
	}
	items := call.Args.AsArray().Items()
	n := e.shapes[[2]int64{call.ModuleID, call.MethodID}].CallbackCount()
	if n == 0 || len(items) < n {
		return
	}
	ids := items[len(items)-n:]
	if n == 2 {
		// rejecting settles both channels
		rejectID, _ := ids[1].TryInt64()
		payload := bridge.ErrorPayloadFrom(err).Value()
		if sendErr := e.results.SendResult(bridge.ResultFrame{ChannelID: rejectID, Args: dynvalue.NewArray(payload)}); sendErr == nil {
			return
		}
	}
	e.rt.RunOnLoop(func(*goja.Runtime) {
		for _, id := range ids {
			i, _ := id.TryInt64()
			e.release(i)
		}
	})
}

func (e *Engine) deliverResults(b transport.Batch) error {
	return e.rt.TryRunOnLoopSync(e.vm, func(vm *goja.Runtime) error {
		for _, f := range b {
			switch f.Kind() {
			case transport.KindResult:
				r, _ := f.Result()
				e.settle(vm, r)
			case transport.KindEngineCall:
				c, _ := f.EngineCall()
				e.callEngine(vm, c)
			default:
				e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindProtocol, Err: fmt.Errorf("%w: %s frame on the result queue", bridge.ErrMalformedCall, f.Kind())})
			}
		}
		return nil
	})
}

func (e *Engine) register(cb *callback) int64 {
	e.nextID++
	e.callbacks[e.nextID] = cb
	return e.nextID
}

func (e *Engine) registerPair(ok, fail *callback) (okID, failID int64) {
	okID, failID = e.register(ok), e.register(fail)
	ok.pair, fail.pair = failID, okID
	return okID, failID
}

func (e *Engine) release(id int64) {
	if cb, ok := e.callbacks[id]; ok {
		delete(e.callbacks, id)
		if cb.pair != 0 {
			delete(e.callbacks, cb.pair)
		}
	}
}

func (e *Engine) settle(vm *goja.Runtime, r bridge.ResultFrame) {
	cb, ok := e.callbacks[r.ChannelID]
	if !ok {
		e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindProtocol, Err: fmt.Errorf("%w: result for unknown channel %d", bridge.ErrMalformedCall, r.ChannelID)})
		return
	}
	e.release(r.ChannelID)
	args := []dynvalue.Value{r.Args}
	if arr, isArray := r.Args.TryArray(); isArray {
		args = arr.Items()
	}
	if err := cb.invoke(vm, args); err != nil {
		e.scriptError(cb.module, cb.method, err)
	}
}

func (e *Engine) callEngine(vm *goja.Runtime, c bridge.EngineCall) {
	var args []dynvalue.Value
	if arr, ok := c.Args.TryArray(); ok {
		args = arr.Items()
	}
	if c.Module == e.emitter && c.Method == "emit" && len(args) > 0 {
		e.emit(vm, args[0].AsJSString(), args[1:])
		return
	}
	obj, ok := e.callables[c.Module]
	if !ok {
		e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindOutbound, Module: c.Module, Method: c.Method, Err: fmt.Errorf("%w: no callable module %q", bridge.ErrUnknownModule, c.Module)})
		return
	}
	fn, ok := goja.AssertFunction(obj.Get(c.Method))
	if !ok {
		e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindOutbound, Module: c.Module, Method: c.Method, Err: fmt.Errorf("%w: %s.%s is not a function", bridge.ErrUnknownMethod, c.Module, c.Method)})
		return
	}
	if _, err := fn(obj, jsArgs(vm, args)...); err != nil {
		e.scriptError(c.Module, c.Method, err)
	}
}

func (e *Engine) emit(vm *goja.Runtime, event string, args []dynvalue.Value) {
	ls := e.listeners[event]
	if len(ls) == 0 {
		e.logger.Debug("event without listeners", "event", event)
		return
	}
	values := jsArgs(vm, args)
	for _, l := range append([]*listener(nil), ls...) {
		if _, err := l.fn(goja.Undefined(), values...); err != nil {
			e.scriptError(e.emitter, event, err)
		}
	}
}

func (e *Engine) scriptError(module, method string, err error) {
	e.reporter.Report(e.ctx, diag.Report{Kind: diag.KindScript, Module: module, Method: method, Err: err})
}

func jsArgs(vm *goja.Runtime, args []dynvalue.Value) []goja.Value {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		out[i] = ToValue(vm, a)
	}
	return out
}

// errorValue builds a JS Error carrying the payload's extra properties.
func errorValue(vm *goja.Runtime, p bridge.ErrorPayload) goja.Value {
	obj, err := vm.New(vm.Get("Error"), vm.ToValue(p.Message))
	if err != nil {
		return vm.NewGoError(errors.New(p.Message))
	}
	for _, prop := range p.Extra {
		_ = obj.Set(prop.Key, ToValue(vm, prop.Value))
	}
	return obj
}
