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
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"

	"github.com/joeycumines/go-nativebridge/internal/goroutineid"
)

// ErrNotRunning is returned when work is submitted to a stopped Runtime.
var ErrNotRunning = errors.New("scripting: event loop not running")

// DefaultSyncTimeout bounds RunOnLoopSync.
const DefaultSyncTimeout = 5 * time.Second

// Runtime owns a goja runtime and the event loop serializing all access to
// it. goja.Runtime is not goroutine-safe: every use goes through RunOnLoop
// or RunOnLoopSync, and promises are settled on the loop.
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
	timeout  time.Duration

	// loopID is the event loop goroutine, for re-entrancy detection.
	loopID atomic.Int64

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// RuntimeOptions configures NewRuntime.
type RuntimeOptions struct {
	// Registry receives native modules. Nil creates one searching
	// ModulePaths.
	Registry    *require.Registry
	ModulePaths []string
	// Timeout bounds RunOnLoopSync. Zero means DefaultSyncTimeout; negative
	// disables it.
	Timeout time.Duration
	// Logger receives console output.
	Logger *slog.Logger
}

// NewRuntime starts an event loop. Cancelling ctx closes the runtime.
func NewRuntime(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	registry := opts.Registry
	if registry == nil {
		registry = require.NewRegistry(require.WithGlobalFolders(opts.ModulePaths...))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(consolePrinter{logger}))

	timeout := opts.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultSyncTimeout
	case timeout < 0:
		timeout = 0
	}

	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)

	lifetime, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		loop:     loop,
		registry: registry,
		timeout:  timeout,
		ctx:      lifetime,
		cancel:   cancel,
	}

	loop.Start()

	started := make(chan struct{})
	if !loop.RunOnLoop(func(*goja.Runtime) {
		rt.loopID.Store(goroutineid.Get())
		close(started)
	}) {
		cancel()
		loop.Stop()
		return nil, fmt.Errorf("scripting: start runtime: %w", ErrNotRunning)
	}
	<-started

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() { rt.Close() })
	}
	return rt, nil
}

// Registry returns the require registry native modules are registered in.
// Modules must be registered before a script requires them.
func (rt *Runtime) Registry() *require.Registry { return rt.registry }

// Close stops the event loop, waiting for the current job. It is safe to
// call more than once.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	rt.mu.Unlock()

	// unblock waiters before the loop drains
	rt.cancel()
	rt.loop.Stop()
	return nil
}

// Done is closed once the runtime stops.
func (rt *Runtime) Done() <-chan struct{} { return rt.ctx.Done() }

// IsRunning reports whether the runtime accepts work.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return !rt.stopped
}

// Timeout returns the RunOnLoopSync bound, 0 meaning none.
func (rt *Runtime) Timeout() time.Duration { return rt.timeout }

// OnLoop reports whether the caller is the event loop goroutine.
func (rt *Runtime) OnLoop() bool {
	id := rt.loopID.Load()
	return id > 0 && goroutineid.Get() == id
}

// RunOnLoop schedules fn on the event loop, reporting false if the runtime
// is stopped. vm must not escape fn.
func (rt *Runtime) RunOnLoop(fn func(vm *goja.Runtime)) bool {
	if !rt.IsRunning() {
		return false
	}
	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync runs fn on the event loop and waits for its result, the
// runtime stopping, or the timeout. It deadlocks if called from the loop;
// use TryRunOnLoopSync where that can happen.
func (rt *Runtime) RunOnLoopSync(fn func(vm *goja.Runtime) error) error {
	if !rt.IsRunning() {
		return ErrNotRunning
	}

	errCh := make(chan error, 1)
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) { errCh <- fn(vm) }) {
		return ErrNotRunning
	}

	var expired <-chan time.Time
	if rt.timeout > 0 {
		timer := time.NewTimer(rt.timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return errors.New("scripting: runtime stopped before completion")
	case <-expired:
		return fmt.Errorf("scripting: operation timed out after %v", rt.timeout)
	}
}

// TryRunOnLoopSync is RunOnLoopSync that runs fn directly, with vm, when
// already on the event loop goroutine.
func (rt *Runtime) TryRunOnLoopSync(vm *goja.Runtime, fn func(vm *goja.Runtime) error) error {
	if !rt.IsRunning() {
		return ErrNotRunning
	}
	if vm != nil && rt.OnLoop() {
		return fn(vm)
	}
	return rt.RunOnLoopSync(fn)
}

// RunScript compiles and runs src in strict mode, returning the completion
// value exported to Go.
func (rt *Runtime) RunScript(name, src string) (any, error) {
	var result any
	err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, src, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		v, err := vm.RunProgram(prg)
		if err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		if v != nil {
			result = v.Export()
		}
		return nil
	})
	return result, err
}

type consolePrinter struct{ logger *slog.Logger }

func (p consolePrinter) Log(s string)   { p.logger.Info(s, "source", "console") }
func (p consolePrinter) Warn(s string)  { p.logger.Warn(s, "source", "console") }
func (p consolePrinter) Error(s string) { p.logger.Error(s, "source", "console") }
