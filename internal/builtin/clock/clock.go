// Package clock is a sample native module whose results and events arrive
// from background goroutines: delayed promises and named repeating timers.
package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

const Name = "Clock"

// Event names emitted on the module's event emitter.
const (
	EventReady = "clockReady"
	EventTick  = "clockTick"
	EventDone  = "clockDone"
)

// Tick is the payload of EventTick.
type Tick struct {
	Timer string
	Seq   int
	// At is milliseconds since the Unix epoch.
	At int64
}

var tickCodec = codec.Struct("Tick",
	codec.FieldRef("timer", codec.String, func(t *Tick) *string { return &t.Timer }),
	codec.FieldRef("seq", codec.Int, func(t *Tick) *int { return &t.Seq }),
	codec.FieldRef("at", codec.Int64, func(t *Tick) *int64 { return &t.At }),
)

type Options struct {
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Module is one instance of the clock. Close stops its timers.
type Module struct {
	now     func() time.Time
	started time.Time
	logger  *slog.Logger
	tick    *bridge.Event[Tick]
	mc      atomic.Pointer[bridge.ModuleContext]

	mu        sync.Mutex
	timers    map[string]*timer
	sleeps    map[int]context.CancelFunc
	nextSleep int
	closed    bool
	wg        sync.WaitGroup
}

func New(opts Options) *Module {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Module{
		now:     now,
		started: now(),
		logger:  logger.With("module", Name),
		timers:  make(map[string]*timer),
		sleeps:  make(map[int]context.CancelFunc),
	}
}

// Provide registers the module:
//
//	startedAt: string (constant)
//	now(): number (sync, ms since epoch)
//	sleep(ms): Promise<number>, resolving with the ms actually slept
//	startTimer(name, intervalMs, count) (void), emitting clockTick count
//	  times then clockDone
//	stopTimer(name): boolean (sync)
//	activeTimers(): string[] (sync)
func (m *Module) Provide(b *bridge.ModuleBuilder) {
	b.AddConstant("startedAt", dynvalue.String(m.started.UTC().Format(time.RFC3339Nano)))
	m.tick = bridge.NewEvent(b, EventTick, tickCodec)

	b.AddInitializer(func(_ context.Context, mc *bridge.ModuleContext) error {
		m.mc.Store(mc)
		return mc.EmitEvent(EventReady, dynvalue.Int64(m.started.UnixMilli()))
	})

	bridge.AddSync(b, "now", bridge.NoParams(), codec.Int64,
		func(context.Context, struct{}) (int64, error) {
			return m.now().UnixMilli(), nil
		})

	bridge.AddPromise(b, "sleep", bridge.Params1(codec.Int64), codec.Int64,
		func(_ context.Context, ms int64, promise bridge.Promise[int64]) error {
			if ms < 0 {
				return bridge.NewJSError(fmt.Sprintf("sleep: negative duration %dms", ms))
			}
			return m.sleep(func(stop <-chan struct{}) {
				start := time.Now()
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-timer.C:
					_ = promise.Resolve(time.Since(start).Milliseconds())
				case <-stop:
					_ = promise.Reject(bridge.NewJSError("sleep: clock closed"))
				}
			})
		})

	bridge.AddVoid(b, "startTimer", bridge.Params3(codec.String, codec.Int64, codec.Int),
		func(_ context.Context, p codec.Tuple3[string, int64, int]) error {
			return m.startTimer(p.First, time.Duration(p.Second)*time.Millisecond, p.Third)
		})

	bridge.AddSync(b, "stopTimer", bridge.Params1(codec.String), codec.Bool,
		func(_ context.Context, name string) (bool, error) {
			m.mu.Lock()
			t, ok := m.timers[name]
			if ok {
				delete(m.timers, name)
			}
			m.mu.Unlock()
			if ok {
				t.cancel()
			}
			return ok, nil
		})

	bridge.AddSync(b, "activeTimers", bridge.NoParams(), codec.Slice(codec.String),
		func(context.Context, struct{}) ([]string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			names := make([]string, 0, len(m.timers))
			for name := range m.timers {
				names = append(names, name)
			}
			slices.Sort(names)
			return names, nil
		})
}

func (m *Module) startTimer(name string, interval time.Duration, count int) error {
	if name == "" || interval <= 0 || count <= 0 {
		return fmt.Errorf("clock: startTimer(%q, %v, %d): name, interval and count are required", name, interval, count)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return errClosed
	}
	if _, dup := m.timers[name]; dup {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("clock: timer %q already running", name)
	}
	t := &timer{cancel: cancel}
	m.timers[name] = t
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			if m.timers[name] == t {
				delete(m.timers, name)
			}
			m.mu.Unlock()
			cancel()
			if mc := m.mc.Load(); mc != nil {
				if err := mc.EmitEvent(EventDone, dynvalue.String(name)); err != nil {
					m.logger.Debug("clock done event dropped", "timer", name, "error", err)
				}
			}
		}()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for seq := 1; seq <= count; seq++ {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
			if err := m.tick.Emit(Tick{Timer: name, Seq: seq, At: m.now().UnixMilli()}); err != nil {
				m.logger.Warn("clock tick dropped", "timer", name, "seq", seq, "error", err)
				return
			}
		}
	}()
	return nil
}

var errClosed = errors.New("clock: closed")

type timer struct {
	cancel context.CancelFunc
}

// sleep runs fn on a goroutine tracked by Close, which closes stop.
func (m *Module) sleep(fn func(stop <-chan struct{})) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return errClosed
	}
	m.nextSleep++
	key := m.nextSleep
	m.sleeps[key] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.sleeps, key)
			m.mu.Unlock()
			cancel()
		}()
		fn(ctx.Done())
	}()
	return nil
}

// Close stops every timer and pending sleep and waits for their goroutines.
func (m *Module) Close() error {
	m.mu.Lock()
	m.closed = true
	for _, t := range m.timers {
		t.cancel()
	}
	for _, cancel := range m.sleeps {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}
