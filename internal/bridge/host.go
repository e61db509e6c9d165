package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// MethodConfig describes one method of a module, as exported to the engine.
type MethodConfig struct {
	ID    int64
	Name  string
	Shape ReturnShape
}

// ModuleConfig describes an initialised module, as exported to the engine.
type ModuleConfig struct {
	ID           int64
	Name         string
	Constants    dynvalue.Value
	Methods      []MethodConfig
	EventEmitter string
	Events       []string
}

type module struct {
	id          int64
	name        string
	emitterName string
	constants   dynvalue.Value
	methods     []*method
	methodIndex map[string]int
	events      []string
	logger      *slog.Logger
}

// Option configures a Host.
type Option func(*hostOptions)

type hostOptions struct {
	reporter     diag.Reporter
	logger       *slog.Logger
	settings     diag.DeveloperSettings
	eventEmitter string
}

// WithReporter sets the host error channel. The default logs reports.
func WithReporter(r diag.Reporter) Option {
	return func(o *hostOptions) { o.reporter = r }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *hostOptions) { o.logger = l }
}

// WithDeveloperSettings enables developer support such as frame logging.
func WithDeveloperSettings(s diag.DeveloperSettings) Option {
	return func(o *hostOptions) { o.settings = s }
}

// WithEventEmitter sets the engine module receiving events of modules that
// do not call SetEventEmitterName. The default is DefaultEventEmitter.
func WithEventEmitter(name string) Option {
	return func(o *hostOptions) { o.eventEmitter = name }
}

// Host is an initialised set of modules. It is immutable once NewHost
// returns; dispatch is safe for concurrent use and each call gets its own
// reader, writer and sinks.
type Host struct {
	out         Outbound
	reporter    diag.Reporter
	logger      *slog.Logger
	settings    diag.DeveloperSettings
	modules     []*module
	moduleIndex map[string]int
}

// NewHost initialises every module of reg. Providers run in registration
// order, then each module's constants are flushed into a single Object,
// then event and function handles are wired, then initializers run. Methods
// are callable once NewHost returns.
func NewHost(ctx context.Context, reg *Registry, out Outbound, opts ...Option) (*Host, error) {
	if out == nil {
		return nil, errors.New("bridge: nil outbound")
	}
	o := hostOptions{eventEmitter: DefaultEventEmitter}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.reporter == nil {
		o.reporter = &diag.LogReporter{Logger: o.logger, Settings: o.settings}
	}
	h := &Host{
		out:         out,
		reporter:    o.reporter,
		logger:      o.logger,
		settings:    o.settings,
		moduleIndex: make(map[string]int),
	}

	regs := reg.snapshot()
	builders := make([]*ModuleBuilder, len(regs))
	for i, r := range regs {
		b := newModuleBuilder(r.name)
		r.provider(b)
		if err := b.err(); err != nil {
			return nil, err
		}
		builders[i] = b
		emitter := b.emitterName
		if emitter == "" {
			emitter = o.eventEmitter
		}
		m := &module{
			id:          int64(i),
			name:        r.name,
			emitterName: emitter,
			methods:     b.methods,
			methodIndex: b.methodIndex,
			logger:      h.logger.With("module", r.name),
		}
		h.moduleIndex[r.name] = i
		h.modules = append(h.modules, m)
	}

	for i, b := range builders {
		constants, err := flushConstants(b.constants)
		if err != nil {
			return nil, fmt.Errorf("bridge: module %s: constants: %w", b.name, err)
		}
		h.modules[i].constants = constants
	}

	for i, b := range builders {
		m := h.modules[i]
		for _, s := range b.setters {
			em := Emitter{host: h, module: m.name}
			if s.target == "" {
				em.event, em.target, em.method = s.name, m.emitterName, "emit"
				m.events = append(m.events, s.name)
			} else {
				em.target, em.method = s.target, s.name
			}
			s.set(em)
		}
	}

	for i, b := range builders {
		mc := &ModuleContext{host: h, module: h.modules[i]}
		for _, fn := range b.initializers {
			if err := fn(ctx, mc); err != nil {
				return nil, fmt.Errorf("bridge: module %s: initialize: %w", b.name, err)
			}
		}
	}

	h.logger.Debug("bridge host ready", "modules", len(h.modules))
	return h, nil
}

func flushConstants(providers []ConstantProvider) (dynvalue.Value, error) {
	w := dynio.NewValueWriter()
	if err := w.WriteObjectBegin(); err != nil {
		return dynvalue.Value{}, err
	}
	for _, p := range providers {
		if err := p(w); err != nil {
			return dynvalue.Value{}, err
		}
		if w.State() != dynio.StatePropertyName {
			return dynvalue.Value{}, &dynio.StateError{Op: "ConstantProvider", State: w.State()}
		}
	}
	if err := w.WriteObjectEnd(); err != nil {
		return dynvalue.Value{}, err
	}
	return w.TakeValue()
}

// Logger returns the host logger.
func (h *Host) Logger() *slog.Logger { return h.logger }

// Reporter returns the host error channel.
func (h *Host) Reporter() diag.Reporter { return h.reporter }

// ModuleConfigs describes every module, in id order.
func (h *Host) ModuleConfigs() []ModuleConfig {
	configs := make([]ModuleConfig, len(h.modules))
	for i, m := range h.modules {
		methods := make([]MethodConfig, len(m.methods))
		for j, meth := range m.methods {
			methods[j] = MethodConfig{ID: int64(j), Name: meth.name, Shape: meth.shape}
		}
		configs[i] = ModuleConfig{
			ID:           m.id,
			Name:         m.name,
			Constants:    m.constants,
			Methods:      methods,
			EventEmitter: m.emitterName,
			Events:       append([]string(nil), m.events...),
		}
	}
	return configs
}

// Constants returns the constants Object of the named module.
func (h *Host) Constants(name string) (dynvalue.Value, bool) {
	i, ok := h.moduleIndex[name]
	if !ok {
		return dynvalue.Value{}, false
	}
	return h.modules[i].constants, true
}

// Lookup resolves a method by name.
func (h *Host) Lookup(moduleName, methodName string) (moduleID, methodID int64, shape ReturnShape, err error) {
	i, ok := h.moduleIndex[moduleName]
	if !ok {
		return 0, 0, 0, &ProtocolError{Module: moduleName, Err: ErrUnknownModule}
	}
	m := h.modules[i]
	j, ok := m.methodIndex[methodName]
	if !ok {
		return 0, 0, 0, &ProtocolError{Module: moduleName, Method: methodName, Err: ErrUnknownMethod}
	}
	return m.id, int64(j), m.methods[j].shape, nil
}

func (h *Host) resolve(f CallFrame) (*module, *method, error) {
	if f.ModuleID < 0 || f.ModuleID >= int64(len(h.modules)) {
		return nil, nil, &ProtocolError{Module: fmt.Sprintf("#%d", f.ModuleID), Err: ErrUnknownModule}
	}
	m := h.modules[f.ModuleID]
	if f.MethodID < 0 || f.MethodID >= int64(len(m.methods)) {
		return m, nil, &ProtocolError{Module: m.name, Method: fmt.Sprintf("#%d", f.MethodID), Err: ErrUnknownMethod}
	}
	return m, m.methods[f.MethodID], nil
}

// Invoke dispatches an asynchronous call. Protocol errors are reported and
// returned; an *ArgumentError is returned without completing any channel.
// Every other outcome, including handler failures, travels through the
// call's channels or the reporter, and Invoke returns nil.
func (h *Host) Invoke(ctx context.Context, f CallFrame) error {
	m, meth, err := h.resolve(f)
	if err != nil {
		return h.protocolError(ctx, err)
	}
	if meth.shape == ShapeSync {
		return h.protocolError(ctx, &ProtocolError{Module: m.name, Method: meth.name, Err: ErrWrongShape})
	}
	arr, ok := f.Args.TryArray()
	if !ok {
		return h.protocolError(ctx, &ProtocolError{Module: m.name, Method: meth.name, Err: fmt.Errorf("%w: arguments are %s", ErrMalformedCall, f.Args.Type())})
	}
	items := arr.Items()
	n := meth.shape.CallbackCount()
	if len(items) < n {
		return h.protocolError(ctx, &ProtocolError{Module: m.name, Method: meth.name, Err: fmt.Errorf("%w: missing channel ids", ErrMalformedCall)})
	}
	p := &pending{host: h, ctx: context.WithoutCancel(ctx), module: m.name, method: meth.name}
	sinks := make([]Sink, n)
	for i, v := range items[len(items)-n:] {
		id, ok := channelID(v)
		if !ok {
			return h.protocolError(ctx, &ProtocolError{Module: m.name, Method: meth.name, Err: fmt.Errorf("%w: channel id %s", ErrMalformedCall, v)})
		}
		sinks[i] = Sink{p: p, id: id}
	}
	items = items[:len(items)-n]
	if h.settings.FrameLogging() {
		m.logger.Debug("bridge call", "method", meth.name, "shape", meth.shape.String(), "args", dynvalue.NewArray(items...).String())
	}

	err = callHandler(func() error {
		return meth.handler(ctx, dynio.NewValueReader(dynvalue.NewArray(items...)), sinks...)
	})
	if err == nil {
		return nil
	}
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		argErr.Module, argErr.Method = m.name, meth.name
		return argErr
	}
	if n == 2 {
		if claimed, _ := sinks[1].tryComplete(dynvalue.NewArray(ErrorPayloadFrom(err).Value())); claimed {
			return nil
		}
	}
	h.report(ctx, diag.Report{Kind: diag.KindHandler, Module: m.name, Method: meth.name, Err: err})
	return nil
}

// InvokeSync dispatches a Sync call and returns its result. Protocol errors
// are reported and returned; handler errors and panics are returned.
func (h *Host) InvokeSync(ctx context.Context, f CallFrame) (dynvalue.Value, error) {
	m, meth, err := h.resolve(f)
	if err != nil {
		return dynvalue.Value{}, h.protocolError(ctx, err)
	}
	if meth.shape != ShapeSync {
		return dynvalue.Value{}, h.protocolError(ctx, &ProtocolError{Module: m.name, Method: meth.name, Err: ErrWrongShape})
	}
	if f.Args.Type() != dynvalue.TypeArray {
		return dynvalue.Value{}, h.protocolError(ctx, &ProtocolError{Module: m.name, Method: meth.name, Err: fmt.Errorf("%w: arguments are %s", ErrMalformedCall, f.Args.Type())})
	}
	if h.settings.FrameLogging() {
		m.logger.Debug("bridge call", "method", meth.name, "shape", meth.shape.String(), "args", f.Args.String())
	}

	w := dynio.NewValueWriter()
	err = callHandler(func() error {
		return meth.sync(ctx, dynio.NewValueReader(f.Args), w)
	})
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			argErr.Module, argErr.Method = m.name, meth.name
		}
		return dynvalue.Value{}, err
	}
	if w.State() == dynio.StateStart {
		return dynvalue.Null(), nil
	}
	result, err := w.TakeValue()
	if err != nil {
		return dynvalue.Value{}, fmt.Errorf("bridge: %s.%s: incomplete result: %w", m.name, meth.name, err)
	}
	return result, nil
}

// InvokeByName is Invoke addressed by names. args must include the trailing
// channel ids of asynchronous shapes.
func (h *Host) InvokeByName(ctx context.Context, moduleName, methodName string, args dynvalue.Value) error {
	moduleID, methodID, _, err := h.Lookup(moduleName, methodName)
	if err != nil {
		return h.protocolError(ctx, err)
	}
	return h.Invoke(ctx, CallFrame{ModuleID: moduleID, MethodID: methodID, Args: args})
}

// InvokeSyncByName is InvokeSync addressed by names.
func (h *Host) InvokeSyncByName(ctx context.Context, moduleName, methodName string, args dynvalue.Value) (dynvalue.Value, error) {
	moduleID, methodID, _, err := h.Lookup(moduleName, methodName)
	if err != nil {
		return dynvalue.Value{}, h.protocolError(ctx, err)
	}
	return h.InvokeSync(ctx, CallFrame{ModuleID: moduleID, MethodID: methodID, Args: args})
}

func channelID(v dynvalue.Value) (int64, bool) {
	switch v.Type() {
	case dynvalue.TypeInt64:
		id, _ := v.TryInt64()
		return id, true
	case dynvalue.TypeDouble:
		f, _ := v.TryDouble()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

func callHandler(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("bridge: handler panic: %w", e)
			} else {
				err = fmt.Errorf("bridge: handler panic: %v", r)
			}
		}
	}()
	return fn()
}

func (h *Host) protocolError(ctx context.Context, err error) error {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		h.report(ctx, diag.Report{Kind: diag.KindProtocol, Module: pe.Module, Method: pe.Method, Err: err})
	} else {
		h.report(ctx, diag.Report{Kind: diag.KindProtocol, Err: err})
	}
	return err
}

func (h *Host) report(ctx context.Context, r diag.Report) {
	h.reporter.Report(ctx, r)
}

func (h *Host) sendResult(ctx context.Context, moduleName, methodName string, f ResultFrame) error {
	if h.settings.FrameLogging() {
		h.logger.Debug("bridge result", "module", moduleName, "method", methodName, "channel", f.ChannelID, "args", f.Args.String())
	}
	if err := h.out.SendResult(f); err != nil {
		err = fmt.Errorf("bridge: send result %d: %w", f.ChannelID, err)
		h.report(ctx, diag.Report{Kind: diag.KindOutbound, Module: moduleName, Method: methodName, Err: err})
		return err
	}
	return nil
}

func (h *Host) callEngine(ctx context.Context, moduleName string, c EngineCall) error {
	if h.settings.FrameLogging() {
		h.logger.Debug("bridge engine call", "module", moduleName, "target", c.Module, "method", c.Method, "args", c.Args.String())
	}
	if err := h.out.CallEngine(c); err != nil {
		err = fmt.Errorf("bridge: call %s.%s: %w", c.Module, c.Method, err)
		h.report(ctx, diag.Report{Kind: diag.KindOutbound, Module: moduleName, Method: c.Method, Err: err})
		return err
	}
	return nil
}
