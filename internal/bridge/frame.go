package bridge

import "github.com/joeycumines/go-nativebridge/internal/dynvalue"

// CallFrame is an inbound method call. For asynchronous shapes Args ends
// with the channel ids allocated by the engine, as Int64 values: one for
// Callback, resolve then reject for TwoCallbacks and Promise.
type CallFrame struct {
	ModuleID int64
	MethodID int64
	Args     dynvalue.Value
}

// ResultFrame completes a channel. Whether it counts as success or failure
// depends only on which channel id it carries.
type ResultFrame struct {
	ChannelID int64
	Args      dynvalue.Value
}

// EngineCall invokes a function exported by the engine, such as the event
// emitter's emit, without waiting for a reply.
type EngineCall struct {
	Module string
	Method string
	Args   dynvalue.Value
}

// Outbound carries frames toward the engine. Implementations must preserve
// the order of calls and be safe for concurrent use.
type Outbound interface {
	SendResult(f ResultFrame) error
	CallEngine(c EngineCall) error
}

// OutboundFuncs adapts a pair of functions to Outbound. A nil function
// drops its frames.
type OutboundFuncs struct {
	Result func(ResultFrame) error
	Engine func(EngineCall) error
}

func (o OutboundFuncs) SendResult(f ResultFrame) error {
	if o.Result == nil {
		return nil
	}
	return o.Result(f)
}

func (o OutboundFuncs) CallEngine(c EngineCall) error {
	if o.Engine == nil {
		return nil
	}
	return o.Engine(c)
}
