// Package transport moves bridge frames between the host and the engine:
// the Frame sum type, batch wire codecs, and an ordered outbound Queue.
package transport

import (
	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

// Frame kinds, as written to the Kind discriminator.
const (
	KindCall       = "call"
	KindResult     = "result"
	KindEngineCall = "engineCall"
)

// Frame holds exactly one of a bridge.CallFrame, bridge.ResultFrame or
// bridge.EngineCall. The zero Frame holds nothing and does not marshal.
type Frame struct {
	call   *bridge.CallFrame
	result *bridge.ResultFrame
	engine *bridge.EngineCall
}

// Batch is an ordered run of frames delivered in one flush.
type Batch []Frame

// CallOf wraps an inbound call.
func CallOf(f bridge.CallFrame) Frame { return Frame{call: &f} }

// ResultOf wraps a channel completion.
func ResultOf(f bridge.ResultFrame) Frame { return Frame{result: &f} }

// EngineCallOf wraps an outbound engine call.
func EngineCallOf(c bridge.EngineCall) Frame { return Frame{engine: &c} }

// Kind returns the frame kind, or "" for the zero Frame.
func (f Frame) Kind() string {
	switch {
	case f.call != nil:
		return KindCall
	case f.result != nil:
		return KindResult
	case f.engine != nil:
		return KindEngineCall
	default:
		return ""
	}
}

func (f Frame) Call() (bridge.CallFrame, bool) {
	if f.call == nil {
		return bridge.CallFrame{}, false
	}
	return *f.call, true
}

func (f Frame) Result() (bridge.ResultFrame, bool) {
	if f.result == nil {
		return bridge.ResultFrame{}, false
	}
	return *f.result, true
}

func (f Frame) EngineCall() (bridge.EngineCall, bool) {
	if f.engine == nil {
		return bridge.EngineCall{}, false
	}
	return *f.engine, true
}

var (
	callCodec = codec.Struct("call",
		codec.FieldRef("moduleId", codec.Int64, func(f *bridge.CallFrame) *int64 { return &f.ModuleID }),
		codec.FieldRef("methodId", codec.Int64, func(f *bridge.CallFrame) *int64 { return &f.MethodID }),
		codec.FieldRef("args", codec.Value, func(f *bridge.CallFrame) *dynvalue.Value { return &f.Args }),
	)

	resultCodec = codec.Struct("result",
		codec.FieldRef("channelId", codec.Int64, func(f *bridge.ResultFrame) *int64 { return &f.ChannelID }),
		codec.FieldRef("args", codec.Value, func(f *bridge.ResultFrame) *dynvalue.Value { return &f.Args }),
	)

	engineCallCodec = codec.Struct("engineCall",
		codec.FieldRef("module", codec.String, func(c *bridge.EngineCall) *string { return &c.Module }),
		codec.FieldRef("method", codec.String, func(c *bridge.EngineCall) *string { return &c.Method }),
		codec.FieldRef("args", codec.Value, func(c *bridge.EngineCall) *dynvalue.Value { return &c.Args }),
	)

	// FrameCodec marshals a Frame as an Object whose Kind property selects
	// the frame type.
	FrameCodec = codec.Union("frame",
		codec.Variant(KindCall, callCodec, CallOf, Frame.Call),
		codec.Variant(KindResult, resultCodec, ResultOf, Frame.Result),
		codec.Variant(KindEngineCall, engineCallCodec, EngineCallOf, Frame.EngineCall),
	)

	frames = codec.Slice(FrameCodec)

	// BatchCodec marshals a Batch as an Array of frames. An empty or nil
	// Batch marshals as an empty Array.
	BatchCodec = codec.New("batch", frames.Accepts,
		func(r dynio.Reader) (Batch, error) {
			fs, err := frames.Read(r)
			return Batch(fs), err
		},
		func(w dynio.Writer, b Batch) error {
			if b == nil {
				b = Batch{}
			}
			return frames.Write(w, []Frame(b))
		},
	)
)
