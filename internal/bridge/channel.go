package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

var errZeroSink = errors.New("bridge: sink has no channel")

// pending is the state shared by the sinks of one inbound call. Exactly one
// completion wins; resolve and reject of a pair share the guard.
type pending struct {
	host   *Host
	ctx    context.Context
	module string
	method string
	done   atomic.Bool
}

// Sink completes one channel of an inbound call. Sinks are safe to use from
// any goroutine and may outlive the handler that received them.
type Sink struct {
	p  *pending
	id int64
}

// ID returns the channel id.
func (s Sink) ID() int64 { return s.id }

// Completed reports whether the call this sink belongs to has been completed
// through any of its sinks.
func (s Sink) Completed() bool {
	return s.p != nil && s.p.done.Load()
}

// Send completes the channel with args. A second completion of the call,
// through this or a sibling sink, is discarded, reported, and returns
// ErrAlreadyCompleted.
func (s Sink) Send(args ...dynvalue.Value) error {
	return s.complete(dynvalue.NewArray(args...))
}

// Write completes the channel with the arguments fn writes. w is positioned
// inside the argument Array. If fn fails the channel stays open.
func (s Sink) Write(fn func(w dynio.Writer) error) error {
	w := dynio.NewValueWriter()
	if err := w.WriteArrayBegin(); err != nil {
		return err
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
	return s.complete(args)
}

func (s Sink) complete(args dynvalue.Value) error {
	if s.p == nil {
		return errZeroSink
	}
	claimed, err := s.tryComplete(args)
	if !claimed {
		p := s.p
		err = fmt.Errorf("%w: %s.%s channel %d", ErrAlreadyCompleted, p.module, p.method, s.id)
		p.host.report(p.ctx, diag.Report{Kind: diag.KindDoubleCompletion, Module: p.module, Method: p.method, Err: err})
	}
	return err
}

// tryComplete sends args only if the call is still pending.
func (s Sink) tryComplete(args dynvalue.Value) (bool, error) {
	p := s.p
	if !p.done.CompareAndSwap(false, true) {
		return false, nil
	}
	return true, p.host.sendResult(p.ctx, p.module, p.method, ResultFrame{ChannelID: s.id, Args: args})
}
