package bridge

import (
	"context"

	"github.com/joeycumines/go-nativebridge/internal/codec"
	"github.com/joeycumines/go-nativebridge/internal/dynio"
)

// Callback is the continuation of a Callback method.
type Callback[R any] struct {
	sink  Sink
	codec codec.Codec[R]
}

// Invoke completes the call with v as the single argument.
func (c Callback[R]) Invoke(v R) error {
	return c.sink.Write(func(w dynio.Writer) error { return c.codec.Write(w, v) })
}

// Sink exposes the underlying channel, for multi-argument replies.
func (c Callback[R]) Sink() Sink { return c.sink }

// Resolver is the success continuation of a TwoCallbacks or Promise method.
type Resolver[R any] struct {
	sink  Sink
	codec codec.Codec[R]
}

// Resolve completes the call successfully with v.
func (r Resolver[R]) Resolve(v R) error {
	return r.sink.Write(func(w dynio.Writer) error { return r.codec.Write(w, v) })
}

// Rejecter is the failure continuation of a TwoCallbacks or Promise method.
type Rejecter struct {
	sink Sink
}

// Reject completes the call with the payload of err, see ErrorPayloadFrom.
func (r Rejecter) Reject(err error) error {
	return r.RejectWith(ErrorPayloadFrom(err))
}

// RejectWith completes the call with p.
func (r Rejecter) RejectWith(p ErrorPayload) error {
	return r.sink.Send(p.Value())
}

// Promise is the resolve/reject pair of a Promise method as one object.
// At most one of Resolve and Reject takes effect.
type Promise[R any] struct {
	Resolver[R]
	Rejecter
}

// Completed reports whether the promise has been settled.
func (p Promise[R]) Completed() bool { return p.Resolver.sink.Completed() }

// AddVoid registers a Void method with typed parameters.
func AddVoid[P any](b *ModuleBuilder, name string, params Params[P], fn func(ctx context.Context, p P) error) {
	b.AddMethod(name, ShapeVoid, func(ctx context.Context, args dynio.Reader, _ ...Sink) error {
		p, err := params.Read(args)
		if err != nil {
			return err
		}
		return fn(ctx, p)
	})
}

// AddCallback registers a Callback method whose reply is a single R.
func AddCallback[P, R any](b *ModuleBuilder, name string, params Params[P], result codec.Codec[R], fn func(ctx context.Context, p P, cb Callback[R]) error) {
	b.AddMethod(name, ShapeCallback, func(ctx context.Context, args dynio.Reader, sinks ...Sink) error {
		p, err := params.Read(args)
		if err != nil {
			return err
		}
		return fn(ctx, p, Callback[R]{sink: sinks[0], codec: result})
	})
}

// AddTwoCallbacks registers a TwoCallbacks method resolving with an R.
func AddTwoCallbacks[P, R any](b *ModuleBuilder, name string, params Params[P], result codec.Codec[R], fn func(ctx context.Context, p P, resolve Resolver[R], reject Rejecter) error) {
	b.AddMethod(name, ShapeTwoCallbacks, func(ctx context.Context, args dynio.Reader, sinks ...Sink) error {
		p, err := params.Read(args)
		if err != nil {
			return err
		}
		return fn(ctx, p, Resolver[R]{sink: sinks[0], codec: result}, Rejecter{sink: sinks[1]})
	})
}

// AddPromise registers a Promise method resolving with an R.
func AddPromise[P, R any](b *ModuleBuilder, name string, params Params[P], result codec.Codec[R], fn func(ctx context.Context, p P, promise Promise[R]) error) {
	b.AddMethod(name, ShapePromise, func(ctx context.Context, args dynio.Reader, sinks ...Sink) error {
		p, err := params.Read(args)
		if err != nil {
			return err
		}
		return fn(ctx, p, Promise[R]{
			Resolver: Resolver[R]{sink: sinks[0], codec: result},
			Rejecter: Rejecter{sink: sinks[1]},
		})
	})
}

// AddSync registers a Sync method returning an R.
func AddSync[P, R any](b *ModuleBuilder, name string, params Params[P], result codec.Codec[R], fn func(ctx context.Context, p P) (R, error)) {
	b.AddSyncMethod(name, func(ctx context.Context, args dynio.Reader, w dynio.Writer) error {
		p, err := params.Read(args)
		if err != nil {
			return err
		}
		r, err := fn(ctx, p)
		if err != nil {
			return err
		}
		return result.Write(w, r)
	})
}
