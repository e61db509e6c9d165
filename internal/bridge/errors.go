package bridge

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
)

var (
	// ErrUnknownModule is a call naming no registered module.
	ErrUnknownModule = errors.New("bridge: unknown module")
	// ErrUnknownMethod is a call naming no method of its module.
	ErrUnknownMethod = errors.New("bridge: unknown method")
	// ErrWrongShape is a method invoked through the path of another shape,
	// such as a Sync method sent through Invoke.
	ErrWrongShape = errors.New("bridge: wrong return shape")
	// ErrMalformedCall is a call frame whose arguments are not an Array, or
	// whose trailing channel ids are missing or not integral.
	ErrMalformedCall = errors.New("bridge: malformed call")
	// ErrArgumentCount is an argument list of the wrong length.
	ErrArgumentCount = errors.New("bridge: wrong number of arguments")
	// ErrAlreadyCompleted is returned by a second completion of a channel.
	// The second result is discarded.
	ErrAlreadyCompleted = errors.New("bridge: channel already completed")
	// ErrNotInitialized is returned by event and function handles used
	// before their module finished initialising.
	ErrNotInitialized = errors.New("bridge: module not initialized")
	// ErrDuplicate is a module, method or handle registered twice under one
	// name.
	ErrDuplicate = errors.New("bridge: duplicate registration")
)

// ProtocolError is a call that could not be dispatched. It wraps one of
// ErrUnknownModule, ErrUnknownMethod, ErrWrongShape or ErrMalformedCall.
type ProtocolError struct {
	Module string
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Module == "":
		return e.Err.Error()
	case e.Method == "":
		return fmt.Sprintf("%v: %s", e.Err, e.Module)
	default:
		return fmt.Sprintf("%v: %s.%s", e.Err, e.Module, e.Method)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ArgumentError is a marshalling failure attributable to one argument
// position. For a wrong argument count Index is the first missing or
// surplus position.
type ArgumentError struct {
	Module string
	Method string
	Index  int
	Err    error
}

func (e *ArgumentError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("bridge: argument %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("bridge: %s.%s: argument %d: %v", e.Module, e.Method, e.Index, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ErrorPayload is the structured value carried by a rejection: an Object
// with a message property, followed by any extra properties.
type ErrorPayload struct {
	Message string
	Extra   []dynvalue.Property
}

// Value renders p. An extra property named message is ignored.
func (p ErrorPayload) Value() dynvalue.Value {
	b := dynvalue.NewObjectBuilder(len(p.Extra) + 1)
	b.Set("message", dynvalue.String(p.Message))
	for _, prop := range p.Extra {
		if prop.Key == "message" {
			continue
		}
		b.Set(prop.Key, prop.Value)
	}
	return b.Seal()
}

// ParseErrorPayload reads a rejection value. Anything other than an Object
// uses its string form as the message.
func ParseErrorPayload(v dynvalue.Value) ErrorPayload {
	obj, ok := v.TryObject()
	if !ok {
		return ErrorPayload{Message: v.AsJSString()}
	}
	var p ErrorPayload
	obj.Range(func(key string, value dynvalue.Value) bool {
		if key == "message" {
			p.Message = value.AsJSString()
		} else {
			p.Extra = append(p.Extra, dynvalue.Prop(key, value))
		}
		return true
	})
	return p
}

// JSError is an error whose payload reaches the engine unchanged when it
// rejects a call.
type JSError struct {
	Payload ErrorPayload
}

// NewJSError returns a JSError with the given message and extra properties.
func NewJSError(message string, extra ...dynvalue.Property) *JSError {
	return &JSError{Payload: ErrorPayload{Message: message, Extra: extra}}
}

func (e *JSError) Error() string { return e.Payload.Message }

// ErrorPayloadFrom converts err to a rejection payload. A *JSError anywhere
// in the chain contributes its payload; any other error contributes its
// message.
func ErrorPayloadFrom(err error) ErrorPayload {
	if err == nil {
		return ErrorPayload{}
	}
	var jsErr *JSError
	if errors.As(err, &jsErr) {
		return jsErr.Payload
	}
	return ErrorPayload{Message: err.Error()}
}
