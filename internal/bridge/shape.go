// Package bridge binds native Go handlers to the calling conventions the
// scripting engine uses to invoke them.
//
// Modules are described once, through a ModuleBuilder, and collected in a
// Registry. NewHost initialises every registered module (constants, event
// and function handles, initializers) and then dispatches inbound call
// frames to the registered handlers. Results and outbound engine calls leave
// through an Outbound, in the order they are produced.
package bridge

import "strconv"

// ReturnShape is the calling convention a method uses to deliver its result.
type ReturnShape uint8

const (
	// ShapeVoid methods return nothing. Handler errors go to the reporter.
	ShapeVoid ReturnShape = iota
	// ShapeCallback methods receive one continuation, invoked at most once.
	ShapeCallback
	// ShapeTwoCallbacks methods receive a resolve and a reject continuation;
	// at most one of them is invoked, at most once.
	ShapeTwoCallbacks
	// ShapePromise methods share the TwoCallbacks wire contract but see a
	// single Promise object on the native side.
	ShapePromise
	// ShapeSync methods return their result directly to the caller.
	ShapeSync
)

func (s ReturnShape) String() string {
	switch s {
	case ShapeVoid:
		return "void"
	case ShapeCallback:
		return "callback"
	case ShapeTwoCallbacks:
		return "twoCallbacks"
	case ShapePromise:
		return "promise"
	case ShapeSync:
		return "sync"
	default:
		return "ReturnShape(" + strconv.Itoa(int(s)) + ")"
	}
}

// CallbackCount is the number of trailing channel ids an inbound call of
// this shape carries.
func (s ReturnShape) CallbackCount() int {
	switch s {
	case ShapeCallback:
		return 1
	case ShapeTwoCallbacks, ShapePromise:
		return 2
	default:
		return 0
	}
}

// IsAsync reports whether s is dispatched through Host.Invoke.
func (s ReturnShape) IsAsync() bool { return s != ShapeSync }
