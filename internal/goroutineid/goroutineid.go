// Package goroutineid identifies the calling goroutine, so that code
// owning an event loop can detect re-entrant calls from its own goroutine.
package goroutineid

import (
	"bytes"
	"runtime"
	"sync"
)

var stackBufs = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

// Get returns the current goroutine's ID, or 0 if it cannot be determined.
func Get() int64 {
	bp := stackBufs.Get().(*[]byte)
	defer stackBufs.Put(bp)
	// only the header line is needed, so a short buffer suffices
	n := runtime.Stack(*bp, false)
	return parse((*bp)[:n])
}

var header = []byte("goroutine ")

// parse reads the ID from a stack trace starting "goroutine N [...". It
// does not allocate.
func parse(stack []byte) int64 {
	if !bytes.HasPrefix(stack, header) {
		return 0
	}
	var id int64
	digits := 0
	for _, b := range stack[len(header):] {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + int64(b-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	return id
}
