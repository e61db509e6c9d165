package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("transport: queue closed")

// QueueOptions configures a Queue.
type QueueOptions struct {
	// Deliver receives each flushed batch, in order. Required.
	Deliver func(Batch) error
	// Scheduler, when set, is called once per run of enqueues to arrange a
	// later Flush, typically on the engine's event loop. Without a
	// Scheduler the owner calls Flush.
	Scheduler func(flush func())
	// Codec, when set, round trips every batch through its wire encoding
	// before delivery.
	Codec  Codec
	Logger *slog.Logger
}

// Stats counts queue traffic.
type Stats struct {
	Frames  uint64
	Batches uint64
	Bytes   uint64
}

// Queue is a FIFO of outbound frames implementing bridge.Outbound. Frames
// enqueued from any goroutine are delivered in enqueue order, coalesced
// into batches.
type Queue struct {
	opts      QueueOptions
	logger    *slog.Logger
	mu        sync.Mutex
	frames    Batch
	scheduled bool
	closed    bool
	// flushMu keeps batches from overtaking one another.
	flushMu sync.Mutex
	frameN  atomic.Uint64
	batchN  atomic.Uint64
	byteN   atomic.Uint64
}

var _ bridge.Outbound = (*Queue)(nil)

// NewQueue returns an empty queue.
func NewQueue(opts QueueOptions) (*Queue, error) {
	if opts.Deliver == nil {
		return nil, errors.New("transport: queue requires a Deliver func")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{opts: opts, logger: logger}, nil
}

// Enqueue appends f, scheduling a flush if none is pending.
func (q *Queue) Enqueue(f Frame) error {
	if f.Kind() == "" {
		return errors.New("transport: empty frame")
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.frames = append(q.frames, f)
	schedule := q.opts.Scheduler != nil && !q.scheduled
	if schedule {
		q.scheduled = true
	}
	q.mu.Unlock()

	if schedule {
		q.opts.Scheduler(q.flushScheduled)
	}
	return nil
}

func (q *Queue) flushScheduled() {
	if err := q.Flush(); err != nil {
		q.logger.Error("transport flush failed", "error", err)
	}
}

// SendResult enqueues a result frame.
func (q *Queue) SendResult(f bridge.ResultFrame) error { return q.Enqueue(ResultOf(f)) }

// CallEngine enqueues an engine call.
func (q *Queue) CallEngine(c bridge.EngineCall) error { return q.Enqueue(EngineCallOf(c)) }

// Len returns the number of frames awaiting a flush.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Flush delivers everything enqueued so far as one batch. A failed wire
// round trip drops the batch.
func (q *Queue) Flush() error {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	q.mu.Lock()
	batch := q.frames
	q.frames = nil
	q.scheduled = false
	q.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	if c := q.opts.Codec; c != nil {
		data, err := c.Encode(batch)
		if err != nil {
			return fmt.Errorf("transport: %s encode: %w", c.Name(), err)
		}
		if batch, err = c.Decode(data); err != nil {
			return fmt.Errorf("transport: %s decode: %w", c.Name(), err)
		}
		q.byteN.Add(uint64(len(data)))
		q.logger.Debug("transport batch encoded", "codec", c.Name(), "frames", len(batch), "bytes", len(data))
	}
	q.frameN.Add(uint64(len(batch)))
	q.batchN.Add(1)
	return q.opts.Deliver(batch)
}

// Close flushes the queue and rejects further frames.
func (q *Queue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.Flush()
}

// Stats returns the traffic delivered so far.
func (q *Queue) Stats() Stats {
	return Stats{Frames: q.frameN.Load(), Batches: q.batchN.Load(), Bytes: q.byteN.Load()}
}
