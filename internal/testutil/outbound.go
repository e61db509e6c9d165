package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/diag"
)

// Outbound is a bridge.Outbound recording every frame in order.
type Outbound struct {
	mu      sync.Mutex
	results []bridge.ResultFrame
	calls   []bridge.EngineCall
}

var _ bridge.Outbound = (*Outbound)(nil)

func (o *Outbound) SendResult(f bridge.ResultFrame) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, f)
	return nil
}

func (o *Outbound) CallEngine(c bridge.EngineCall) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, c)
	return nil
}

// Results returns a copy of the result frames so far.
func (o *Outbound) Results() []bridge.ResultFrame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bridge.ResultFrame(nil), o.results...)
}

// Calls returns a copy of the engine calls so far.
func (o *Outbound) Calls() []bridge.EngineCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bridge.EngineCall(nil), o.calls...)
}

// Result returns the first frame completing channel id.
func (o *Outbound) Result(id int64) (bridge.ResultFrame, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range o.results {
		if f.ChannelID == id {
			return f, true
		}
	}
	return bridge.ResultFrame{}, false
}

// WaitResult waits up to DefaultTimeout for a frame completing any of ids,
// which are typically the resolve and reject channels of one call.
func (o *Outbound) WaitResult(t testing.TB, ids ...int64) bridge.ResultFrame {
	t.Helper()
	var found bridge.ResultFrame
	err := Poll(context.Background(), func() bool {
		for _, id := range ids {
			if f, ok := o.Result(id); ok {
				found = f
				return true
			}
		}
		return false
	}, DefaultTimeout, DefaultInterval)
	require.NoError(t, err, "no result for channels %v", ids)
	return found
}

// WaitCalls waits up to DefaultTimeout for at least n engine calls.
func (o *Outbound) WaitCalls(t testing.TB, n int) []bridge.EngineCall {
	t.Helper()
	calls, err := WaitForState(context.Background(), o.Calls,
		func(c []bridge.EngineCall) bool { return len(c) >= n },
		DefaultTimeout, DefaultInterval)
	require.NoError(t, err, "want %d engine calls", n)
	return calls
}

// NewHost initializes a host over reg that records into a fresh Outbound
// and reports into a fresh Collector.
func NewHost(t testing.TB, reg *bridge.Registry, opts ...bridge.Option) (*bridge.Host, *Outbound, *diag.Collector) {
	t.Helper()
	out := &Outbound{}
	col := &diag.Collector{}
	h, err := bridge.NewHost(context.Background(), reg, out, append([]bridge.Option{bridge.WithReporter(col)}, opts...)...)
	require.NoError(t, err)
	return h, out, col
}
