package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-nativebridge/internal/bridge"
	"github.com/joeycumines/go-nativebridge/internal/diag"
	"github.com/joeycumines/go-nativebridge/internal/dynvalue"
	"github.com/joeycumines/go-nativebridge/internal/testutil"
)

var epoch = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newClock(t *testing.T) (*Module, *bridge.Host, *testutil.Outbound, *diag.Collector) {
	t.Helper()
	m := New(Options{Now: func() time.Time { return epoch }})
	t.Cleanup(func() { _ = m.Close() })
	reg := bridge.NewRegistry()
	reg.MustRegister(Name, m.Provide)
	h, out, col := testutil.NewHost(t, reg)
	return m, h, out, col
}

func ints(v ...int64) dynvalue.Value {
	items := make([]dynvalue.Value, len(v))
	for i, x := range v {
		items[i] = dynvalue.Int64(x)
	}
	return dynvalue.NewArray(items...)
}

func TestReadyEventAndConstants(t *testing.T) {
	t.Parallel()
	_, h, out, _ := newClock(t)

	c, ok := h.Constants(Name)
	require.True(t, ok)
	assert.Equal(t, `{"startedAt":"2024-05-06T07:08:09Z"}`, c.String())

	calls := out.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, bridge.DefaultEventEmitter, calls[0].Module)
	assert.Equal(t, "emit", calls[0].Method)
	assert.Equal(t, `["clockReady",1714979289000]`, calls[0].Args.String())
}

func TestNow(t *testing.T) {
	t.Parallel()
	_, h, _, _ := newClock(t)
	v, err := h.InvokeSyncByName(context.Background(), Name, "now", dynvalue.NewArray())
	require.NoError(t, err)
	assert.Equal(t, epoch.UnixMilli(), v.AsInt64())
}

func TestSleepResolvesFromGoroutine(t *testing.T) {
	t.Parallel()
	_, h, out, _ := newClock(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "sleep", ints(5, 1, 2)))
	f := out.WaitResult(t, 1, 2)
	assert.Equal(t, int64(1), f.ChannelID)
	assert.GreaterOrEqual(t, f.Args.AsArray().Items()[0].AsInt64(), int64(5))
}

func TestSleepRejectsNegative(t *testing.T) {
	t.Parallel()
	_, h, out, _ := newClock(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "sleep", ints(-1, 1, 2)))
	f := out.WaitResult(t, 1, 2)
	assert.Equal(t, int64(2), f.ChannelID)
	assert.Equal(t, `[{"message":"sleep: negative duration -1ms"}]`, f.Args.String())
}

func TestCloseRejectsPendingSleeps(t *testing.T) {
	t.Parallel()
	m, h, out, _ := newClock(t)
	require.NoError(t, h.InvokeByName(context.Background(), Name, "sleep", ints(60_000, 1, 2)))
	require.NoError(t, m.Close())
	f := out.WaitResult(t, 1, 2)
	assert.Equal(t, `[{"message":"sleep: clock closed"}]`, f.Args.String())

	require.NoError(t, h.InvokeByName(context.Background(), Name, "sleep", ints(1, 3, 4)))
	assert.Equal(t, `[{"message":"clock: closed"}]`, out.WaitResult(t, 3, 4).Args.String())
}

func TestTimerEmitsTicksThenDone(t *testing.T) {
	t.Parallel()
	_, h, out, _ := newClock(t)
	args := dynvalue.NewArray(dynvalue.String("fast"), dynvalue.Int64(1), dynvalue.Int64(3))
	require.NoError(t, h.InvokeByName(context.Background(), Name, "startTimer", args))

	calls := out.WaitCalls(t, 5)
	var got []string
	for _, c := range calls[1:] {
		got = append(got, c.Args.String())
	}
	assert.Equal(t, []string{
		`["clockTick",{"timer":"fast","seq":1,"at":1714979289000}]`,
		`["clockTick",{"timer":"fast","seq":2,"at":1714979289000}]`,
		`["clockTick",{"timer":"fast","seq":3,"at":1714979289000}]`,
		`["clockDone","fast"]`,
	}, got)
}

func TestStopTimer(t *testing.T) {
	t.Parallel()
	_, h, out, col := newClock(t)
	ctx := context.Background()
	args := dynvalue.NewArray(dynvalue.String("slow"), dynvalue.Int64(60_000), dynvalue.Int64(10))
	require.NoError(t, h.InvokeByName(ctx, Name, "startTimer", args))

	// a second timer of the same name is a handler error
	require.NoError(t, h.InvokeByName(ctx, Name, "startTimer", args))
	assert.Equal(t, 1, col.Count(diag.KindHandler))

	v, err := h.InvokeSyncByName(ctx, Name, "activeTimers", dynvalue.NewArray())
	require.NoError(t, err)
	assert.Equal(t, `["slow"]`, v.String())

	v, err = h.InvokeSyncByName(ctx, Name, "stopTimer", dynvalue.NewArray(dynvalue.String("slow")))
	require.NoError(t, err)
	assert.Equal(t, `true`, v.String())

	calls := out.WaitCalls(t, 2)
	assert.Equal(t, `["clockDone","slow"]`, calls[1].Args.String())

	v, err = h.InvokeSyncByName(ctx, Name, "activeTimers", dynvalue.NewArray())
	require.NoError(t, err)
	assert.Equal(t, `[]`, v.String())

	v, err = h.InvokeSyncByName(ctx, Name, "stopTimer", dynvalue.NewArray(dynvalue.String("slow")))
	require.NoError(t, err)
	assert.Equal(t, `false`, v.String())
}

func TestStartTimerValidates(t *testing.T) {
	t.Parallel()
	_, h, _, col := newClock(t)
	args := dynvalue.NewArray(dynvalue.String(""), dynvalue.Int64(1), dynvalue.Int64(1))
	require.NoError(t, h.InvokeByName(context.Background(), Name, "startTimer", args))
	reports := col.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, diag.KindHandler, reports[0].Kind)
	assert.Equal(t, "startTimer", reports[0].Method)
}
