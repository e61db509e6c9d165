package diag

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingDropsOldest(t *testing.T) {
	t.Parallel()

	ring := NewRing(3)
	logger := slog.New(NewRingHandler(ring, slog.LevelDebug, nil))
	for i := range 5 {
		logger.Info("msg", "i", i)
	}
	entries := ring.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].Attrs["i"])
	assert.Equal(t, "4", entries[2].Attrs["i"])

	recent := ring.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].Attrs["i"])

	ring.Clear()
	assert.Empty(t, ring.Entries())
}

func TestRingHandlerLevelAndAttrs(t *testing.T) {
	t.Parallel()

	ring := NewRing(10)
	logger := slog.New(NewRingHandler(ring, slog.LevelInfo, nil)).
		With("module", "calc").
		WithGroup("call")
	logger.Debug("hidden")
	logger.Info("dispatch", "method", "add")

	entries := ring.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "dispatch", entries[0].Message)
	assert.Equal(t, map[string]string{"module": "calc", "call.method": "add"}, entries[0].Attrs)
}

func TestRingSearch(t *testing.T) {
	t.Parallel()

	ring := NewRing(10)
	logger := slog.New(NewRingHandler(ring, slog.LevelInfo, nil))
	logger.Info("Promise rejected", "module", "calc")
	logger.Info("event emitted", "name", "tick")
	logger.Info("other")

	assert.Len(t, ring.Search("REJECTED"), 1)
	assert.Len(t, ring.Search("tick"), 1)
	assert.Len(t, ring.Search("module"), 1)
	assert.Empty(t, ring.Search("absent"))
}

func TestNewLoggingTeesToSinks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "bridge.log")
	var console bytes.Buffer
	l, err := NewLogging(LogOptions{Level: slog.LevelDebug, File: path, MaxSizeMB: 1, MaxFiles: 1, Console: &console})
	require.NoError(t, err)

	l.Logger.Debug("frame", "channel", 7)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"channel":7`)
	assert.Contains(t, console.String(), "channel=7")
	assert.Len(t, l.Ring.Entries(), 1)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, " warn ": slog.LevelWarn, "error": slog.LevelError} {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseLevel("loud")
	assert.False(t, ok)
}

func TestLogReporterLevels(t *testing.T) {
	t.Parallel()

	ring := NewRing(10)
	logger := slog.New(NewRingHandler(ring, slog.LevelDebug, nil))
	boom := errors.New("boom")

	rep := &LogReporter{Logger: logger}
	rep.Report(context.Background(), Report{Kind: KindDoubleCompletion, Module: "calc", Method: "divide", Err: boom})
	rep.Settings.FailOnDoubleCompletion = true
	rep.Report(context.Background(), Report{Kind: KindDoubleCompletion, Err: boom})
	rep.Report(context.Background(), Report{Kind: KindProtocol})

	entries := ring.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, slog.LevelWarn, entries[0].Level)
	assert.Equal(t, "double-completion", entries[0].Attrs["kind"])
	assert.Equal(t, "divide", entries[0].Attrs["method"])
	assert.Equal(t, slog.LevelError, entries[1].Level)
	assert.Equal(t, slog.LevelError, entries[2].Level)
	assert.NotContains(t, entries[2].Attrs, "error")
}

func TestCollectorAndTee(t *testing.T) {
	t.Parallel()

	var a, b Collector
	target := errors.New("target")
	rep := Tee(&a, nil, &b)
	rep.Report(context.Background(), Report{Kind: KindHandler, Err: target})
	rep.Report(context.Background(), Report{Kind: KindOutbound})

	assert.Equal(t, 1, a.Count(KindHandler))
	assert.Len(t, b.Reports(), 2)
	r, ok := b.Find(target)
	require.True(t, ok)
	assert.Equal(t, KindHandler, r.Kind)
	assert.True(t, strings.HasPrefix(KindOutbound.String(), "out"))

	Discard.Report(context.Background(), Report{})
}

func TestDeveloperSettingsFrameLogging(t *testing.T) {
	t.Parallel()

	assert.False(t, DeveloperSettings{LogFrames: true}.FrameLogging())
	assert.True(t, DeveloperSettings{Enabled: true, LogFrames: true}.FrameLogging())
}
