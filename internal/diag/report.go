// Package diag is the host error channel and developer-support surface of the
// bridge: exception reporting, developer settings, and the structured logging
// sinks shared by every component.
package diag

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Kind classifies a report.
type Kind uint8

const (
	// KindProtocol is an unknown module or method, a malformed call frame,
	// or a method invoked through the wrong path.
	KindProtocol Kind = iota + 1
	// KindHandler is an error or panic escaping a native handler that has no
	// result channel to carry it (Void and Callback methods).
	KindHandler
	// KindDoubleCompletion is a second resolve/reject of one result channel.
	KindDoubleCompletion
	// KindOutbound is a failure to hand a frame to the transport.
	KindOutbound
	// KindScript is an exception thrown by an engine callback, listener or
	// callable module while the bridge delivered to it.
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindHandler:
		return "handler"
	case KindDoubleCompletion:
		return "double-completion"
	case KindOutbound:
		return "outbound"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// Report is a single diagnosable event on the host error channel.
type Report struct {
	Kind   Kind
	Module string
	Method string
	Err    error
}

// Reporter receives reports. Implementations must be safe for concurrent
// use; reports may arrive from any goroutine.
type Reporter interface {
	Report(ctx context.Context, r Report)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r Report)

func (f ReporterFunc) Report(ctx context.Context, r Report) { f(ctx, r) }

// Discard drops every report.
var Discard Reporter = ReporterFunc(func(context.Context, Report) {})

// LogReporter writes reports to a logger. Double completions log at warn
// level unless Settings.FailOnDoubleCompletion escalates them to error.
type LogReporter struct {
	Logger   *slog.Logger
	Settings DeveloperSettings
}

func (l *LogReporter) Report(ctx context.Context, r Report) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelError
	if r.Kind == KindDoubleCompletion && !l.Settings.FailOnDoubleCompletion {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("kind", r.Kind.String())}
	if r.Module != "" {
		attrs = append(attrs, slog.String("module", r.Module))
	}
	if r.Method != "" {
		attrs = append(attrs, slog.String("method", r.Method))
	}
	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}
	logger.LogAttrs(ctx, level, "bridge report", attrs...)
}

// Collector records reports in memory.
type Collector struct {
	mu      sync.Mutex
	reports []Report
}

func (c *Collector) Report(_ context.Context, r Report) {
	c.mu.Lock()
	c.reports = append(c.reports, r)
	c.mu.Unlock()
}

// Reports returns a copy of everything recorded so far.
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Count returns how many reports of kind k were recorded.
func (c *Collector) Count(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.reports {
		if r.Kind == k {
			n++
		}
	}
	return n
}

// Find returns the first recorded report whose error matches target, as by
// errors.Is.
func (c *Collector) Find(target error) (Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.reports {
		if errors.Is(r.Err, target) {
			return r, true
		}
	}
	return Report{}, false
}

// Tee fans each report out to all reporters, in order.
func Tee(reporters ...Reporter) Reporter {
	return ReporterFunc(func(ctx context.Context, r Report) {
		for _, rep := range reporters {
			if rep != nil {
				rep.Report(ctx, r)
			}
		}
	})
}
