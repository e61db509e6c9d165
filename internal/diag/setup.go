package diag

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LogOptions configures NewLogging.
type LogOptions struct {
	Level      slog.Level
	BufferSize int
	// File, when set, receives JSON records through a RotatingFileWriter.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// Console, when set, receives human-readable records.
	Console io.Writer
}

// Logging bundles a logger with the sinks it writes to.
type Logging struct {
	Logger *slog.Logger
	Ring   *Ring
	file   *RotatingFileWriter
}

// NewLogging builds the logger used by the host: every record at or above
// the configured level is kept in an in-memory ring, and tee'd to the
// optional JSON file and console sinks.
func NewLogging(opts LogOptions) (*Logging, error) {
	var sinks []slog.Handler
	l := &Logging{Ring: NewRing(opts.BufferSize)}
	if opts.File != "" {
		f, err := NewRotatingFileWriter(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, err
		}
		l.file = f
		sinks = append(sinks, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	}
	if opts.Console != nil {
		sinks = append(sinks, slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: opts.Level}))
	}
	var next slog.Handler
	switch len(sinks) {
	case 0:
	case 1:
		next = sinks[0]
	default:
		next = multiHandler(sinks)
	}
	l.Logger = slog.New(NewRingHandler(l.Ring, opts.Level, next))
	return l, nil
}

// Close releases the file sink, if any.
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a level.
func ParseLevel(s string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range m {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
