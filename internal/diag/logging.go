package diag

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultRingSize is the number of entries kept when no size is given.
const DefaultRingSize = 1000

// Entry is a single captured log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// Ring is a bounded in-memory log buffer. The oldest entries are dropped
// once it is full.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// NewRing returns a ring holding at most size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{entries: make([]Entry, 0, size), maxSize: size}
}

func (r *Ring) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.maxSize {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, e)
}

// Entries returns a copy of every buffered entry, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Recent returns up to n of the newest entries, oldest first. n <= 0
// returns everything.
func (r *Ring) Recent(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	return slices.Clone(r.entries[len(r.entries)-n:])
}

// Search returns entries whose message, attribute keys or attribute values
// contain query, case-insensitively.
func (r *Ring) Search(query string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	query = strings.ToLower(query)
	var matches []Entry
	for _, e := range r.entries {
		if strings.Contains(strings.ToLower(e.Message), query) {
			matches = append(matches, e)
			continue
		}
		for k, v := range e.Attrs {
			if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
				matches = append(matches, e)
				break
			}
		}
	}
	return matches
}

// Clear drops every buffered entry.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

// RingHandler is a slog.Handler that records into a Ring and optionally
// forwards each record to another handler, such as a JSON file sink.
type RingHandler struct {
	ring   *Ring
	level  slog.Leveler
	next   slog.Handler
	attrs  []slog.Attr
	prefix string
}

// NewRingHandler returns a handler recording records at or above level.
// next may be nil.
func NewRingHandler(ring *Ring, level slog.Leveler, next slog.Handler) *RingHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &RingHandler{ring: ring, level: level, next: next}
}

func (h *RingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level.Level() {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *RingHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= h.level.Level() {
		attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
		for _, a := range h.attrs {
			attrs[a.Key] = a.Value.String()
		}
		record.Attrs(func(a slog.Attr) bool {
			attrs[h.prefix+a.Key] = a.Value.String()
			return true
		})
		h.ring.add(Entry{Time: record.Time, Level: record.Level, Message: record.Message, Attrs: attrs})
	}
	if h.next != nil && h.next.Enabled(ctx, record.Level) {
		return h.next.Handle(ctx, record)
	}
	return nil
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	if h.next != nil {
		clone.next = h.next.WithAttrs(attrs)
	}
	return &clone
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	if h.next != nil {
		clone.next = h.next.WithGroup(name)
	}
	return &clone
}
