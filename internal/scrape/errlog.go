package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// errLogCap bounds the per-task error ring exposed over the API.
const errLogCap = 100

// TaskError is one warn-or-worse log record from a task run.
type TaskError struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// errorRing is the bounded store of a task's recent warnings and errors,
// served over the API without touching log files.
type errorRing struct {
	mu      sync.Mutex
	entries []TaskError
}

func (r *errorRing) add(e TaskError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > errLogCap {
		r.entries = r.entries[len(r.entries)-errLogCap:]
	}
}

// Errors returns a copy of the collected entries.
func (r *errorRing) Errors() []TaskError {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskError, len(r.entries))
	copy(out, r.entries)
	return out
}

// ringHandler tees warn-and-worse records into an errorRing while passing
// everything through to the real handler. Derived handlers (via With) share
// the same ring.
type ringHandler struct {
	ring  *errorRing
	next  slog.Handler
	attrs []slog.Attr
}

func newRingHandler(ring *errorRing, next slog.Handler) *ringHandler {
	return &ringHandler{ring: ring, next: next}
}

func (h *ringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ringHandler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= slog.LevelWarn {
		var b strings.Builder
		b.WriteString(rec.Message)
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		rec.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		h.ring.add(TaskError{Time: rec.Time, Level: rec.Level.String(), Message: b.String()})
	}
	return h.next.Handle(ctx, rec)
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &ringHandler{ring: h.ring, next: h.next.WithAttrs(attrs), attrs: merged}
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	return &ringHandler{ring: h.ring, next: h.next.WithGroup(name), attrs: h.attrs}
}
