package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// MultiHandler fans out every record to all handlers that accept its level.
// Derived handlers share the mutex so sinks see records one at a time.
type MultiHandler struct {
	mu       *sync.Mutex
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers, mu: &sync.Mutex{}}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h.handlers {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every enabled sink, even after one fails,
// and returns the joined errors.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for _, sink := range h.handlers {
		if sink.Enabled(ctx, r.Level) {
			errs = append(errs, sink.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.derive(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *MultiHandler) derive(f func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(h.handlers))
	for i, s := range h.handlers {
		sinks[i] = f(s)
	}
	return &MultiHandler{mu: h.mu, handlers: sinks}
}
