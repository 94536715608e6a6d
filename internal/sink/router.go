package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/domtarget/payload"
)

// Router fans a payload out to every sink. A failing sink does not block
// the others; failures are logged and the first one is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len reports the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Send(ctx context.Context, p payload.Payload) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, p); err != nil {
			r.logger.Warn("sink: send payload failed", "id", p.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Archive returns the first archive sink, or nil.
func (r *Router) Archive() *Archive {
	for _, s := range r.sinks {
		if a, ok := s.(*Archive); ok {
			return a
		}
	}
	return nil
}
