// Package sink delivers submitted payloads to the external agent.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domtarget/internal/config"
	"github.com/hazyhaar/domtarget/internal/store"
	"github.com/hazyhaar/domtarget/payload"
)

// Sink is an output backend (stdout, webhook, archive, in-process callback).
type Sink interface {
	Send(ctx context.Context, p payload.Payload) error
	Close() error
}

// FromConfig builds a Router over the configured sinks.
func FromConfig(cfgs []config.SinkConfig, logger *slog.Logger) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sinks := make([]Sink, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Type {
		case "stdout":
			sinks = append(sinks, NewStdout(nil))
		case "webhook":
			sinks = append(sinks, NewWebhook(c.URL, WithWebhookLogger(logger)))
		case "sqlite":
			st, err := store.Open(c.Path)
			if err != nil {
				NewRouter(logger, sinks...).Close()
				return nil, fmt.Errorf("sink: %w", err)
			}
			sinks = append(sinks, NewArchive(st))
		default:
			NewRouter(logger, sinks...).Close()
			return nil, fmt.Errorf("sink: unknown type %q", c.Type)
		}
	}
	return NewRouter(logger, sinks...), nil
}
