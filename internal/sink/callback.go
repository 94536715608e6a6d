package sink

import (
	"context"

	"github.com/hazyhaar/domtarget/payload"
)

// Func receives payloads in-process.
type Func func(ctx context.Context, p payload.Payload) error

// Callback delivers payloads through a Go function call, for agents embedded
// in the same binary.
type Callback struct {
	fn Func
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn Func) *Callback { return &Callback{fn: fn} }

func (c *Callback) Send(ctx context.Context, p payload.Payload) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, p)
}

func (c *Callback) Close() error { return nil }
