package sink

import (
	"context"

	"github.com/hazyhaar/domtarget/internal/store"
	"github.com/hazyhaar/domtarget/payload"
)

// Archive records payloads in a SQLite store. It owns the store.
type Archive struct {
	st *store.Store
}

// NewArchive wraps st.
func NewArchive(st *store.Store) *Archive { return &Archive{st: st} }

// Store exposes the underlying archive for reads.
func (a *Archive) Store() *store.Store { return a.st }

func (a *Archive) Send(ctx context.Context, p payload.Payload) error {
	return a.st.Save(ctx, p)
}

func (a *Archive) Close() error { return a.st.Close() }
