package connection

import (
	"context"
	"sync/atomic"
)

// Base supplies the backend-independent pieces of the Connection contract:
// cancellation-flag storage, guard acquisition, and the no-cache defaults.
// Backends embed it and override CachedStatementsSize/ClearCachedStatements
// only when they actually cache statements.
//
// The flag is atomic because the pool observes it from another goroutine
// while deciding whether a checked-in connection is still safe to reuse.
type Base struct {
	hasCancellation atomic.Bool
	guardHeld       atomic.Bool
}

func (b *Base) HasCancellation() bool {
	return b.hasCancellation.Load()
}

func (b *Base) SetHasCancellation(v bool) {
	b.hasCancellation.Store(v)
}

// CancellationGuard clears the flag and returns the guard token for one
// round-trip. Acquiring a second guard while one is live panics: the guard
// is the runtime stand-in for an exclusive borrow of the connection, and a
// second concurrent round-trip is a programming error, not a recoverable
// condition.
func (b *Base) CancellationGuard() *CancellationGuard {
	if !b.guardHeld.CompareAndSwap(false, true) {
		panic("connection: cancellation guard acquired while another is still held")
	}
	b.hasCancellation.Store(false)
	return &CancellationGuard{base: b}
}

// CachedStatementsSize reports 0 for backends without a statement cache.
func (b *Base) CachedStatementsSize() int {
	return 0
}

// ClearCachedStatements is a no-op for backends without a statement cache.
func (b *Base) ClearCachedStatements(ctx context.Context) error {
	return nil
}
