package connection

// CancellationGuard covers one network round-trip on a connection. It is
// obtained from Connection.CancellationGuard, which clears the cancellation
// flag so every attempt starts from a clean slate. Unless Forget is called
// first, Release sets the flag back to true: the guard assumes the
// round-trip was interrupted and the caller must prove otherwise.
//
// "Interrupted" covers every way an operation can stop between writing the
// request and consuming the whole response: a context cancellation that
// returns early from the read, an error after a partial write, or a panic
// unwinding through the operation. None of these leave a return channel to
// report through, which is why the verdict is recorded on the connection
// for the next observer instead of being an error of the abandoned call.
//
// The guard must be released exactly once per acquisition; Release is
// idempotent so it can be deferred unconditionally.
type CancellationGuard struct {
	base     *Base
	ignore   bool
	released bool
}

// Forget records that the guarded round-trip completed in full, so Release
// will leave the connection clean. Call it only after the entire response
// has been consumed.
func (g *CancellationGuard) Forget() {
	g.ignore = true
}

// Release ends the guard's scope. If Forget was never called, the
// connection is marked contaminated. Calling Release again is a no-op.
func (g *CancellationGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	if !g.ignore {
		g.base.hasCancellation.Store(true)
	}
	g.base.guardHeld.Store(false)
}

// Guarded runs fn inside a guard scope: acquire, run, release. The release
// action runs on every exit path, including a panic out of fn; only a nil
// return from fn counts as proof of completion.
//
// Backends use this around each round-trip. Callers issuing raw round-trips
// themselves should prefer it over manual Forget/Release pairing, so that
// an abandoned future still triggers the release logic.
func Guarded(conn Connection, fn func() error) error {
	g := conn.CancellationGuard()
	defer g.Release()

	if err := fn(); err != nil {
		return err
	}

	g.Forget()
	return nil
}
