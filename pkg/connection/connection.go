package connection

import "context"

// Connection is a single live session to a database server, exclusively
// owned at any instant by at most one operation. Implementations are not
// safe for concurrent use; concurrency across different connections is
// unconstrained and expected.
type Connection interface {
	// Close consumes the connection, performing a graceful shutdown
	// handshake when the backend supports one. A failure is advisory: the
	// connection is gone regardless. Operations after Close return
	// ErrClosed.
	Close(ctx context.Context) error

	// Ping issues the cheapest round-trip the backend supports. Success
	// means the connection was usable at the time of the call, nothing
	// more.
	Ping(ctx context.Context) error

	// Begin starts a new transaction, or a nested savepoint when one is
	// already open on this connection. It returns a *ProtocolError when
	// the server rejects the request.
	Begin(ctx context.Context) (Tx, error)

	// CachedStatementsSize reports how many prepared statements the
	// connection currently holds. Backends without a statement cache
	// report 0.
	CachedStatementsSize() int

	// ClearCachedStatements drops every cached statement, deallocating
	// them on the server when needed. Afterwards CachedStatementsSize
	// reports 0.
	ClearCachedStatements(ctx context.Context) error

	// Flush forces any queued writes onto the wire.
	Flush(ctx context.Context) error

	// ShouldFlush reports whether queued writes are pending.
	ShouldFlush() bool

	// HasCancellation reports whether an operation on this connection was
	// abandoned mid-flight. A true result means the protocol stream may be
	// out of sync: close the connection, do not reuse it.
	HasCancellation() bool

	// SetHasCancellation overwrites the cancellation flag. CancellationGuard
	// is the only sanctioned way to reach true in normal operation; setting
	// it directly is reserved for backend-internal detection of other
	// inconsistency.
	SetHasCancellation(v bool)

	// CancellationGuard begins a guarded round-trip: it clears the
	// cancellation flag and returns the token whose Release re-sets the
	// flag unless Forget was called. It panics if a guard is already held,
	// since two concurrent round-trips on one connection would interleave
	// frames.
	CancellationGuard() *CancellationGuard
}

// ConnectOptions is an immutable set of parsed connection parameters. One
// value may be reused to open any number of connections. Each backend
// supplies a concrete options struct plus a ParseOptions function turning
// the backend's connection-string dialect into it; parse failures surface
// as *ParseError.
type ConnectOptions interface {
	// Connect establishes a new session. On failure no partially
	// constructed Connection is observable; the error is a *ConnectError
	// wrapping the transport cause.
	Connect(ctx context.Context) (Connection, error)
}
