// Package connection defines the contract every dbwire backend implements
// and the backend-agnostic machinery built on top of it.
//
// # The Connection contract
//
// A [Connection] is one live session to a database server. Backends
// (pkg/rpcdb, pkg/postgres, pkg/redisdb) each supply one implementation plus
// an options type whose ParseOptions parses the backend's connection string.
// The contract covers lifecycle (Close, Ping), transaction control (Begin),
// the pipelining hooks (Flush, ShouldFlush), the statement-cache hooks, and
// the cancellation flag.
//
// Backends embed [Base], which stores the cancellation flag, hands out the
// [CancellationGuard], and supplies the no-cache defaults for backends
// without a statement cache.
//
// # Cancellation safety
//
// A context cancellation can abandon an operation after its request bytes
// hit the wire but before the response was read. The connection is then
// mid-frame: reusing it would interleave a new request into a half-finished
// exchange. The guard protocol detects this. Every round-trip acquires a
// guard, and only an explicit Forget - called once the response is fully
// consumed - prevents the release from marking the connection contaminated:
//
//	g := conn.CancellationGuard()
//	defer g.Release()
//	// write request, read response
//	g.Forget()
//
// [Guarded] packages the pattern so the release runs on every exit path.
// A contaminated connection reports HasCancellation() == true and must be
// closed, never reused; pkg/pool and the database/sql bridge both honor
// this at their checkout boundaries.
//
// # Transactions
//
// [Connection.Begin] opens a transaction, or a nested savepoint when one is
// already open. [Transact] wraps the begin/commit/rollback dance around a
// function and guarantees that after it returns, no transaction it opened
// is still open. What happens to a transaction abandoned without Commit or
// Rollback is backend-defined and documented per backend.
package connection
