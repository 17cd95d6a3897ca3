// Package dbwire is a connection toolkit for request/response database
// protocols: one session contract, several backends, and the rules that
// make abandoning an in-flight operation safe.
//
// # Connections
//
// Every backend hands out a [connection.Connection]: a single live
// session owned by at most one operation at a time. [Connect] picks the
// backend from the URL scheme - ws/wss/http/https for the RPC wire
// protocol ([github.com/dbwire/dbwire.go/pkg/rpcdb]), postgres and
// postgresql for PostgreSQL over pgx
// ([github.com/dbwire/dbwire.go/pkg/postgres]), redis and rediss for
// Redis ([github.com/dbwire/dbwire.go/pkg/redisdb]).
//
// Opening many connections to one server goes through [ParseOptions]
// once; the options value is immutable and safe to share.
//
// # Transactions
//
// [connection.Transact] wraps begin/commit/rollback around a function,
// returning its value on commit and rolling back on error or panic.
// Backends map the contract onto their native transactions, savepoints
// included where the server has them.
//
// # Cancellation
//
// Abandoning an operation mid-flight - a context expiring after the
// request hit the wire - leaves a session unusable but never unsafe: the
// connection records the abandonment and reports it from
// HasCancellation. Pools ([github.com/dbwire/dbwire.go/pkg/pool], or
// database/sql through [github.com/dbwire/dbwire.go/sql]) check the
// flag at the boundary and replace the session instead of reusing it. A
// completed exchange, even one carrying a server error, leaves the
// session clean.
//
// # Tooling
//
// The contrib directory holds diagnostic tooling outside the
// compatibility guarantee of the library packages.
package dbwire
