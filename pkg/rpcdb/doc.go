// Package rpcdb implements the connection contract for servers speaking
// the toolkit's CBOR-RPC wire protocol.
//
// Requests and responses are CBOR frames correlated by a random id.
// Two transports carry them:
//
//   - WebSocket (ws, wss): a long-lived session with a background read
//     loop. The full surface is available, including transactions,
//     savepoints, session variables and server-side prepared statements.
//   - HTTP (http, https): one POST per request to the /rpc endpoint.
//     Every request is its own server session, so servers reject
//     session-bound methods (begin, savepoint, let, prepare, ...) with a
//     ProtocolError; ping and one-shot queries work normally.
//
// The usual entry point is the root dbwire.Connect, or directly:
//
//	opts, err := rpcdb.ParseOptions("ws://localhost:8000")
//	if err != nil { ... }
//	conn, err := opts.Connect(ctx)
//
// Every round-trip runs under a CancellationGuard: a context that fires
// mid-exchange, or any transport failure between write and full read,
// marks the connection as contaminated so a pool will discard it instead
// of handing another caller a connection with an unconsumed response in
// flight. A complete response frame always disarms the guard, even when
// the frame carries a server-side error.
package rpcdb
