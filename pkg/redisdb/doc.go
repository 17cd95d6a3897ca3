// Package redisdb implements the connection contract over Redis.
//
// Transactions map to MULTI/EXEC: Begin opens a client-side transaction
// pipeline, commands issued while it is open are queued, Commit sends the
// whole batch atomically and Rollback discards it without touching the
// server. Redis has no savepoints, so a nested Begin is rejected. There
// is no statement cache either; the package inherits the zero-value cache
// hooks.
package redisdb
