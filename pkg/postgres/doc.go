// Package postgres implements the connection contract over PostgreSQL
// using pgx.
//
// Transactions map directly onto the server's: the outermost Begin issues
// BEGIN, nested Begins become savepoints through pgx's own nesting
// support. The statement cache holds server-side prepared statements
// keyed by query text, and Queue/Flush ride on pgx's batch pipeline.
//
// Server-side rejections (anything with a SQLSTATE) surface as
// *connection.ProtocolError and leave the connection clean; an exchange
// that breaks mid-flight raises the contamination flag instead.
package postgres
