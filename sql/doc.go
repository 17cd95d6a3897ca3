// Package sql plugs the wire backend into database/sql.
//
// Importing the package registers the "dbwire" driver, so the standard
// pattern works with a connection URL as the DSN:
//
//	db, err := sql.Open("dbwire", "ws://localhost:8000")
//
// Applications that already hold parsed options can skip the global
// registry with sql.OpenDB(dbsql.NewConnector(opts)).
//
// Statements travel as the protocol's query method. Placeholders are
// $name tokens bound positionally: the i-th argument binds to the i-th
// distinct placeholder in the statement, and named arguments are
// rejected because the wire format carries values by position. A
// connection whose round-trip was abandoned reports itself broken
// through ResetSession/IsValid, which makes database/sql's pool discard
// it instead of reusing the session.
package sql
