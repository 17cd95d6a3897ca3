package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations invoked on a connection after
	// Close, or after the transport dropped underneath it.
	ErrClosed = errors.New("connection closed")

	// ErrTxDone is returned when Commit or Rollback is called on a
	// transaction that has already completed.
	ErrTxDone = errors.New("transaction already completed")
)

// ParseError reports a connection URL that could not be turned into
// usable options. Parsing does no I/O, so a ParseError never leaves a
// half-opened connection behind.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConnectError reports a failed attempt to establish a connection.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProtocolError is an error the database itself reported: a rejected
// statement, a violated constraint, an unknown method. Code carries the
// backend's native error code - a SQLSTATE for postgres, the stringified
// JSON-RPC code for the wire protocol - so callers can branch on it
// without importing the backend's own error type.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Is matches any *ProtocolError, so errors.Is(err, &ProtocolError{})
// asks "did the server reject this" without caring which rejection.
func (e *ProtocolError) Is(target error) bool {
	if target == nil {
		return e == nil
	}

	_, ok := target.(*ProtocolError)
	return ok
}
