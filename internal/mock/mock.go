// Package mock provides scriptable connection.Connection and
// connection.Tx implementations for tests in this module.
package mock

import (
	"context"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Connection implements connection.Connection with function fields for
// the operations tests script. The zero value is a healthy connection
// whose every operation succeeds and whose Begin hands out a fresh *Tx.
// Close is idempotent and makes later operations return
// connection.ErrClosed, the same lifecycle the real backends follow.
//
// Call counters are plain ints: the mock is for single-goroutine tests.
type Connection struct {
	connection.Base

	BeginFn func(ctx context.Context) (connection.Tx, error)
	PingFn  func(ctx context.Context) error
	CloseFn func(ctx context.Context) error
	FlushFn func(ctx context.Context) error

	// Pending is the number of buffered commands ShouldFlush reports on.
	// A successful default Flush resets it to zero.
	Pending int

	Begins  int
	Pings   int
	Closes  int
	Flushes int

	closed bool
}

var _ connection.Connection = (*Connection)(nil)

func (c *Connection) Begin(ctx context.Context) (connection.Tx, error) {
	if c.closed {
		return nil, connection.ErrClosed
	}
	c.Begins++
	if c.BeginFn != nil {
		return c.BeginFn(ctx)
	}
	return &Tx{}, nil
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.closed {
		return connection.ErrClosed
	}
	c.Pings++
	if c.PingFn != nil {
		return c.PingFn(ctx)
	}
	return nil
}

func (c *Connection) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.Closes++
	if c.CloseFn != nil {
		return c.CloseFn(ctx)
	}
	return nil
}

func (c *Connection) Flush(ctx context.Context) error {
	if c.closed {
		return connection.ErrClosed
	}
	c.Flushes++
	if c.FlushFn != nil {
		return c.FlushFn(ctx)
	}
	c.Pending = 0
	return nil
}

func (c *Connection) ShouldFlush() bool {
	return c.Pending > 0
}

// Tx implements connection.Tx. CommitErr and RollbackErr, when set, are
// returned by the first call to the corresponding method. Either call
// makes the Tx terminal; completing it again returns
// connection.ErrTxDone.
type Tx struct {
	CommitErr   error
	RollbackErr error

	Commits   int
	Rollbacks int

	done bool
}

var _ connection.Tx = (*Tx)(nil)

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true
	t.Commits++
	return t.CommitErr
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true
	t.Rollbacks++
	return t.RollbackErr
}

// Done reports whether the transaction has been completed.
func (t *Tx) Done() bool {
	return t.done
}
