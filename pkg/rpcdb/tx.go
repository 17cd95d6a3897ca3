package rpcdb

import (
	"context"
	"fmt"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Tx is one open transaction level on a Conn. The outermost level maps to
// the protocol's begin/commit/rollback; nested levels map to savepoints.
type Tx struct {
	conn *Conn

	// name is the savepoint backing a nested level; empty for the
	// outermost transaction.
	name string
	done bool
}

var _ connection.Tx = (*Tx)(nil)

// Begin opens a transaction on the server, or a savepoint when one is
// already open. Servers reject begin over a stateless transport with a
// ProtocolError.
func (c *Conn) Begin(ctx context.Context) (connection.Tx, error) {
	if c.depth == 0 {
		if _, err := c.do(ctx, methodBegin); err != nil {
			return nil, err
		}
		c.depth++
		return &Tx{conn: c}, nil
	}

	name := fmt.Sprintf("sp_%d", c.depth)
	if _, err := c.do(ctx, methodSavepoint, name); err != nil {
		return nil, err
	}
	c.depth++
	return &Tx{conn: c, name: name}, nil
}

// Commit makes the level's changes part of the enclosing state: the
// outermost commit applies the transaction to the database, a nested
// commit releases its savepoint into the parent. Commit is terminal even
// when it fails; after a failure the server's transaction is gone or the
// connection is no longer trustworthy.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true
	t.conn.depth--

	var err error
	if t.name == "" {
		_, err = t.conn.do(ctx, methodCommit)
	} else {
		_, err = t.conn.do(ctx, methodRelease, t.name)
	}
	return err
}

// Rollback discards the level's changes: the outermost rollback drops
// the whole transaction, a nested rollback rewinds to its savepoint and
// removes it. Terminal like Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true
	t.conn.depth--

	var err error
	if t.name == "" {
		_, err = t.conn.do(ctx, methodRollback)
	} else {
		_, err = t.conn.do(ctx, methodRollbackTo, t.name)
	}
	return err
}
