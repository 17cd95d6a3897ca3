package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Tx is one open transaction level. pgx maps nested levels onto
// savepoints, so committing an inner level releases its savepoint and
// committing the outermost level commits for real.
type Tx struct {
	conn *Conn
	tx   pgx.Tx
	done bool
}

var _ connection.Tx = (*Tx)(nil)

// Begin opens a transaction, or a savepoint when one is already open on
// this connection.
func (c *Conn) Begin(ctx context.Context) (connection.Tx, error) {
	var tx pgx.Tx
	err := c.guarded(ctx, func(ctx context.Context) error {
		if err := c.flushQueue(ctx); err != nil {
			return err
		}

		var err error
		if len(c.txs) == 0 {
			tx, err = c.conn.Begin(ctx)
		} else {
			tx, err = c.txs[len(c.txs)-1].Begin(ctx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	c.txs = append(c.txs, tx)
	return &Tx{conn: c, tx: tx}, nil
}

// Commit applies this level. Terminal even when it fails: after a failed
// commit the server has ended the transaction its own way and the handle
// is no longer worth holding.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true
	t.conn.pop()

	return t.conn.guarded(ctx, t.tx.Commit)
}

// Rollback discards this level. Terminal like Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true
	t.conn.pop()

	return t.conn.guarded(ctx, t.tx.Rollback)
}

func (c *Conn) pop() {
	if len(c.txs) > 0 {
		c.txs = c.txs[:len(c.txs)-1]
	}
}
