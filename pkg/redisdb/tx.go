package redisdb

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Tx is one open MULTI/EXEC transaction. Commands queue client-side
// while it is open; nothing reaches the server before Commit.
type Tx struct {
	conn *Conn
	done bool
}

var _ connection.Tx = (*Tx)(nil)

// Begin opens a transaction. Redis has no savepoints, so beginning a
// second one on the same connection is rejected the way the server
// rejects a nested MULTI.
func (c *Conn) Begin(ctx context.Context) (connection.Tx, error) {
	if c.closed {
		return nil, connection.ErrClosed
	}
	if c.tx != nil {
		return nil, &connection.ProtocolError{Code: "ERR", Message: "MULTI calls can not be nested"}
	}

	c.tx = c.conn.TxPipeline()
	return &Tx{conn: c}, nil
}

// Commit sends MULTI, every queued command, and EXEC in one shot.
// Terminal even when it fails; the queued commands are gone either way.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true

	pipe := t.conn.tx
	t.conn.tx = nil

	return t.conn.guarded(ctx, func(ctx context.Context) error {
		_, err := pipe.Exec(ctx)
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
}

// Rollback discards the queued commands. Nothing was sent yet, so this
// never touches the server and cannot fail over the wire.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return connection.ErrTxDone
	}
	t.done = true

	t.conn.tx.Discard()
	t.conn.tx = nil
	return nil
}
