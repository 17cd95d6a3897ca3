package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Conn is a single PostgreSQL session. It is owned by one operation at a
// time; the pool may observe the cancellation flag from other goroutines,
// everything else is single-owner state.
type Conn struct {
	connection.Base

	conn *pgx.Conn

	closed bool

	// txs is the stack of open transaction levels. Index 0 is the real
	// transaction, the rest are the savepoints pgx manages underneath
	// nested Begins.
	txs []pgx.Tx

	queue []batchItem
	stmts map[string]string
}

type batchItem struct {
	sql  string
	args []any
}

var _ connection.Connection = (*Conn)(nil)

func newConn(conn *pgx.Conn) *Conn {
	return &Conn{
		conn:  conn,
		stmts: make(map[string]string),
	}
}

// Close ends the session. Safe to call more than once; the server rolls
// back any transaction still open when the connection goes away.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.queue = nil
	c.txs = nil

	return c.conn.Close(ctx)
}

// Ping checks the server is reachable over this connection.
func (c *Conn) Ping(ctx context.Context) error {
	return c.guarded(ctx, c.conn.Ping)
}

// Exec runs one statement and reports how many rows it affected. Queued
// writes are flushed first so the session sees operations in issue order.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	var affected int64
	err := c.guarded(ctx, func(ctx context.Context) error {
		if err := c.flushQueue(ctx); err != nil {
			return err
		}
		tag, err := c.conn.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// Query runs one statement and returns every row as a column-name map.
// The result set is drained inside the guarded round-trip, so the wire is
// quiet again by the time the rows are handed back.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	var out []map[string]any
	err := c.guarded(ctx, func(ctx context.Context) error {
		if err := c.flushQueue(ctx); err != nil {
			return err
		}
		rows, err := c.conn.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return err
			}
			row := make(map[string]any, len(fields))
			for i, fd := range fields {
				row[fd.Name] = values[i]
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Queue buffers a statement locally for the next flush. Only
// fire-and-forget writes belong here: results of queued statements are
// discarded.
func (c *Conn) Queue(sql string, args ...any) error {
	if c.closed {
		return connection.ErrClosed
	}
	c.queue = append(c.queue, batchItem{sql: sql, args: args})
	return nil
}

// ShouldFlush reports whether queued statements are waiting to be sent.
func (c *Conn) ShouldFlush() bool {
	return len(c.queue) > 0
}

// Flush sends every queued statement as one batch over pgx's pipeline.
// On failure the whole queue is discarded along with the error; retrying
// a half-applied pipeline is the caller's decision to make.
func (c *Conn) Flush(ctx context.Context) error {
	if c.closed {
		return connection.ErrClosed
	}
	if len(c.queue) == 0 {
		return nil
	}
	return c.guarded(ctx, c.flushQueue)
}

// flushQueue runs inside an already guarded operation.
func (c *Conn) flushQueue(ctx context.Context) error {
	if len(c.queue) == 0 {
		return nil
	}
	pending := c.queue
	c.queue = nil

	batch := &pgx.Batch{}
	for _, item := range pending {
		batch.Queue(item.sql, item.args...)
	}

	br := c.conn.SendBatch(ctx, batch)
	var firstErr error
	for range pending {
		if _, err := br.Exec(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := br.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// guarded wraps one round-trip in the cancellation protocol. A complete
// server reply disarms the guard whether or not it carries an error: a
// rejection with a SQLSTATE is a clean exchange and surfaces as a
// *connection.ProtocolError. Only a broken exchange, a context expiring
// mid-flight or a dead socket, leaves the contamination flag up.
func (c *Conn) guarded(ctx context.Context, op func(ctx context.Context) error) error {
	if c.closed {
		return connection.ErrClosed
	}

	g := c.CancellationGuard()
	defer g.Release()

	err := op(ctx)
	if err == nil {
		g.Forget()
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		g.Forget()
		return &connection.ProtocolError{Code: pgErr.Code, Message: pgErr.Message}
	}
	return err
}
