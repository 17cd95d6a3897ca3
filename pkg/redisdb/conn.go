package redisdb

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Conn is a single dedicated Redis session, not a pool handle. It is
// owned by one operation at a time; the pool may observe the cancellation
// flag from other goroutines, everything else is single-owner state.
//
// Redis has no statement cache, so the zero-value cache hooks from
// connection.Base apply: CachedStatementsSize reports 0 and
// ClearCachedStatements is a no-op.
type Conn struct {
	connection.Base

	client *redis.Client
	conn   *redis.Conn

	closed bool

	// tx is the open MULTI/EXEC pipeline, nil outside a transaction.
	tx redis.Pipeliner

	queue [][]any
}

var _ connection.Connection = (*Conn)(nil)

func newConn(client *redis.Client, conn *redis.Conn) *Conn {
	return &Conn{client: client, conn: conn}
}

// Close ends the session. A transaction still open is discarded, which is
// also what the server would do when the connection goes away.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.tx != nil {
		c.tx.Discard()
		c.tx = nil
	}
	c.queue = nil

	err := c.conn.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// Ping checks the server is reachable over this connection.
func (c *Conn) Ping(ctx context.Context) error {
	return c.guarded(ctx, func(ctx context.Context) error {
		return c.conn.Ping(ctx).Err()
	})
}

// Do runs one command, given as redis does: name first, then arguments.
// While a transaction is open the command is queued into it and the
// result is nil until EXEC applies the batch. A nil result outside a
// transaction means the key did not exist.
func (c *Conn) Do(ctx context.Context, args ...any) (any, error) {
	var out any
	err := c.guarded(ctx, func(ctx context.Context) error {
		if err := c.flushQueue(ctx); err != nil {
			return err
		}

		if c.tx != nil {
			c.tx.Do(ctx, args...)
			return nil
		}

		cmd := redis.NewCmd(ctx, args...)
		_ = c.conn.Process(ctx, cmd)

		v, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Set stores a string value under key. Queued until Commit when a
// transaction is open.
func (c *Conn) Set(ctx context.Context, key, value string) error {
	_, err := c.Do(ctx, "set", key, value)
	return err
}

// Get returns the value of key. A missing key reports found=false rather
// than an error. Inside a transaction the read is queued and found is
// always false; the value arrives with EXEC.
func (c *Conn) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.Do(ctx, "get", key)
	if err != nil || v == nil {
		return "", false, err
	}

	s, ok := v.(string)
	if !ok {
		return "", false, errors.New("redisdb: non-string reply to get")
	}
	return s, true, nil
}

// Del removes keys. Queued until Commit when a transaction is open.
func (c *Conn) Del(ctx context.Context, keys ...string) error {
	args := make([]any, 0, len(keys)+1)
	args = append(args, "del")
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := c.Do(ctx, args...)
	return err
}

// Queue buffers a command locally for the next flush. Only
// fire-and-forget writes belong here: results of queued commands are
// discarded.
func (c *Conn) Queue(args ...any) error {
	if c.closed {
		return connection.ErrClosed
	}
	c.queue = append(c.queue, args)
	return nil
}

// ShouldFlush reports whether queued commands are waiting to be sent.
func (c *Conn) ShouldFlush() bool {
	return len(c.queue) > 0
}

// Flush sends every queued command as one pipeline. On failure the whole
// queue is discarded along with the error; retrying a half-applied
// pipeline is the caller's decision to make.
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

	pipe := c.conn.Pipeline()
	for _, args := range pending {
		pipe.Do(ctx, args...)
	}

	// Exec reports redis.Nil when any command's reply was nil; for a
	// fire-and-forget pipeline that is not a failure.
	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// guarded wraps one round-trip in the cancellation protocol. A reply
// from the server, error or not, disarms the guard: Redis rejections
// surface as *connection.ProtocolError carrying the error's leading code
// word (ERR, WRONGTYPE, EXECABORT, ...). Only a broken exchange, a
// context expiring mid-command or a dead socket, leaves the contamination
// flag up.
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

	var rerr redis.Error
	if errors.As(err, &rerr) {
		g.Forget()

		code, msg, ok := strings.Cut(rerr.Error(), " ")
		if !ok {
			code, msg = "ERR", rerr.Error()
		}
		return &connection.ProtocolError{Code: code, Message: msg}
	}
	return err
}
