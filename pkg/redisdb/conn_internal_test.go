package redisdb

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// fakeServerErr stands in for a reply-level error from the server.
type fakeServerErr string

func (e fakeServerErr) Error() string { return string(e) }
func (e fakeServerErr) RedisError()   {}

// newLazyConn builds a Conn whose client never dials; everything that
// stays client-side (transaction pipelines, queues, guard bookkeeping)
// works without a server.
func newLazyConn() *Conn {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return newConn(client, client.Conn())
}

func TestGuardedErrorMapping(t *testing.T) {
	t.Run("success disarms the guard", func(t *testing.T) {
		c := newLazyConn()

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return nil
		})

		require.NoError(t, err)
		assert.False(t, c.HasCancellation())
	})

	t.Run("server reply error becomes a protocol error", func(t *testing.T) {
		c := newLazyConn()

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return fakeServerErr("WRONGTYPE Operation against a key holding the wrong kind of value")
		})

		var protoErr *connection.ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "WRONGTYPE", protoErr.Code)
		assert.Equal(t, "Operation against a key holding the wrong kind of value", protoErr.Message)
		assert.False(t, c.HasCancellation(), "a reply is a complete exchange")
	})

	t.Run("single-word reply error keeps the whole text", func(t *testing.T) {
		c := newLazyConn()

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return fakeServerErr("LOADING")
		})

		var protoErr *connection.ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "ERR", protoErr.Code)
		assert.Equal(t, "LOADING", protoErr.Message)
	})

	t.Run("broken exchange contaminates", func(t *testing.T) {
		c := newLazyConn()
		cause := errors.New("unexpected EOF")

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return cause
		})

		require.ErrorIs(t, err, cause)
		assert.True(t, c.HasCancellation())
	})
}

func TestTransactionQueuesClientSide(t *testing.T) {
	ctx := context.Background()

	t.Run("rollback never touches the wire", func(t *testing.T) {
		c := newLazyConn()

		tx, err := c.Begin(ctx)
		require.NoError(t, err)

		// Queued writes stay local, so they succeed without a server.
		require.NoError(t, c.Set(ctx, "k", "v"))

		_, found, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found, "reads are deferred while the transaction is open")

		require.NoError(t, tx.Rollback(ctx))
		assert.ErrorIs(t, tx.Rollback(ctx), connection.ErrTxDone)
		assert.ErrorIs(t, tx.Commit(ctx), connection.ErrTxDone)
	})

	t.Run("nested begin is rejected", func(t *testing.T) {
		c := newLazyConn()

		tx, err := c.Begin(ctx)
		require.NoError(t, err)

		_, err = c.Begin(ctx)
		var protoErr *connection.ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "ERR", protoErr.Code)
		assert.Contains(t, protoErr.Message, "nested")
		assert.False(t, c.HasCancellation())

		require.NoError(t, tx.Rollback(ctx))

		// With the first transaction gone, a new one may start.
		_, err = c.Begin(ctx)
		require.NoError(t, err)
	})
}

func TestCacheHookDefaults(t *testing.T) {
	c := newLazyConn()

	assert.Zero(t, c.CachedStatementsSize())
	require.NoError(t, c.ClearCachedStatements(context.Background()))
	assert.Zero(t, c.CachedStatementsSize())
}

func TestClosedConnection(t *testing.T) {
	ctx := context.Background()
	c := newLazyConn()

	require.NoError(t, c.Close(ctx))
	require.NoError(t, c.Close(ctx), "close must be idempotent")

	assert.ErrorIs(t, c.Ping(ctx), connection.ErrClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", "v"), connection.ErrClosed)
	assert.ErrorIs(t, c.Queue("set", "k", "v"), connection.ErrClosed)
	assert.ErrorIs(t, c.Flush(ctx), connection.ErrClosed)
	_, err := c.Begin(ctx)
	assert.ErrorIs(t, err, connection.ErrClosed)
}

func TestQueueBookkeeping(t *testing.T) {
	c := newLazyConn()

	require.False(t, c.ShouldFlush())
	require.NoError(t, c.Queue("set", "a", "1"))
	require.NoError(t, c.Queue("set", "b", "2"))
	require.True(t, c.ShouldFlush())
}
