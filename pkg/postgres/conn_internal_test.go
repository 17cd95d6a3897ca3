package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

func TestGuardedErrorMapping(t *testing.T) {
	t.Run("success disarms the guard", func(t *testing.T) {
		c := newConn(nil)

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return nil
		})

		require.NoError(t, err)
		assert.False(t, c.HasCancellation())
	})

	t.Run("sqlstate becomes a protocol error and leaves the wire clean", func(t *testing.T) {
		c := newConn(nil)

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return &pgconn.PgError{Code: "42601", Message: "syntax error at or near \"FORM\""}
		})

		var protoErr *connection.ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "42601", protoErr.Code)
		assert.Equal(t, "syntax error at or near \"FORM\"", protoErr.Message)
		assert.False(t, c.HasCancellation())
	})

	t.Run("wrapped sqlstate is still a rejection", func(t *testing.T) {
		c := newConn(nil)

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return errors.Join(errors.New("batch item 2"), &pgconn.PgError{Code: "23505", Message: "duplicate key"})
		})

		var protoErr *connection.ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "23505", protoErr.Code)
		assert.False(t, c.HasCancellation())
	})

	t.Run("broken exchange contaminates", func(t *testing.T) {
		c := newConn(nil)
		cause := errors.New("unexpected EOF")

		err := c.guarded(context.Background(), func(ctx context.Context) error {
			return cause
		})

		require.ErrorIs(t, err, cause)
		assert.True(t, c.HasCancellation())
	})

	t.Run("closed connection fails fast", func(t *testing.T) {
		c := newConn(nil)
		c.closed = true

		ran := false
		err := c.guarded(context.Background(), func(ctx context.Context) error {
			ran = true
			return nil
		})

		assert.ErrorIs(t, err, connection.ErrClosed)
		assert.False(t, ran)
	})
}

func TestQueueBookkeeping(t *testing.T) {
	c := newConn(nil)

	require.False(t, c.ShouldFlush())
	require.NoError(t, c.Queue("INSERT INTO t VALUES ($1)", 1))
	require.NoError(t, c.Queue("INSERT INTO t VALUES ($1)", 2))
	require.True(t, c.ShouldFlush())

	c.closed = true
	assert.ErrorIs(t, c.Queue("INSERT INTO t VALUES ($1)", 3), connection.ErrClosed)
	assert.ErrorIs(t, c.Flush(context.Background()), connection.ErrClosed)
	assert.ErrorIs(t, c.Ping(context.Background()), connection.ErrClosed)
}
