package rpcdb_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

func TestParseOptions(t *testing.T) {
	t.Run("websocket url", func(t *testing.T) {
		opts, err := rpcdb.ParseOptions("ws://localhost:8000")
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:8000", opts.Config.BaseURL)
		assert.NotNil(t, opts.Config.Marshaler)
		assert.NotNil(t, opts.Config.Unmarshaler)
		assert.NotNil(t, opts.Config.Logger)
		assert.Equal(t, constants.DefaultWSTimeout, opts.Config.Timeout)
	})

	t.Run("http url", func(t *testing.T) {
		opts, err := rpcdb.ParseOptions("https://db.example.com:8443")
		require.NoError(t, err)
		assert.Equal(t, "https://db.example.com:8443", opts.Config.BaseURL)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := rpcdb.ParseOptions("ftp://localhost:8000")

		var parseErr *connection.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "ftp://localhost:8000", parseErr.URL)
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := rpcdb.ParseOptions("ws://")

		var parseErr *connection.ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("unparseable url", func(t *testing.T) {
		_, err := rpcdb.ParseOptions("ws://local\x00host:8000")

		var parseErr *connection.ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("set timeout", func(t *testing.T) {
		opts, err := rpcdb.ParseOptions("ws://localhost:8000")
		require.NoError(t, err)

		opts.SetTimeout(5 * time.Second)
		assert.Equal(t, 5*time.Second, opts.Config.Timeout)
	})
}

func TestConnectFailure(t *testing.T) {
	// Grab a port that is guaranteed to have nothing listening on it.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	opts, err := rpcdb.ParseOptions("ws://" + addr)
	require.NoError(t, err)
	opts.SetTimeout(2 * time.Second)

	_, err = opts.Connect(context.Background())

	var connectErr *connection.ConnectError
	require.ErrorAs(t, err, &connectErr)
	assert.Equal(t, "ws://"+addr, connectErr.Endpoint)
}
