package connection_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

func TestParseError(t *testing.T) {
	cause := errors.New("missing scheme")
	err := &connection.ParseError{URL: "localhost:8000", Err: cause}

	assert.Equal(t, `parse "localhost:8000": missing scheme`, err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestConnectError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &connection.ConnectError{Endpoint: "ws://localhost:8000", Err: cause}

	assert.Equal(t, "connect ws://localhost:8000: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestProtocolError(t *testing.T) {
	err := &connection.ProtocolError{Code: "23505", Message: "duplicate key"}

	assert.Equal(t, "duplicate key (23505)", err.Error())

	t.Run("matches any protocol error", func(t *testing.T) {
		assert.ErrorIs(t, err, &connection.ProtocolError{})

		wrapped := fmt.Errorf("query failed: %w", err)
		assert.ErrorIs(t, wrapped, &connection.ProtocolError{})
	})

	t.Run("does not match unrelated errors", func(t *testing.T) {
		assert.NotErrorIs(t, err, connection.ErrClosed)
		assert.NotErrorIs(t, errors.New("plain"), &connection.ProtocolError{})
	})

	t.Run("code is optional", func(t *testing.T) {
		bare := &connection.ProtocolError{Message: "malformed frame"}
		assert.Equal(t, "malformed frame", bare.Error())
	})
}
