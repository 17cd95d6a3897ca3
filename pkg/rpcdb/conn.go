package rpcdb

import (
	"context"
	"errors"

	"github.com/fxamacker/cbor/v2"

	"github.com/dbwire/dbwire.go/internal/codec"
	"github.com/dbwire/dbwire.go/internal/rand"
	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
)

// transport moves one request frame to the server and brings back its
// response. Implementations report transport-level failures only; a
// server-side rejection travels inside the Response.
type transport interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	RoundTrip(ctx context.Context, req *Request) (*Response[cbor.RawMessage], error)
}

// Conn is a connection to a server speaking the wire protocol. It is
// owned by one operation at a time; the pool may observe its
// cancellation flag from other goroutines, everything else is
// single-owner state.
//
// A transaction left open when the connection closes is discarded by the
// server together with the rest of the session.
type Conn struct {
	connection.Base

	config    *connection.Config
	transport transport

	closed  bool
	depth   int
	pending []*Request
	stmts   map[string]string
}

var _ connection.Connection = (*Conn)(nil)

// New builds a Conn for the endpoint in config, choosing the WebSocket
// transport for ws/wss URLs and the HTTP transport for http/https ones.
// The connection is not live until connect runs; use Options.Connect.
func New(config *connection.Config) *Conn {
	c := &Conn{
		config: config,
		stmts:  make(map[string]string),
	}

	switch config.URL.Scheme {
	case constants.HTTPScheme, constants.SecureHTTPScheme:
		c.transport = newHTTPTransport(config)
	default:
		c.transport = newWSTransport(config)
	}

	return c
}

func (c *Conn) connect(ctx context.Context) error {
	if c.config.BaseURL == "" {
		return constants.ErrNoBaseURL
	}
	if c.config.Marshaler == nil {
		return constants.ErrNoMarshaler
	}
	if c.config.Unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return c.transport.Connect(ctx)
}

// Close tears the session down. It is safe to call more than once; any
// operation after the first Close returns ErrClosed.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil

	return c.transport.Close(ctx)
}

// Ping performs the cheapest possible round-trip.
func (c *Conn) Ping(ctx context.Context) error {
	_, err := c.do(ctx, methodPing)
	return err
}

// Use selects the named database for the rest of the session.
func (c *Conn) Use(ctx context.Context, db string) error {
	_, err := c.do(ctx, methodUse, db)
	return err
}

// Let binds a session variable on the server.
func (c *Conn) Let(ctx context.Context, key string, value any) error {
	_, err := c.do(ctx, methodLet, key, value)
	return err
}

// Unset removes a session variable.
func (c *Conn) Unset(ctx context.Context, key string) error {
	_, err := c.do(ctx, methodUnset, key)
	return err
}

// Do performs one RPC round-trip and returns the raw result payload.
// It is the escape hatch for methods the typed surface does not cover.
func (c *Conn) Do(ctx context.Context, method string, params ...any) (cbor.RawMessage, error) {
	return c.do(ctx, method, params...)
}

// Unmarshaler exposes the connection's wire codec so callers of Do can
// decode raw results themselves.
func (c *Conn) Unmarshaler() codec.Unmarshaler {
	return c.config.Unmarshaler
}

// Query runs a statement on the server and unmarshals the result into T.
// A nil result pointer means the server returned no payload.
func Query[T any](ctx context.Context, c *Conn, statement string, params ...any) (*T, error) {
	args := append([]any{statement}, params...)

	raw, err := c.do(ctx, methodQuery, args...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var out T
	if err := c.config.Unmarshaler.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Queue buffers a request locally instead of sending it. Queued requests
// go out, in order, before the next round-trip, or when Flush is called.
// Only fire-and-forget writes belong here: results of queued requests are
// discarded.
func (c *Conn) Queue(method string, params ...any) error {
	if c.closed {
		return connection.ErrClosed
	}
	c.pending = append(c.pending, c.newRequest(method, params))
	return nil
}

// ShouldFlush reports whether queued requests are waiting to be sent.
func (c *Conn) ShouldFlush() bool {
	return len(c.pending) > 0
}

// Flush sends every queued request in order. On the first failure the
// rest of the queue is discarded along with the failed request, and the
// error is returned; retrying a half-applied pipeline is the caller's
// decision to make, not ours.
func (c *Conn) Flush(ctx context.Context) error {
	if c.closed {
		return connection.ErrClosed
	}
	if len(c.pending) == 0 {
		return nil
	}

	g := c.CancellationGuard()
	defer g.Release()

	err := c.flush(ctx)
	if err == nil || serverRejected(err) {
		g.Forget()
	}
	return err
}

// do performs one guarded round-trip, draining the pipeline queue first
// so same-connection operations stay in issue order. The guard is
// forgotten as soon as a complete response frame has arrived: a
// server-side rejection leaves the wire clean, only a broken exchange
// contaminates the connection.
func (c *Conn) do(ctx context.Context, method string, params ...any) (cbor.RawMessage, error) {
	if c.closed {
		return nil, connection.ErrClosed
	}

	g := c.CancellationGuard()
	defer g.Release()

	if len(c.pending) > 0 {
		if err := c.flush(ctx); err != nil {
			if serverRejected(err) {
				g.Forget()
			}
			return nil, err
		}
	}

	res, err := c.transport.RoundTrip(ctx, c.newRequest(method, params))
	if err != nil {
		return nil, err
	}
	g.Forget()

	if res.Error != nil {
		return nil, res.Error.protocol()
	}
	if res.Result == nil {
		return nil, nil
	}
	return *res.Result, nil
}

func (c *Conn) flush(ctx context.Context) error {
	pending := c.pending
	c.pending = nil

	for _, req := range pending {
		res, err := c.transport.RoundTrip(ctx, req)
		if err != nil {
			return err
		}
		if res.Error != nil {
			return res.Error.protocol()
		}
	}
	return nil
}

func (c *Conn) newRequest(method string, params []any) *Request {
	return &Request{
		ID:     rand.RequestID(constants.RequestIDLength),
		Method: method,
		Params: params,
	}
}

// serverRejected reports whether err is a complete server reply rather
// than a broken exchange.
func serverRejected(err error) bool {
	var pe *connection.ProtocolError
	return errors.As(err, &pe)
}
