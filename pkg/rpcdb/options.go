package rpcdb

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
)

// Options are the parsed, immutable connection parameters for the wire
// backend. One Options value can open any number of connections.
type Options struct {
	// Config carries the endpoint, codec pair, logger and timeout; it is
	// populated with defaults by ParseOptions and may be adjusted before
	// the first Connect.
	Config *connection.Config
}

var _ connection.ConnectOptions = (*Options)(nil)

// ParseOptions turns a connection URL into Options. It does no I/O;
// malformed input is reported as a *connection.ParseError.
//
// Accepted schemes are ws, wss, http and https. ws and wss select the
// WebSocket transport with the full session surface; http and https
// select the stateless transport, on which servers reject session-bound
// methods such as begin and prepare.
func ParseOptions(rawURL string) (*Options, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &connection.ParseError{URL: rawURL, Err: err}
	}

	switch u.Scheme {
	case constants.WebsocketScheme, constants.SecureWebsocketScheme,
		constants.HTTPScheme, constants.SecureHTTPScheme:
	default:
		return nil, &connection.ParseError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	if u.Host == "" {
		return nil, &connection.ParseError{URL: rawURL, Err: fmt.Errorf("missing host")}
	}

	return &Options{Config: connection.NewConfig(u)}, nil
}

// SetTimeout adjusts the per-round-trip timeout and returns the receiver.
func (o *Options) SetTimeout(timeout time.Duration) *Options {
	o.Config.Timeout = timeout
	return o
}

// Connect establishes a live session with the server. On failure the
// transport cause is wrapped in a *connection.ConnectError and no
// connection is left behind.
func (o *Options) Connect(ctx context.Context) (connection.Connection, error) {
	c := New(o.Config)
	if err := c.connect(ctx); err != nil {
		return nil, &connection.ConnectError{Endpoint: o.Config.BaseURL, Err: err}
	}
	return c, nil
}
