package dbwire

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
	"github.com/dbwire/dbwire.go/pkg/postgres"
	"github.com/dbwire/dbwire.go/pkg/redisdb"
	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

// ParseOptions routes a connection URL to its backend by scheme and
// parses it into that backend's options. ws, wss, http and https select
// the wire backend; postgres and postgresql the PostgreSQL backend;
// redis and rediss the Redis backend. Backend-specific dialects beyond
// the scheme (query parameters, db-number paths) are the backend's
// business; anything a backend rejects, and any scheme no backend
// claims, surfaces as a *connection.ParseError.
func ParseOptions(rawURL string) (connection.ConnectOptions, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &connection.ParseError{URL: rawURL, Err: err}
	}

	switch u.Scheme {
	case constants.WebsocketScheme, constants.SecureWebsocketScheme,
		constants.HTTPScheme, constants.SecureHTTPScheme:
		opts, err := rpcdb.ParseOptions(rawURL)
		if err != nil {
			return nil, err
		}
		return opts, nil

	case constants.PostgresScheme, constants.PostgresAltScheme:
		opts, err := postgres.ParseOptions(rawURL)
		if err != nil {
			return nil, err
		}
		return opts, nil

	case constants.RedisScheme, constants.SecureRedisScheme:
		opts, err := redisdb.ParseOptions(rawURL)
		if err != nil {
			return nil, err
		}
		return opts, nil

	default:
		return nil, &connection.ParseError{
			URL: rawURL,
			Err: fmt.Errorf("no backend handles scheme %q", u.Scheme),
		}
	}
}

// Connect parses the URL and opens one connection to the server it
// names. Applications opening many connections to the same server
// should ParseOptions once and Connect from the options instead.
func Connect(ctx context.Context, rawURL string) (connection.Connection, error) {
	opts, err := ParseOptions(rawURL)
	if err != nil {
		return nil, err
	}
	return opts.Connect(ctx)
}
