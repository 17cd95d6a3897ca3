package redisdb

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Options is a parsed set of Redis connection parameters. One value can
// open any number of connections.
type Options struct {
	Config *redis.Options
}

var _ connection.ConnectOptions = (*Options)(nil)

// ParseOptions parses a redis:// or rediss:// URL. go-redis does the
// parsing, so its full dialect (db number path, query parameters, TLS)
// works here too.
func ParseOptions(rawURL string) (*Options, error) {
	config, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, &connection.ParseError{URL: rawURL, Err: err}
	}

	// Context deadlines must reach the socket, or an abandoned command
	// would silently wait out the server instead of breaking off.
	config.ContextTimeoutEnabled = true

	return &Options{Config: config}, nil
}

// Connect opens one dedicated session and pings it. On failure everything
// is torn down again; no partially constructed connection escapes.
func (o *Options) Connect(ctx context.Context) (connection.Connection, error) {
	client := redis.NewClient(o.Config)
	conn := client.Conn()

	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		_ = client.Close()
		return nil, &connection.ConnectError{Endpoint: o.Config.Addr, Err: err}
	}

	return newConn(client, conn), nil
}
