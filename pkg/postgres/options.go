package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Options is a parsed set of PostgreSQL connection parameters. One value
// can open any number of connections.
type Options struct {
	Config *pgx.ConnConfig
}

var _ connection.ConnectOptions = (*Options)(nil)

// ParseOptions parses a postgres:// URL or key=value DSN. pgx does the
// actual parsing, so everything it understands (sslmode, connect_timeout,
// pgpass, service files) works here too.
func ParseOptions(connString string) (*Options, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, &connection.ParseError{URL: connString, Err: err}
	}
	return &Options{Config: config}, nil
}

// Connect opens one session. On failure nothing is retained; the error
// wraps the pgx cause.
func (o *Options) Connect(ctx context.Context) (connection.Connection, error) {
	conn, err := pgx.ConnectConfig(ctx, o.Config)
	if err != nil {
		return nil, &connection.ConnectError{Endpoint: o.endpoint(), Err: err}
	}
	return newConn(conn), nil
}

// endpoint renders the target without credentials, for error messages.
func (o *Options) endpoint() string {
	return fmt.Sprintf("postgres://%s:%d/%s", o.Config.Host, o.Config.Port, o.Config.Database)
}
