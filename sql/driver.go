package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

// DriverName is the name the driver registers itself under.
const DriverName = "dbwire"

func init() {
	sql.Register(DriverName, &Driver{})
}

// Driver opens connections from a connection URL. The URL is the same
// dialect rpcdb.ParseOptions accepts.
type Driver struct{}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
)

// Open establishes a new connection to the server named by the URL.
func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector parses the URL once; the returned connector dials from
// the parsed options on every Connect.
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	opts, err := rpcdb.ParseOptions(name)
	if err != nil {
		return nil, err
	}
	return NewConnector(opts), nil
}

// Connector hands database/sql new connections from pre-parsed options.
type Connector struct {
	opts *rpcdb.Options
}

var _ driver.Connector = (*Connector)(nil)

// NewConnector wraps parsed options for use with sql.OpenDB.
func NewConnector(opts *rpcdb.Options) *Connector {
	return &Connector{opts: opts}
}

// Connect opens one wire session.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.opts.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{db: conn.(*rpcdb.Conn)}, nil
}

// Driver returns the driver the connector belongs to.
func (c *Connector) Driver() driver.Driver {
	return &Driver{}
}
