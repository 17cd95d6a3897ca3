package sql

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

// Conn adapts one wire session to database/sql's driver surface.
type Conn struct {
	db *rpcdb.Conn
}

var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnBeginTx        = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.SessionResetter    = (*Conn)(nil)
	_ driver.Validator          = (*Conn)(nil)
	_ driver.NamedValueChecker  = (*Conn)(nil)
)

// Prepare builds a client-side statement. The wire protocol executes
// query text directly, so nothing is sent until the statement runs.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{conn: c, query: query}, nil
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	return c.Prepare(query)
}

func (c *Conn) Close() error {
	return c.db.Close(context.Background())
}

func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx starts a transaction on the session. Isolation levels and
// read-only mode are not part of the wire protocol.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if opts.Isolation != 0 {
		return nil, fmt.Errorf("isolation levels: %w", constants.ErrMethodNotAvailable)
	}
	if opts.ReadOnly {
		return nil, fmt.Errorf("read-only transactions: %w", constants.ErrMethodNotAvailable)
	}

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	return c.db.Ping(ctx)
}

// ResetSession runs between uses of a pooled connection. A session whose
// round-trip was abandoned mid-flight cannot be trusted, so database/sql
// is told to throw it away.
func (c *Conn) ResetSession(ctx context.Context) error {
	if c.db.HasCancellation() {
		return driver.ErrBadConn
	}
	return nil
}

func (c *Conn) IsValid() bool {
	return !c.db.HasCancellation()
}

// CheckNamedValue admits any value the wire codec can carry. Named
// arguments are refused: the protocol binds query parameters by
// position.
func (c *Conn) CheckNamedValue(value *driver.NamedValue) error {
	if value.Name != "" {
		return fmt.Errorf("named arguments: %w", constants.ErrMethodNotAvailable)
	}
	return nil
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res, err := c.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return newRows(res.Result), nil
}

func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	res, err := c.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	affected := res.Affected
	if affected == 0 {
		affected = int64(len(res.Result))
	}
	return Result{affected: affected}, nil
}

// queryResult is the wire envelope of one executed statement.
type queryResult struct {
	Status   string           `json:"status"`
	Detail   string           `json:"detail"`
	Affected int64            `json:"affected"`
	Result   []map[string]any `json:"result"`
}

func (c *Conn) query(ctx context.Context, query string, args []driver.NamedValue) (*queryResult, error) {
	params := make([]any, 0, len(args)+1)
	params = append(params, query)
	for _, arg := range args {
		params = append(params, arg.Value)
	}

	raw, err := c.db.Do(ctx, "query", params...)
	if err != nil {
		return nil, err
	}

	var res queryResult
	if raw != nil {
		if err := c.db.Unmarshaler().Unmarshal(raw, &res); err != nil {
			return nil, fmt.Errorf("decoding query result: %w", err)
		}
	}

	if res.Status != "" && res.Status != "OK" {
		return nil, fmt.Errorf("query failed: %s", res.Detail)
	}
	return &res, nil
}

// Tx completes a transaction opened through BeginTx. database/sql
// serializes use of the connection, so the background contexts here do
// not race the session's owner.
type Tx struct {
	tx connection.Tx
}

var _ driver.Tx = (*Tx)(nil)

func (t *Tx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback(context.Background())
}
