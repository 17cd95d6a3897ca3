package sql

import (
	"context"
	"database/sql/driver"
	"regexp"

	"github.com/dbwire/dbwire.go/pkg/constants"
)

var placeholderRegex = regexp.MustCompile(`\$[a-zA-Z_][a-zA-Z0-9_]*`)

// Stmt is a client-side statement: the query text plus the connection to
// run it on. Nothing is prepared on the server.
type Stmt struct {
	conn  *Conn
	query string
}

var (
	_ driver.Stmt              = (*Stmt)(nil)
	_ driver.StmtQueryContext  = (*Stmt)(nil)
	_ driver.StmtExecContext   = (*Stmt)(nil)
	_ driver.NamedValueChecker = (*Stmt)(nil)
)

func (s *Stmt) Close() error {
	return nil
}

// NumInput counts the distinct $name placeholders in the statement. A
// repeated placeholder is one input; arguments bind to placeholders in
// order of first appearance.
func (s *Stmt) NumInput() int {
	seen := make(map[string]struct{})
	for _, name := range placeholderRegex.FindAllString(s.query, -1) {
		seen[name] = struct{}{}
	}
	return len(seen)
}

func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), namedValues(args))
}

func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), namedValues(args))
}

func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func (s *Stmt) CheckNamedValue(value *driver.NamedValue) error {
	return s.conn.CheckNamedValue(value)
}

func namedValues(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: arg}
	}
	return named
}

// Result reports what a write statement did.
type Result struct {
	affected int64
}

var _ driver.Result = Result{}

// LastInsertId is not part of the protocol; servers assign ids, clients
// read them from the returned rows.
func (r Result) LastInsertId() (int64, error) {
	return 0, constants.ErrMethodNotAvailable
}

func (r Result) RowsAffected() (int64, error) {
	return r.affected, nil
}
