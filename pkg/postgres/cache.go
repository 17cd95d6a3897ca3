package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Prepare ensures a server-side prepared statement exists for the query
// text and returns its name. Preparing the same text again reuses the
// cached statement; the name can be passed to Exec or Query in place of
// SQL.
func (c *Conn) Prepare(ctx context.Context, sql string) (string, error) {
	if name, ok := c.stmts[sql]; ok {
		return name, nil
	}

	name := fmt.Sprintf("stmt_%s", uuid.NewString())
	err := c.guarded(ctx, func(ctx context.Context) error {
		_, err := c.conn.Prepare(ctx, name, sql)
		return err
	})
	if err != nil {
		return "", err
	}

	c.stmts[sql] = name
	return name, nil
}

// CachedStatementsSize reports how many statements are prepared on this
// connection.
func (c *Conn) CachedStatementsSize() int {
	return len(c.stmts)
}

// ClearCachedStatements deallocates every prepared statement of the
// session. The local cache empties only when the server confirms, so the
// count stays truthful about server-side state.
func (c *Conn) ClearCachedStatements(ctx context.Context) error {
	if len(c.stmts) == 0 {
		return nil
	}

	err := c.guarded(ctx, func(ctx context.Context) error {
		return c.conn.DeallocateAll(ctx)
	})
	if err != nil {
		return err
	}

	c.stmts = make(map[string]string)
	return nil
}
