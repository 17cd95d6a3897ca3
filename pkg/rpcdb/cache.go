package rpcdb

import "context"

// Prepare asks the server to parse the statement once and returns the
// server-side name later queries can reference. Names are cached by
// statement text, so preparing the same text twice costs one round-trip.
func (c *Conn) Prepare(ctx context.Context, statement string) (string, error) {
	if name, ok := c.stmts[statement]; ok {
		return name, nil
	}

	raw, err := c.do(ctx, methodPrepare, statement)
	if err != nil {
		return "", err
	}

	var name string
	if err := c.config.Unmarshaler.Unmarshal(raw, &name); err != nil {
		return "", err
	}

	c.stmts[statement] = name
	return name, nil
}

// CachedStatementsSize reports how many prepared statements this
// connection holds on the server.
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

	if _, err := c.do(ctx, methodDeallocateAll); err != nil {
		return err
	}

	c.stmts = make(map[string]string)
	return nil
}
