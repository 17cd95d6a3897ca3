package connection

import (
	"context"
	"log/slog"
)

// Tx is one open transaction or savepoint. It is terminal after Commit or
// Rollback; completing it twice returns ErrTxDone. A Tx abandoned without
// either is backend-defined behavior - see each backend's Begin for what
// its server does with the orphan.
type Tx interface {
	// Commit makes the transaction's changes durable, per the backend's
	// durability semantics. For a nested savepoint it releases the
	// savepoint into the enclosing transaction.
	Commit(ctx context.Context) error

	// Rollback discards the transaction's changes, or rewinds to the
	// savepoint for a nested Tx.
	Rollback(ctx context.Context) error
}

// Transact runs fn inside a transaction: begin, fn, then commit when fn
// succeeds or rollback when it fails. The value fn returns is handed back
// on success.
//
// The error contract is what callers build on:
//
//   - a Begin failure is returned as-is; nothing was opened.
//   - when fn fails, its error is returned unchanged. The rollback is
//     best-effort cleanup: if it also fails, that failure is logged and
//     swallowed so the original cause stays visible.
//   - when fn succeeds but Commit fails, the Commit error is returned and
//     fn's value is discarded - a value the commit could not make durable
//     is not a result.
//
// In every case, an error return means the transaction Transact opened is
// no longer open. A panic out of fn is rolled back the same way and then
// re-raised.
func Transact[T any](ctx context.Context, conn Connection, fn func(ctx context.Context, tx Tx) (T, error)) (T, error) {
	var zero T

	tx, err := conn.Begin(ctx)
	if err != nil {
		return zero, err
	}

	defer func() {
		if r := recover(); r != nil {
			rollback(ctx, tx)
			panic(r)
		}
	}()

	v, err := fn(ctx, tx)
	if err != nil {
		rollback(ctx, tx)
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, err
	}

	return v, nil
}

func rollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		slog.Warn("transaction rollback failed", "error", err)
	}
}
