package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbwire/dbwire.go/internal/fakedb"
	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

func startServer(t *testing.T) *fakedb.Server {
	t.Helper()

	srv := fakedb.NewServer("127.0.0.1:0")
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Stop()
	})
	return srv
}

func openDB(t *testing.T, srv *fakedb.Server) *sql.DB {
	t.Helper()

	db, err := sql.Open(DriverName, "ws://"+srv.Address())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestOpenAndPing(t *testing.T) {
	assert.Contains(t, sql.Drivers(), DriverName)

	srv := startServer(t)
	db := openDB(t, srv)

	require.NoError(t, db.PingContext(context.Background()))
}

func TestQueryContext(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.StubResponse{
		Matcher: fakedb.MatchMethodWithParams("query", func(params []any) bool {
			return len(params) == 2
		}),
		Result: map[string]any{
			"status": "OK",
			"result": []map[string]any{
				{"id": 1, "name": "ada"},
				{"id": 2, "name": "bob"},
			},
		},
	})
	db := openDB(t, srv)

	rows, err := db.QueryContext(context.Background(), "SELECT id, name FROM users WHERE age > $age", 30)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)

	var got []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		got = append(got, name)
		assert.Positive(t, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ada", "bob"}, got)
}

func TestExecContext(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.SimpleStubResponse("query", map[string]any{
		"status":   "OK",
		"affected": 3,
	}))
	db := openDB(t, srv)

	res, err := db.ExecContext(context.Background(), "DELETE FROM users WHERE age > $age", 90)
	require.NoError(t, err)

	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	_, err = res.LastInsertId()
	assert.ErrorIs(t, err, constants.ErrMethodNotAvailable)
}

func TestQueryStatusError(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.SimpleStubResponse("query", map[string]any{
		"status": "ERR",
		"detail": "table users does not exist",
	}))
	db := openDB(t, srv)

	_, err := db.QueryContext(context.Background(), "SELECT * FROM users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table users does not exist")
}

func TestServerRejection(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.ErrorStubResponse("query", fakedb.CodeInvalidParams, "malformed statement"))
	db := openDB(t, srv)

	_, err := db.QueryContext(context.Background(), "SELEC")

	var protoErr *connection.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "malformed statement", protoErr.Message)
}

func TestTransactions(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.SimpleStubResponse("query", map[string]any{"status": "OK"}))
	db := openDB(t, srv)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "UPDATE users SET active = $active", true)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	})

	t.Run("rollback", func(t *testing.T) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "DELETE FROM users")
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())
	})

	t.Run("unsupported options", func(t *testing.T) {
		_, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		assert.ErrorIs(t, err, constants.ErrMethodNotAvailable)

		_, err = db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		assert.ErrorIs(t, err, constants.ErrMethodNotAvailable)
	})
}

func TestNamedArgumentsRejected(t *testing.T) {
	srv := startServer(t)
	db := openDB(t, srv)

	_, err := db.QueryContext(context.Background(), "SELECT * FROM users WHERE age > $age", sql.Named("age", 30))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "named arguments")
}

func TestPreparedStatement(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.SimpleStubResponse("query", map[string]any{
		"status": "OK",
		"result": []map[string]any{{"name": "ada"}},
	}))
	db := openDB(t, srv)

	stmt, err := db.Prepare("SELECT name FROM users WHERE age > $min AND age < $max AND $min > 0")
	require.NoError(t, err)
	defer stmt.Close()

	for i := 0; i < 2; i++ {
		var name string
		require.NoError(t, stmt.QueryRow(30, 90).Scan(&name))
		assert.Equal(t, "ada", name)
	}

	_, err = stmt.Query(30)
	require.Error(t, err, "two distinct placeholders need two arguments")
}

func TestArrayColumnScanners(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.SimpleStubResponse("query", map[string]any{
		"status": "OK",
		"result": []map[string]any{{
			"nums":   []int{1, 2, 3},
			"ratios": []float64{0.5, 1.5},
			"tags":   []string{"alpha", "beta"},
		}},
	}))
	db := openDB(t, srv)

	rows, err := db.QueryContext(context.Background(), "SELECT nums, ratios, tags FROM stats")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())

	var nums IntSlice
	var ratios FloatSlice
	var tags StringSlice
	require.NoError(t, rows.Scan(&nums, &ratios, &tags))

	assert.Equal(t, []int{1, 2, 3}, nums.Data)
	assert.Equal(t, []float64{0.5, 1.5}, ratios.Data)
	assert.Equal(t, []string{"alpha", "beta"}, tags.Data)
}

// TestSessionInvalidation drives the driver surface directly: a
// contaminated session must tell database/sql to discard it.
func TestSessionInvalidation(t *testing.T) {
	srv := startServer(t)

	opts, err := rpcdb.ParseOptions("ws://" + srv.Address())
	require.NoError(t, err)

	conn, err := NewConnector(opts).Connect(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	sc := conn.(*Conn)
	assert.True(t, sc.IsValid())
	require.NoError(t, sc.ResetSession(context.Background()))

	sc.db.SetHasCancellation(true)
	assert.False(t, sc.IsValid())
	assert.ErrorIs(t, sc.ResetSession(context.Background()), driver.ErrBadConn)
}

// TestAbandonedQueryRecycles exercises the whole loop through the
// database/sql pool: a query abandoned mid-flight poisons its
// connection, and the pool replaces it on the next use.
func TestAbandonedQueryRecycles(t *testing.T) {
	srv := startServer(t)
	srv.AddStubResponse(fakedb.StubResponse{
		Matcher: fakedb.MatchMethod("query"),
		Result:  map[string]any{"status": "OK"},
		Failures: []fakedb.FailureConfig{{
			Type:        fakedb.FailureRequestDelay,
			Probability: 1,
			MinDelay:    300 * time.Millisecond,
			MaxDelay:    300 * time.Millisecond,
		}},
	})
	db := openDB(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := db.QueryContext(ctx, "SELECT 1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, db.PingContext(context.Background()), "the pool dials a fresh session")
}
