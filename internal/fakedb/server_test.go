package fakedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerLifecycle(t *testing.T) {
	server := NewServer("127.0.0.1:0")
	server.AddStubResponse(SimpleStubResponse("query", map[string]any{"status": "OK"}))

	require.NoError(t, server.Start())
	assert.NotEmpty(t, server.Address())
	require.NoError(t, server.Stop())
}

// exec runs one request against the session and fails the test on a wire
// error.
func exec(t *testing.T, s *Server, sess *session, method string, params ...any) any {
	t.Helper()
	result, werr := s.handle(sess, method, params)
	require.Nil(t, werr, "%s: %v", method, werr)
	return result
}

func TestTransactionSnapshots(t *testing.T) {
	t.Run("commit keeps writes", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		exec(t, s, sess, "begin")
		exec(t, s, sess, "kv.set", "k", "v")
		exec(t, s, sess, "commit")

		v, ok := s.Get(DefaultDatabase, "k")
		require.True(t, ok)
		assert.Equal(t, "v", v)
		assert.False(t, sess.inTx())
	})

	t.Run("rollback restores the begin snapshot", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()
		s.Put(DefaultDatabase, "k", "before")

		exec(t, s, sess, "begin")
		exec(t, s, sess, "kv.set", "k", "after")
		exec(t, s, sess, "kv.set", "extra", true)
		exec(t, s, sess, "rollback")

		v, ok := s.Get(DefaultDatabase, "k")
		require.True(t, ok)
		assert.Equal(t, "before", v)

		_, ok = s.Get(DefaultDatabase, "extra")
		assert.False(t, ok)
		assert.False(t, sess.inTx())
	})

	t.Run("rollback_to rewinds to the savepoint only", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		exec(t, s, sess, "begin")
		exec(t, s, sess, "kv.set", "a", 1)
		exec(t, s, sess, "savepoint", "sp_1")
		exec(t, s, sess, "kv.set", "a", 2)
		exec(t, s, sess, "rollback_to", "sp_1")

		assert.EqualValues(t, 1, exec(t, s, sess, "kv.get", "a"))

		exec(t, s, sess, "commit")
		v, _ := s.Get(DefaultDatabase, "a")
		assert.EqualValues(t, 1, v)
	})

	t.Run("release forgets the savepoint but keeps its writes", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		exec(t, s, sess, "begin")
		exec(t, s, sess, "savepoint", "sp_1")
		exec(t, s, sess, "kv.set", "a", "inner")
		exec(t, s, sess, "release", "sp_1")

		_, werr := s.handle(sess, "rollback_to", []any{"sp_1"})
		require.NotNil(t, werr)
		assert.Equal(t, CodeNoSavepoint, werr.Code)

		exec(t, s, sess, "commit")
		v, _ := s.Get(DefaultDatabase, "a")
		assert.Equal(t, "inner", v)
	})

	t.Run("repeated savepoint names resolve to the topmost", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		exec(t, s, sess, "begin")
		exec(t, s, sess, "kv.set", "a", 1)
		exec(t, s, sess, "savepoint", "sp")
		exec(t, s, sess, "kv.set", "a", 2)
		exec(t, s, sess, "savepoint", "sp")
		exec(t, s, sess, "kv.set", "a", 3)
		exec(t, s, sess, "rollback_to", "sp")

		assert.EqualValues(t, 2, exec(t, s, sess, "kv.get", "a"))
	})
}

func TestTransactionRules(t *testing.T) {
	t.Run("begin inside a transaction", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()
		exec(t, s, sess, "begin")

		_, werr := s.handle(sess, "begin", nil)
		require.NotNil(t, werr)
		assert.Equal(t, CodeTransactionOpen, werr.Code)
	})

	t.Run("savepoint without a transaction", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		_, werr := s.handle(sess, "savepoint", []any{"sp_1"})
		require.NotNil(t, werr)
		assert.Equal(t, CodeNoTransaction, werr.Code)
	})

	t.Run("commit and rollback without a transaction", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		_, werr := s.handle(sess, "commit", nil)
		require.NotNil(t, werr)
		assert.Equal(t, CodeNoTransaction, werr.Code)

		_, werr = s.handle(sess, "rollback", nil)
		require.NotNil(t, werr)
		assert.Equal(t, CodeNoTransaction, werr.Code)
	})

	t.Run("use inside a transaction", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()
		exec(t, s, sess, "begin")

		_, werr := s.handle(sess, "use", []any{"other"})
		require.NotNil(t, werr)
		assert.Equal(t, CodeTransactionOpen, werr.Code)
		assert.Equal(t, DefaultDatabase, sess.db)
	})
}

func TestSessionMethods(t *testing.T) {
	t.Run("use switches the keyspace", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		exec(t, s, sess, "use", "tenants")
		exec(t, s, sess, "kv.set", "k", "v")

		_, ok := s.Get(DefaultDatabase, "k")
		assert.False(t, ok)
		v, ok := s.Get("tenants", "k")
		require.True(t, ok)
		assert.Equal(t, "v", v)
	})

	t.Run("let vars unset", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		exec(t, s, sess, "let", "region", "eu-west")
		vars := exec(t, s, sess, "vars").(map[string]any)
		assert.Equal(t, "eu-west", vars["region"])

		exec(t, s, sess, "unset", "region")
		assert.Empty(t, sess.vars)
	})

	t.Run("kv.get on a missing key returns nothing", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()
		assert.Nil(t, exec(t, s, sess, "kv.get", "missing"))
	})

	t.Run("kv.del removes the key", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()
		s.Put(DefaultDatabase, "k", "v")

		exec(t, s, sess, "kv.del", "k")
		_, ok := s.Get(DefaultDatabase, "k")
		assert.False(t, ok)
	})

	t.Run("prepare assigns sequential names", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		assert.Equal(t, "stmt_0", exec(t, s, sess, "prepare", "SELECT 1"))
		assert.Equal(t, "stmt_1", exec(t, s, sess, "prepare", "SELECT 2"))
		assert.Len(t, sess.prepared, 2)

		exec(t, s, sess, "deallocate_all")
		assert.Empty(t, sess.prepared)
	})

	t.Run("unknown method", func(t *testing.T) {
		s, sess := NewServer("127.0.0.1:0"), newSession()

		_, werr := s.handle(sess, "explode", nil)
		require.NotNil(t, werr)
		assert.Equal(t, CodeMethodNotFound, werr.Code)
	})
}

func TestFailureProbability(t *testing.T) {
	assert.False(t, shouldTriggerFailure(0))
	assert.True(t, shouldTriggerFailure(1))

	hits := 0
	for i := 0; i < 100; i++ {
		if shouldTriggerFailure(0.5) {
			hits++
		}
	}
	assert.Greater(t, hits, 0)
	assert.Less(t, hits, 100)
}
