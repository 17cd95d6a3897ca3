package fakedb

import (
	"fmt"

	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

func wireErr(code int, format string, args ...any) *rpcdb.WireError {
	return &rpcdb.WireError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// handle executes one request against a session. Callers hold s.mu.
func (s *Server) handle(sess *session, method string, params []any) (any, *rpcdb.WireError) {
	switch method {
	case "ping":
		return nil, nil

	case "use":
		return s.applyUse(sess, params)

	case "let":
		if len(params) < 2 {
			return nil, wireErr(CodeInvalidParams, "let: key and value required")
		}
		key, ok := params[0].(string)
		if !ok {
			return nil, wireErr(CodeInvalidParams, "let: key must be a string")
		}
		sess.vars[key] = params[1]
		return nil, nil

	case "unset":
		if len(params) < 1 {
			return nil, wireErr(CodeInvalidParams, "unset: key required")
		}
		key, ok := params[0].(string)
		if !ok {
			return nil, wireErr(CodeInvalidParams, "unset: key must be a string")
		}
		delete(sess.vars, key)
		return nil, nil

	case "vars":
		return sess.vars, nil

	case "begin":
		if sess.inTx() {
			return nil, wireErr(CodeTransactionOpen, "transaction already open")
		}
		s.pushSnapshot(sess, "")
		return nil, nil

	case "savepoint":
		name, werr := savepointName(method, params)
		if werr != nil {
			return nil, werr
		}
		if !sess.inTx() {
			return nil, wireErr(CodeNoTransaction, "savepoint: no transaction open")
		}
		s.pushSnapshot(sess, name)
		return nil, nil

	case "commit":
		if !sess.inTx() {
			return nil, wireErr(CodeNoTransaction, "commit: no transaction open")
		}
		sess.snapshots, sess.names = nil, nil
		return nil, nil

	case "release":
		name, werr := savepointName(method, params)
		if werr != nil {
			return nil, werr
		}
		i, ok := topmostSavepoint(sess, name)
		if !ok {
			return nil, wireErr(CodeNoSavepoint, "release: no savepoint %q", name)
		}
		sess.snapshots = sess.snapshots[:i]
		sess.names = sess.names[:i]
		return nil, nil

	case "rollback":
		if !sess.inTx() {
			return nil, wireErr(CodeNoTransaction, "rollback: no transaction open")
		}
		s.store[sess.db] = sess.snapshots[0]
		sess.snapshots, sess.names = nil, nil
		return nil, nil

	case "rollback_to":
		name, werr := savepointName(method, params)
		if werr != nil {
			return nil, werr
		}
		i, ok := topmostSavepoint(sess, name)
		if !ok {
			return nil, wireErr(CodeNoSavepoint, "rollback_to: no savepoint %q", name)
		}
		s.store[sess.db] = sess.snapshots[i]
		sess.snapshots = sess.snapshots[:i]
		sess.names = sess.names[:i]
		return nil, nil

	case "prepare":
		if len(params) < 1 {
			return nil, wireErr(CodeInvalidParams, "prepare: statement required")
		}
		stmt, ok := params[0].(string)
		if !ok {
			return nil, wireErr(CodeInvalidParams, "prepare: statement must be a string")
		}
		name := fmt.Sprintf("stmt_%d", sess.stmtSeq)
		sess.stmtSeq++
		sess.prepared[name] = stmt
		return name, nil

	case "deallocate_all":
		sess.prepared = make(map[string]string)
		return nil, nil

	case "query":
		return defaultQueryResult(params), nil

	case "kv.set", "kv.get", "kv.del":
		return s.applyKV(sess, method, params)

	default:
		return nil, wireErr(CodeMethodNotFound, "method %q not found", method)
	}
}

func (s *Server) applyUse(sess *session, params []any) (any, *rpcdb.WireError) {
	if len(params) < 1 {
		return nil, wireErr(CodeInvalidParams, "use: database name required")
	}
	db, ok := params[0].(string)
	if !ok {
		return nil, wireErr(CodeInvalidParams, "use: database name must be a string")
	}
	if sess.inTx() {
		return nil, wireErr(CodeTransactionOpen, "use: cannot switch database inside a transaction")
	}
	sess.db = db
	return nil, nil
}

// applyKV executes one kv operation against the session's live keyspace.
// Inside a transaction the writes land on the live map, whose
// pre-transaction content sits safely in the snapshot stack. Callers
// hold s.mu.
func (s *Server) applyKV(sess *session, method string, params []any) (any, *rpcdb.WireError) {
	if len(params) < 1 {
		return nil, wireErr(CodeInvalidParams, "%s: key required", method)
	}
	key, ok := params[0].(string)
	if !ok {
		return nil, wireErr(CodeInvalidParams, "%s: key must be a string", method)
	}
	ks := s.keyspaceLocked(sess.db)

	switch method {
	case "kv.set":
		if len(params) < 2 {
			return nil, wireErr(CodeInvalidParams, "kv.set: value required")
		}
		ks[key] = params[1]
		return nil, nil
	case "kv.get":
		return ks[key], nil
	default: // kv.del
		delete(ks, key)
		return nil, nil
	}
}

// pushSnapshot copies the session's live keyspace onto its snapshot
// stack. Callers hold s.mu.
func (s *Server) pushSnapshot(sess *session, name string) {
	live := s.keyspaceLocked(sess.db)
	snap := make(map[string]any, len(live))
	for k, v := range live {
		snap[k] = v
	}
	sess.snapshots = append(sess.snapshots, snap)
	sess.names = append(sess.names, name)
}

// topmostSavepoint finds the highest stack index carrying name.
func topmostSavepoint(sess *session, name string) (int, bool) {
	for i := len(sess.names) - 1; i >= 0; i-- {
		if sess.names[i] == name && sess.names[i] != "" {
			return i, true
		}
	}
	return 0, false
}

func savepointName(method string, params []any) (string, *rpcdb.WireError) {
	if len(params) < 1 {
		return "", wireErr(CodeInvalidParams, "%s: savepoint name required", method)
	}
	name, ok := params[0].(string)
	if !ok || name == "" {
		return "", wireErr(CodeInvalidParams, "%s: savepoint name must be a non-empty string", method)
	}
	return name, nil
}
