// Package fakedb provides an in-process fake server speaking the dbwire
// RPC protocol, for tests that need a real wire without a real database.
//
// The server keeps a per-database key-value store and gives each
// WebSocket session real transaction semantics over it: begin snapshots
// the session's keyspace, savepoints stack further snapshots, rollback
// restores them. That makes commit/rollback observable from tests
// instead of stubbed.
//
// The same listener also answers plain HTTP: GET /health for the health
// check and POST /rpc for one-shot requests. HTTP requests carry no
// session, so session-bound methods are rejected there.
//
// Failure injection is available per stub or globally: request delays,
// dropped connections and partial response writes, each with a
// probability, for exercising contamination paths in clients.
package fakedb

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lxzan/gws"

	"github.com/dbwire/dbwire.go/internal/codec"
	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

// DefaultDatabase is the keyspace a session starts on before any use call.
const DefaultDatabase = "main"

// Protocol error codes the fake server emits.
const (
	CodeParse           = -32700
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternal        = -32603
	CodeNoTransaction   = -32001
	CodeTransactionOpen = -32002
	CodeNoSavepoint     = -32003
	CodeStateless       = -32010
)

// FailureType selects a failure to inject while processing a request.
type FailureType string

const (
	FailureNone FailureType = "none"
	// FailureRequestDelay sleeps before processing the request.
	FailureRequestDelay FailureType = "request_delay"
	// FailureDropConnection closes the underlying network connection
	// without a close frame.
	FailureDropConnection FailureType = "drop_connection"
	// FailurePartialMessage writes only half of the response frame.
	FailurePartialMessage FailureType = "partial_message"
)

// FailureConfig defines how and when to inject one failure type.
type FailureConfig struct {
	Type FailureType
	// Probability of triggering this failure, 0.0 to 1.0.
	Probability float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// RequestMatcher defines criteria for matching incoming requests:
// a method name, optionally narrowed by a parameter predicate.
type RequestMatcher struct {
	Method string
	// Matcher, when non-nil, further narrows matches by the request
	// parameters.
	Matcher func(params []any) bool
}

// StubResponse is a pre-configured response for matching requests.
// Stubs take precedence over the built-in handlers, so tests can make
// any method answer anything, or fail any way they need.
type StubResponse struct {
	Matcher RequestMatcher
	// Result is the successful payload to return (mutually exclusive
	// with Error).
	Result any
	// Error is the wire error to return.
	Error *rpcdb.WireError
	// Failures are injected while serving this stub.
	Failures []FailureConfig
}

// MatchMethod creates a RequestMatcher that matches by method name only.
func MatchMethod(method string) RequestMatcher {
	return RequestMatcher{Method: method}
}

// MatchMethodWithParams narrows a method match with a parameter predicate.
func MatchMethodWithParams(method string, matcher func(params []any) bool) RequestMatcher {
	return RequestMatcher{Method: method, Matcher: matcher}
}

// SimpleStubResponse creates a stub that answers method with response.
func SimpleStubResponse(method string, response any) StubResponse {
	return StubResponse{Matcher: MatchMethod(method), Result: response}
}

// ErrorStubResponse creates a stub that answers method with a wire error.
func ErrorStubResponse(method string, code int, message string) StubResponse {
	return StubResponse{
		Matcher: MatchMethod(method),
		Error:   &rpcdb.WireError{Code: code, Message: message},
	}
}

// session is the per-WebSocket-connection state.
type session struct {
	db   string
	vars map[string]any

	// snapshots holds one copy of the session's keyspace per open
	// transaction level; index 0 belongs to begin, the rest to
	// savepoints. names runs parallel, "" for the begin level.
	snapshots []map[string]any
	names     []string

	prepared map[string]string
	stmtSeq  int
}

func newSession() *session {
	return &session{
		db:       DefaultDatabase,
		vars:     make(map[string]any),
		prepared: make(map[string]string),
	}
}

func (s *session) inTx() bool {
	return len(s.snapshots) > 0
}

// Server is the fake wire server.
type Server struct {
	addr     string
	listener net.Listener
	httpSrv  *http.Server
	upgrader *gws.Upgrader

	mu             sync.RWMutex
	store          map[string]map[string]any
	sessions       map[*gws.Conn]*session
	stubResponses  []StubResponse
	globalFailures []FailureConfig

	ctx    context.Context
	cancel context.CancelFunc

	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
}

// NewServer creates a fake server. Use "127.0.0.1:0" to bind a random
// free port; read it back with Address after Start.
func NewServer(addr string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	c := codec.NewCBOR()

	s := &Server{
		addr:        addr,
		store:       make(map[string]map[string]any),
		sessions:    make(map[*gws.Conn]*session),
		ctx:         ctx,
		cancel:      cancel,
		marshaler:   c,
		unmarshaler: c,
	}

	s.upgrader = gws.NewUpgrader(&handler{server: s}, &gws.ServerOption{})

	return s
}

// AddStubResponse registers a stub. Stubs are matched in registration
// order and take precedence over the built-in handlers.
func (s *Server) AddStubResponse(stub StubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubResponses = append(s.stubResponses, stub)
}

// SetGlobalFailures sets failures applied to every request, checked
// before any stub-specific ones.
func (s *Server) SetGlobalFailures(failures []FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalFailures = failures
}

// Put writes directly into a keyspace, bypassing the protocol. For test
// arrangement.
func (s *Server) Put(db, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyspaceLocked(db)[key] = value
}

// Get reads directly from a keyspace, bypassing the protocol. For test
// assertions about what really got committed.
func (s *Server) Get(db, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks, ok := s.store[db]
	if !ok {
		return nil, false
	}
	v, ok := ks[key]
	return v, ok
}

// Start binds the listener and begins serving WebSocket upgrades and
// plain HTTP on it.
func (s *Server) Start() error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	s.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			log.Printf("fakedb: server error: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down, dropping every open connection.
func (s *Server) Stop() error {
	s.cancel()
	if s.httpSrv != nil {
		return s.httpSrv.Close()
	}
	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleRPC serves both transports on one path: requests carrying an
// upgrade header become WebSocket sessions, plain POSTs are answered
// statelessly.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		socket, err := s.upgrader.Upgrade(w, r)
		if err != nil {
			log.Printf("fakedb: upgrade failed: %v", err)
			return
		}
		go socket.ReadLoop()
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req rpcdb.Request
	if err := s.unmarshaler.Unmarshal(body, &req); err != nil {
		s.writeHTTPError(w, "", CodeParse, "parse error")
		return
	}

	s.serveStateless(w, &req)
}

// serveStateless answers one HTTP request. There is no session to hold
// state in, so only the stateless subset of the protocol works here.
func (s *Server) serveStateless(w http.ResponseWriter, req *rpcdb.Request) {
	if stub := s.matchStub(req); stub != nil {
		if stub.Error != nil {
			s.writeHTTPError(w, req.ID, stub.Error.Code, stub.Error.Message)
		} else {
			s.writeHTTPResult(w, req.ID, stub.Result)
		}
		return
	}

	switch req.Method {
	case "ping":
		s.writeHTTPResult(w, req.ID, nil)
	case "query":
		s.writeHTTPResult(w, req.ID, defaultQueryResult(req.Params))
	case "kv.set", "kv.get", "kv.del":
		s.mu.Lock()
		result, werr := s.applyKV(newSession(), req.Method, req.Params)
		s.mu.Unlock()
		if werr != nil {
			s.writeHTTPError(w, req.ID, werr.Code, werr.Message)
			return
		}
		s.writeHTTPResult(w, req.ID, result)
	case "use", "let", "unset", "vars", "begin", "commit", "rollback",
		"savepoint", "release", "rollback_to", "prepare", "deallocate_all":
		s.writeHTTPError(w, req.ID, CodeStateless, fmt.Sprintf("method %q requires a stateful session", req.Method))
	default:
		s.writeHTTPError(w, req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (s *Server) writeHTTPResult(w http.ResponseWriter, id string, result any) {
	res := rpcdb.Response[any]{ID: id, Result: &result}
	data, err := s.marshaler.Marshal(res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	if _, err := w.Write(data); err != nil {
		log.Printf("fakedb: writing response: %v", err)
	}
}

func (s *Server) writeHTTPError(w http.ResponseWriter, id string, code int, message string) {
	res := rpcdb.Response[any]{ID: id, Error: &rpcdb.WireError{Code: code, Message: message}}
	data, err := s.marshaler.Marshal(res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(http.StatusBadRequest)
	if _, err := w.Write(data); err != nil {
		log.Printf("fakedb: writing error response: %v", err)
	}
}

func (s *Server) matchStub(req *rpcdb.Request) *StubResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.stubResponses {
		stub := &s.stubResponses[i]
		if stub.Matcher.Method != req.Method {
			continue
		}
		if stub.Matcher.Matcher == nil || stub.Matcher.Matcher(req.Params) {
			return stub
		}
	}
	return nil
}

// keyspaceLocked returns the live keyspace for db, creating it on first
// touch. Callers hold s.mu.
func (s *Server) keyspaceLocked(db string) map[string]any {
	ks, ok := s.store[db]
	if !ok {
		ks = make(map[string]any)
		s.store[db] = ks
	}
	return ks
}

func defaultQueryResult(params []any) map[string]any {
	return map[string]any{
		"status": "OK",
		"params": params,
	}
}

func cryptoRandInt64(rMax int64) int64 {
	if rMax <= 0 {
		return 0
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(rMax))
	return n.Int64()
}

func cryptoRandFloat64() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(1<<53))
	return float64(n.Int64()) / float64(1<<53)
}

func shouldTriggerFailure(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1 {
		return true
	}
	return cryptoRandFloat64() < probability
}

func randomDuration(dMin, dMax time.Duration) time.Duration {
	if dMin >= dMax {
		return dMin
	}
	return dMin + time.Duration(cryptoRandInt64(int64(dMax-dMin)))
}
