package rpcdb

import (
	"strconv"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Request represents an outgoing RPC request frame.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method,omitempty"`
	Params []any  `json:"params,omitempty"`
}

// Response represents an incoming RPC response frame.
type Response[T any] struct {
	// ID is the ID of the request this response corresponds to.
	ID     string     `json:"id"`
	Error  *WireError `json:"error,omitempty"`
	Result *T         `json:"result,omitempty"`
}

// WireError is the protocol's error shape: a numeric code plus a message,
// carried in the error field of a response frame.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *WireError) Error() string {
	return e.Message
}

// protocol converts the wire shape into the backend-agnostic error kind.
// The numeric code is stringified so ProtocolError.Code has one type
// across backends.
func (e *WireError) protocol() *connection.ProtocolError {
	return &connection.ProtocolError{
		Code:    strconv.Itoa(e.Code),
		Message: e.Message,
	}
}

// Method names of the wire protocol. Session-state methods (use, let,
// begin, prepare and their companions) need a stateful transport; servers
// reject them over plain HTTP.
const (
	methodPing          = "ping"
	methodUse           = "use"
	methodLet           = "let"
	methodUnset         = "unset"
	methodBegin         = "begin"
	methodCommit        = "commit"
	methodRollback      = "rollback"
	methodSavepoint     = "savepoint"
	methodRelease       = "release"
	methodRollbackTo    = "rollback_to"
	methodPrepare       = "prepare"
	methodDeallocateAll = "deallocate_all"
	methodQuery         = "query"
)
