package fakedb

import (
	"fmt"
	"log"
	"time"

	"github.com/lxzan/gws"

	"github.com/dbwire/dbwire.go/pkg/rpcdb"
)

// handler implements the gws event interface for WebSocket sessions.
type handler struct {
	server *Server
}

func (h *handler) OnOpen(socket *gws.Conn) {
	h.server.mu.Lock()
	h.server.sessions[socket] = newSession()
	h.server.mu.Unlock()
}

// OnClose drops the session and with it any open transaction: a
// transaction abandoned by a dying connection is simply discarded, its
// snapshots never applied.
func (h *handler) OnClose(socket *gws.Conn, _ error) {
	h.server.mu.Lock()
	delete(h.server.sessions, socket)
	h.server.mu.Unlock()
}

func (h *handler) OnPing(socket *gws.Conn, payload []byte) {
	if err := socket.WritePong(payload); err != nil {
		log.Printf("fakedb: writing pong: %v", err)
	}
}

func (h *handler) OnPong(*gws.Conn, []byte) {}

func (h *handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	h.server.mu.RLock()
	globalFailures := h.server.globalFailures
	h.server.mu.RUnlock()

	for _, failure := range globalFailures {
		if shouldTriggerFailure(failure.Probability) {
			if done := h.applyFailure(socket, failure, nil, nil); done {
				return
			}
		}
	}

	var req rpcdb.Request
	if err := h.server.unmarshaler.Unmarshal(message.Bytes(), &req); err != nil {
		h.sendError(socket, "", CodeParse, "parse error")
		return
	}

	if stub := h.server.matchStub(&req); stub != nil {
		for _, failure := range stub.Failures {
			if shouldTriggerFailure(failure.Probability) {
				if done := h.applyFailure(socket, failure, &req, stub); done {
					return
				}
			}
		}
		if stub.Error != nil {
			h.sendError(socket, req.ID, stub.Error.Code, stub.Error.Message)
		} else {
			h.sendResponse(socket, req.ID, stub.Result)
		}
		return
	}

	h.server.mu.Lock()
	sess := h.server.sessions[socket]
	if sess == nil {
		sess = newSession()
		h.server.sessions[socket] = sess
	}
	result, werr := h.server.handle(sess, req.Method, req.Params)
	h.server.mu.Unlock()

	if werr != nil {
		h.sendError(socket, req.ID, werr.Code, werr.Message)
		return
	}
	h.sendResponse(socket, req.ID, result)
}

// applyFailure injects one failure. It returns true when the request
// must not be processed further.
func (h *handler) applyFailure(socket *gws.Conn, failure FailureConfig, req *rpcdb.Request, stub *StubResponse) bool {
	switch failure.Type {
	case FailureRequestDelay:
		// Interruptible so a stopping server is not pinned down by its
		// own injected latency.
		select {
		case <-time.After(randomDuration(failure.MinDelay, failure.MaxDelay)):
		case <-h.server.ctx.Done():
			return true
		}
		return false

	case FailureDropConnection:
		if err := socket.NetConn().Close(); err != nil {
			log.Printf("fakedb: dropping connection: %v", err)
		}
		return true

	case FailurePartialMessage:
		if req == nil || stub == nil {
			return false
		}
		res := rpcdb.Response[any]{ID: req.ID, Result: &stub.Result}
		data, err := h.server.marshaler.Marshal(res)
		if err != nil {
			log.Printf("fakedb: marshaling partial message: %v", err)
			return true
		}
		if err := socket.WriteMessage(gws.OpcodeBinary, data[:len(data)/2]); err != nil {
			log.Printf("fakedb: writing partial message: %v", err)
		}
		return true
	}

	return false
}

func (h *handler) sendResponse(socket *gws.Conn, id string, result any) {
	res := rpcdb.Response[any]{ID: id, Result: &result}
	data, err := h.server.marshaler.Marshal(res)
	if err != nil {
		h.sendError(socket, id, CodeInternal, fmt.Sprintf("marshal response: %v", err))
		return
	}
	if err := socket.WriteMessage(gws.OpcodeBinary, data); err != nil {
		log.Printf("fakedb: writing response: %v", err)
	}
}

func (h *handler) sendError(socket *gws.Conn, id string, code int, message string) {
	res := rpcdb.Response[any]{ID: id, Error: &rpcdb.WireError{Code: code, Message: message}}
	data, err := h.server.marshaler.Marshal(res)
	if err != nil {
		log.Printf("fakedb: marshaling error response: %v", err)
		return
	}
	if err := socket.WriteMessage(gws.OpcodeBinary, data); err != nil {
		log.Printf("fakedb: writing error response: %v", err)
	}
}
