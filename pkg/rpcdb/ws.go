package rpcdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	gorilla "github.com/gorilla/websocket"

	"github.com/dbwire/dbwire.go/internal/codec"
	"github.com/dbwire/dbwire.go/pkg/connection"
	"github.com/dbwire/dbwire.go/pkg/constants"
	"github.com/dbwire/dbwire.go/pkg/logger"
)

// DefaultDialer is the gorilla dialer used by the WebSocket transport.
//
// It is the stock gorilla dialer with compression enabled and the cbor
// subprotocol announced.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
	Subprotocols:      []string{"cbor"},
}

type wsTransport struct {
	baseURL     string
	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
	logger      logger.Logger

	// timeout bounds each round-trip after the request has been written.
	// Zero disables the internal timer in favor of context deadlines.
	timeout time.Duration

	conn *gorilla.Conn
	// connLock ensures conn is non-nil when we read or write it. It is
	// held only around individual operations, never across a whole
	// exchange, so a blocked peer cannot wedge unrelated calls.
	connLock sync.Mutex

	// respChans holds one channel per in-flight request id. Channels are
	// buffered with capacity 1 so a response arriving after its waiter
	// gave up is dropped instead of wedging the read loop.
	respChans map[string]chan *Response[cbor.RawMessage]
	respLock  sync.RWMutex

	// closeCh signals that the connection is going away. It stops the
	// read loop and fails round-trips waiting for responses.
	closeCh  chan struct{}
	closeErr error
	closed   bool
	closeMu  sync.Mutex
}

func newWSTransport(config *connection.Config) *wsTransport {
	return &wsTransport{
		baseURL:     config.BaseURL,
		marshaler:   config.Marshaler,
		unmarshaler: config.Unmarshaler,
		logger:      config.Logger,
		timeout:     config.Timeout,
		respChans:   make(map[string]chan *Response[cbor.RawMessage]),
		closeCh:     make(chan struct{}),
	}
}

func (t *wsTransport) Connect(ctx context.Context) error {
	conn, res, err := DefaultDialer.DialContext(ctx, fmt.Sprintf("%s/rpc", t.baseURL), nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	t.connLock.Lock()
	t.conn = conn
	t.connLock.Unlock()

	go t.readLoop()

	return nil
}

// Close writes a close frame so the server can end the session cleanly,
// then tears the socket down. Local teardown happens even when the close
// frame cannot be written. A context deadline, when present, bounds the
// close-frame write.
func (t *wsTransport) Close(ctx context.Context) error {
	t.closeWithError(nil)

	t.connLock.Lock()
	defer t.connLock.Unlock()

	conn := t.conn
	t.conn = nil
	if conn == nil {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			t.logger.Error("failed to set write deadline for close message", "error", err)
		}
	}

	msg := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")
	if err := conn.WriteMessage(gorilla.CloseMessage, msg); err != nil {
		// Not fatal: the server misses the clean goodbye, but local
		// resources are still released below.
		t.logger.Error("failed to write close message", "error", err)
	}

	return conn.Close()
}

func (t *wsTransport) RoundTrip(ctx context.Context, req *Request) (*Response[cbor.RawMessage], error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	select {
	case <-t.closeCh:
		return nil, t.closeError()
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ch, err := t.createResponseChannel(req.ID)
	if err != nil {
		return nil, err
	}
	defer t.removeResponseChannel(req.ID)

	if err := t.write(req); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closeCh:
		return nil, t.closeError()
	case res := <-ch:
		return res, nil
	}
}

func (t *wsTransport) write(v any) error {
	data, err := t.marshaler.Marshal(v)
	if err != nil {
		return err
	}

	t.connLock.Lock()
	defer t.connLock.Unlock()

	if t.conn == nil {
		return connection.ErrClosed
	}

	err = t.conn.WriteMessage(gorilla.BinaryMessage, data)
	if errors.Is(err, gorilla.ErrCloseSent) {
		// The peer initiated a close; transition so later calls fail
		// fast instead of writing into a dying socket.
		t.closeWithError(err)
	}
	return err
}

// readLoop pulls frames off the socket until the connection dies. Any
// read error is terminal: gorilla returns errors permanently once the
// connection breaks, so retrying would spin. The conn is captured once
// because Close nils the field while the loop may still be draining.
func (t *wsTransport) readLoop() {
	t.connLock.Lock()
	conn := t.conn
	t.connLock.Unlock()
	if conn == nil {
		return
	}

	for {
		select {
		case <-t.closeCh:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				t.closeWithError(net.ErrClosed)
			} else {
				t.closeWithError(err)
			}
			return
		}

		t.dispatch(data)
	}
}

// dispatch routes one response frame to the round-trip waiting on its id.
// Frames nobody waits for are logged and dropped; the buffered channel
// means delivery never blocks the loop.
func (t *wsTransport) dispatch(data []byte) {
	var res Response[cbor.RawMessage]
	if err := t.unmarshaler.Unmarshal(data, &res); err != nil {
		t.logger.Error("dropping undecodable frame", "error", err)
		return
	}

	if res.ID == "" {
		t.logger.Error("dropping response without an id", "error", fmt.Sprint(res.Error))
		return
	}

	ch, ok := t.getResponseChannel(res.ID)
	if !ok {
		t.logger.Error("no round-trip waiting for response", "id", res.ID)
		return
	}

	select {
	case ch <- &res:
	default:
		t.logger.Error("duplicate response dropped", "id", res.ID)
	}
}

func (t *wsTransport) createResponseChannel(id string) (chan *Response[cbor.RawMessage], error) {
	t.respLock.Lock()
	defer t.respLock.Unlock()

	if _, ok := t.respChans[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	ch := make(chan *Response[cbor.RawMessage], 1)
	t.respChans[id] = ch
	return ch, nil
}

func (t *wsTransport) getResponseChannel(id string) (chan *Response[cbor.RawMessage], bool) {
	t.respLock.RLock()
	defer t.respLock.RUnlock()
	ch, ok := t.respChans[id]
	return ch, ok
}

func (t *wsTransport) removeResponseChannel(id string) {
	t.respLock.Lock()
	defer t.respLock.Unlock()
	delete(t.respChans, id)
}

func (t *wsTransport) closeWithError(err error) {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.closeErr = err
	close(t.closeCh)
}

func (t *wsTransport) closeError() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()

	if t.closeErr != nil {
		return fmt.Errorf("%w: %v", connection.ErrClosed, t.closeErr)
	}
	return connection.ErrClosed
}
