package rpcdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/fxamacker/cbor/v2"

	"github.com/dbwire/dbwire.go/internal/codec"
	"github.com/dbwire/dbwire.go/pkg/connection"
)

// httpTransport speaks the protocol over one POST per request. Each
// exchange is its own server-side session, which is why session-bound
// methods only work over the WebSocket transport.
type httpTransport struct {
	baseURL     string
	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler

	client *http.Client
}

func newHTTPTransport(config *connection.Config) *httpTransport {
	return &httpTransport{
		baseURL:     config.BaseURL,
		marshaler:   config.Marshaler,
		unmarshaler: config.Unmarshaler,
		client:      &http.Client{Timeout: config.Timeout},
	}
}

func (t *httpTransport) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}

func (t *httpTransport) Close(ctx context.Context) error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *httpTransport) RoundTrip(ctx context.Context, r *Request) (*Response[cbor.RawMessage], error) {
	body, err := t.marshaler.Marshal(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/cbor")
	req.Header.Set("Content-Type", "application/cbor")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var res Response[cbor.RawMessage]
	if err := t.unmarshaler.Unmarshal(data, &res); err != nil {
		// Error statuses carry a response frame too; a body we cannot
		// decode at all is reported with whatever the server said.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("server returned %s: %s", resp.Status, data)
		}
		return nil, err
	}

	return &res, nil
}
