package connection

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/dbwire/dbwire.go/internal/codec"
	"github.com/dbwire/dbwire.go/pkg/constants"
	"github.com/dbwire/dbwire.go/pkg/logger"
)

// Config carries everything a backend needs to build its ConnectOptions:
// the parsed endpoint, the codec pair for wire payloads, a logger, and
// the per-request timeout. Backends that speak a textual protocol ignore
// the codec fields.
type Config struct {
	// URL is the parsed connection URL, including any query options the
	// backend understands.
	URL url.URL

	// BaseURL is the scheme://host portion of URL, precomputed because
	// transports dial it repeatedly.
	BaseURL string

	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	Logger logger.Logger

	// Timeout bounds each round-trip after the request has been written.
	// Zero disables the internal timer; use context deadlines instead.
	Timeout time.Duration
}

// NewConfig creates a Config for the endpoint specified by the URL with
// the default CBOR codec, a text logger on stdout, and the default
// timeout. It is not strictly necessary to build a Config through this
// function, but it ensures every field a connection needs is populated.
func NewConfig(u *url.URL) *Config {
	c := codec.NewCBOR()
	return &Config{
		URL:         *u,
		BaseURL:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		Marshaler:   c,
		Unmarshaler: c,
		Logger:      logger.New(slog.NewTextHandler(os.Stdout, nil)),
		Timeout:     constants.DefaultWSTimeout,
	}
}
