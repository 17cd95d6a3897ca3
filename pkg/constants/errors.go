package constants

import "errors"

var (
	ErrIDInUse            = errors.New("id already in use")
	ErrNoBaseURL          = errors.New("base url not set")
	ErrNoMarshaler        = errors.New("marshaler is not set")
	ErrNoUnmarshaler      = errors.New("unmarshaler is not set")
	ErrMethodNotAvailable = errors.New("method not available on this connection")
)
