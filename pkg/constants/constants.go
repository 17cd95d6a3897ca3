package constants

import "time"

const (
	// RequestIDLength is the size of the id attached to each RPC request.
	RequestIDLength = 16

	// DefaultWSTimeout bounds how long a WebSocket round-trip waits for its
	// response after the request was written.
	DefaultWSTimeout = 30 * time.Second

	// DefaultHTTPTimeout bounds a whole HTTP request/response exchange.
	DefaultHTTPTimeout = 30 * time.Second
)

const (
	WebsocketScheme       = "ws"
	SecureWebsocketScheme = "wss"
	HTTPScheme            = "http"
	SecureHTTPScheme      = "https"
	PostgresScheme        = "postgres"
	PostgresAltScheme     = "postgresql"
	RedisScheme           = "redis"
	SecureRedisScheme     = "rediss"
)
