package wsconn

import (
	"net/http"
	"time"
)

const (
	defaultMaxReceiveChunk   = 65536
	defaultMaxMessageSize    = 65536
	defaultQueueSize         = 512
	defaultKeepaliveInterval = 20 * time.Second
	defaultKeepaliveTimeout  = 20 * time.Second
)

type config struct {
	httpClient        *http.Client
	maxReceiveChunk   int
	maxMessageSize    int64
	queueSize         int
	keepaliveInterval time.Duration
	keepaliveTimeout  time.Duration
	subprotocols      []string
	headers           http.Header
}

func defaultConfig() *config {
	return &config{
		maxReceiveChunk:   defaultMaxReceiveChunk,
		maxMessageSize:    defaultMaxMessageSize,
		queueSize:         defaultQueueSize,
		keepaliveInterval: defaultKeepaliveInterval,
		keepaliveTimeout:  defaultKeepaliveTimeout,
		headers:           http.Header{},
	}
}

// Option configures a Connect call. See WithHTTPClient, WithMaxMessageSize,
// WithQueueSize, WithKeepalive, WithSubprotocols, and WithHeaders.
type Option func(*config)

// WithHTTPClient supplies an *http.Client whose settings are applied to the
// upgrade dial: its cookie jar and, when its Transport is an
// *http.Transport, that transport's TLS config and proxy function. The
// client itself does not perform the request, and its other settings
// (custom RoundTrippers, Timeout, redirect policy) are not used. If
// omitted, Connect dials with the proxy taken from the environment and the
// default TLS config.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) { cfg.httpClient = c }
}

// WithMaxMessageSize bounds the size of a single decoded message. Frames
// that would exceed it cause the receive pump to close the session with a
// protocol NetworkError. The size of each underlying stream read is not
// affected; the connection reads with its own buffer.
func WithMaxMessageSize(n int64) Option {
	return func(cfg *config) {
		cfg.maxMessageSize = n
		if n > 0 && n < int64(cfg.maxReceiveChunk) {
			cfg.maxReceiveChunk = int(n)
		}
	}
}

// WithQueueSize sets the capacity of the bounded event queue. A full queue
// applies backpressure to the receive pump, and in turn to the peer.
func WithQueueSize(n int) Option {
	return func(cfg *config) { cfg.queueSize = n }
}

// WithKeepalive sets the ping interval and Pong deadline for the keepalive
// pump. Passing interval == 0 disables the keepalive pump entirely.
func WithKeepalive(interval, timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.keepaliveInterval = interval
		cfg.keepaliveTimeout = timeout
	}
}

// WithSubprotocols requests the given subprotocols via
// Sec-WebSocket-Protocol during the handshake.
func WithSubprotocols(protocols ...string) Option {
	return func(cfg *config) { cfg.subprotocols = protocols }
}

// WithHeaders adds extra headers to the upgrade request. Connection,
// Upgrade, Sec-WebSocket-Version, and Sec-WebSocket-Key are always set by
// Connect and cannot be overridden this way.
func WithHeaders(h http.Header) Option {
	return func(cfg *config) {
		for k, vs := range h {
			for _, v := range vs {
				cfg.headers.Add(k, v)
			}
		}
	}
}
