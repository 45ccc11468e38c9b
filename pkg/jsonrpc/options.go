package jsonrpc

import (
	"net/http"
	"time"
)

// Options tunes a Conn. Zero values are replaced by defaults.
type Options struct {
	// HandshakeTimeout bounds the WebSocket opening handshake in Dial.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration
	// PingInterval enables keepalive pings; zero disables them. The peer is
	// considered dead when nothing, not even a pong, arrives within two
	// intervals.
	PingInterval time.Duration
	// Header is sent with the opening handshake (e.g. Origin).
	Header http.Header
	// Handler serves requests initiated by the remote peer.
	Handler HandlerFunc
}

// Option configures Options.
type Option func(*Options)

// WithHandshakeTimeout sets the opening handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Options) { o.HandshakeTimeout = d }
}

// WithWriteTimeout sets the per-frame write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) { o.WriteTimeout = d }
}

// WithPingInterval enables keepalive pings every d.
func WithPingInterval(d time.Duration) Option {
	return func(o *Options) { o.PingInterval = d }
}

// WithHeader sets the handshake headers.
func WithHeader(h http.Header) Option {
	return func(o *Options) { o.Header = h }
}

// WithHandler installs a handler for requests sent by the remote peer.
func WithHandler(h HandlerFunc) Option {
	return func(o *Options) { o.Handler = h }
}

func newOptions(opts []Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = 5 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}
