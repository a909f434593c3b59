// Package delivery carries alerts to the emergency backend and responder
// events back.
package delivery

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHeader sets request headers sent on dial, typically authentication.
func WithHeader(h http.Header) Option {
	return func(c *Client) {
		if h != nil {
			c.header = h
		}
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithIdleTimeout bounds how long a silent connection is kept before the
// read pump drops it.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
