// Package sink forwards readings to the remote cloud message sink with
// best-effort delivery: bounded retries with exponential backoff, an
// in-memory pending queue, and a background drain loop.
package sink

import "context"

// Conn is one established session to the remote sink.
type Conn interface {
	// Publish sends one JSON-encoded reading. The context bounds the
	// attempt.
	Publish(ctx context.Context, payload []byte) error

	// Close tears the session down.
	Close() error
}

// Dialer establishes a new session to the sink. The Manager owns the
// reconnect policy, so implementations should not auto-reconnect.
type Dialer func(ctx context.Context) (Conn, error)
