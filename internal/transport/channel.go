// SPDX-License-Identifier: MIT

package transport

import "context"

// State is the lifecycle state of a duplex channel.
type State string

const (
	StateClosed     State = "closed"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosing    State = "closing"
)

// Delegate receives channel lifecycle and data callbacks. Callbacks are
// delivered sequentially from the channel's reader; implementations must
// not block for long.
type Delegate interface {
	// OnConnect fires once per successful open.
	OnConnect()
	// OnMessage delivers one received frame.
	OnMessage(data []byte)
	// OnDisconnect fires when the connection is lost or closed. retryOK is
	// false when the close was locally requested.
	OnDisconnect(code CloseCode, retryOK bool)
}

// Channel is the duplex socket the session core depends on. The core only
// requires frame sends, a lifecycle state, and the delegate callbacks.
type Channel interface {
	// Connect opens the channel to the given URL. Asynchronous: success is
	// signalled via Delegate.OnConnect, failure via Delegate.OnDisconnect.
	Connect(ctx context.Context, url string) error
	// Send writes one frame. Returns an error if the channel is not open.
	Send(data []byte) error
	// State returns the current lifecycle state.
	State() State
	// Close requests an orderly shutdown.
	Close() error
}
