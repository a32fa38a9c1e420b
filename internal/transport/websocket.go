// SPDX-License-Identifier: MIT

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adobe/aepsdk-assurance-go/internal/log"
)

// ErrNotOpen is returned by Send when the channel is not in the open state.
var ErrNotOpen = errors.New("channel is not open")

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
)

// WebsocketChannel implements Channel over a websocket connection.
type WebsocketChannel struct {
	delegate Delegate
	dialer   *websocket.Dialer
	logger   zerolog.Logger

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	closeRequested bool
}

// NewWebsocketChannel builds a channel delivering callbacks to delegate.
func NewWebsocketChannel(delegate Delegate) *WebsocketChannel {
	return &WebsocketChannel{
		delegate: delegate,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger: log.WithComponent("transport"),
		state:  StateClosed,
	}
}

// Connect dials the URL asynchronously. The result arrives on the delegate.
func (c *WebsocketChannel) Connect(ctx context.Context, url string) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return fmt.Errorf("connect: channel already %s", c.state)
	}
	c.state = StateConnecting
	c.closeRequested = false
	c.mu.Unlock()

	go c.dial(ctx, url)
	return nil
}

func (c *WebsocketChannel) dial(ctx context.Context, url string) {
	conn, resp, err := c.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("websocket dial failed")
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.delegate.OnDisconnect(CloseAbnormal, true)
		return
	}

	c.mu.Lock()
	if c.closeRequested {
		c.mu.Unlock()
		_ = conn.Close()
		c.delegate.OnDisconnect(CloseNormal, false)
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	c.delegate.OnConnect()
	c.readLoop(conn)
}

func (c *WebsocketChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		c.delegate.OnMessage(data)
	}
}

func (c *WebsocketChannel) finish(err error) {
	c.mu.Lock()
	requested := c.closeRequested
	c.state = StateClosed
	c.conn = nil
	c.mu.Unlock()

	code := CloseAbnormal
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = CloseCode(closeErr.Code)
	}
	if requested {
		code = CloseNormal
	}

	c.logger.Info().
		Str(log.FieldCloseCode, code.String()).
		Bool("requested", requested).
		Msg("websocket closed")
	c.delegate.OnDisconnect(code, !requested)
}

// Send writes one text frame. Fails when the channel is not open.
func (c *WebsocketChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen || c.conn == nil {
		return ErrNotOpen
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// State returns the current lifecycle state.
func (c *WebsocketChannel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close requests an orderly shutdown. The disconnect callback still fires,
// with retryOK false.
func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	c.closeRequested = true
	conn := c.conn
	if c.state == StateOpen {
		c.state = StateClosing
	}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return conn.Close()
}

var _ Channel = (*WebsocketChannel)(nil)
