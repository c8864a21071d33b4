// Package gateway owns the client side of the session protocol: one
// persistent WebSocket connection to the agent gateway, heartbeat, bounded
// reconnection, envelope dispatch, and the tool-call correlation table.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openclaw/cockpit/internal/logging"
	"github.com/openclaw/cockpit/internal/protocol"
)

// ConnState tracks the connection lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed // retries exhausted; a manual Reconnect is required
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures the client. Zero values take the protocol defaults.
type Options struct {
	URL               string
	HeartbeatInterval time.Duration // default 30s
	ReconnectAttempts int           // default 3
	ReconnectBase     time.Duration // default 1s; delay is attempt * base
	CallTimeout       time.Duration // default 60s
	HandshakeTimeout  time.Duration // default 10s
}

func (o *Options) defaults() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 3
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
}

// Client manages the connection to the agent gateway. It holds no transcript
// state; all inbound events flow into the sink.
type Client struct {
	opts       Options
	dispatcher *Dispatcher
	calls      *Calls
	logger     *logging.Logger

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	state    ConnState
	explicit bool          // user called Disconnect; suppresses reconnection
	stop     chan struct{} // closed on teardown; cancels heartbeat
	onState  func(ConnState)
}

// NewClient creates a client feeding the given sink.
func NewClient(opts Options, sink protocol.EventSink, logger *logging.Logger) *Client {
	opts.defaults()
	c := &Client{
		opts:   opts,
		state:  StateDisconnected,
		logger: logger.WithComponent("gateway"),
	}
	c.calls = NewCalls(c.Send, opts.CallTimeout, logger)
	c.dispatcher = NewDispatcher(sink, c.calls, logger)
	return c
}

// Calls exposes the correlation table for out-of-band tool execution.
func (c *Client) Calls() *Calls {
	return c.calls
}

// OnStateChange registers a connection state observer.
func (c *Client) OnStateChange(fn func(ConnState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the channel is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	old := c.state
	c.state = s
	cb := c.onState
	c.mu.Unlock()

	if old != s {
		c.logger.ConnectionState(old.String(), s.String())
		if cb != nil {
			cb(s)
		}
	}
}

// Connect opens the connection. It returns once the channel reports open, or
// with the dial error on immediate failure.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.explicit = false
	c.mu.Unlock()

	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}
	c.adopt(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway dial %s: %w", c.opts.URL, err)
	}
	return conn, nil
}

// adopt installs a live connection and starts its read and heartbeat loops.
func (c *Client) adopt(conn *websocket.Conn) {
	stop := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.stop = stop
	c.mu.Unlock()

	c.setState(StateConnected)
	go c.readLoop(conn)
	go c.heartbeat(stop)
}

// Disconnect closes the connection cleanly. An explicit disconnect never
// triggers reconnection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.explicit = true
	conn := c.conn
	c.conn = nil
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn != nil {
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.setState(StateDisconnected)
}

// Reconnect is the manual retry after retries were exhausted.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.State() == StateConnected {
		return nil
	}
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	return c.Connect(ctx)
}

// Send writes an envelope to the gateway.
func (c *Client) Send(env protocol.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := env.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Chat starts a new turn.
func (c *Client) Chat(cmd protocol.ChatCommand) error {
	env, err := protocol.NewEnvelope(protocol.TypeChat, cmd)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// RequestStateRefresh asks the gateway to re-push the authoritative state.
func (c *Client) RequestStateRefresh() error {
	env, err := protocol.NewEnvelope(protocol.TypeStateRefresh, nil)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// heartbeat sends a ping at the configured interval while connected. There
// is no missed-pong accounting: a dead channel surfaces as a read error.
func (c *Client) heartbeat(stop chan struct{}) {
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			env, _ := protocol.NewEnvelope(protocol.TypePing, nil)
			if err := c.Send(env); err != nil {
				c.logger.Debug("heartbeat send failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

// readLoop pumps inbound frames into the dispatcher until the connection
// drops, then decides between clean shutdown and reconnection.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(conn, err)
			return
		}
		c.dispatcher.Dispatch(data)
	}
}

func (c *Client) handleReadError(conn *websocket.Conn, err error) {
	c.mu.Lock()
	// A stale loop from a connection we already replaced or closed.
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	explicit := c.explicit
	c.conn = nil
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	conn.Close()

	if explicit || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.setState(StateDisconnected)
		return
	}

	c.logger.Warn("connection lost", map[string]interface{}{"error": err.Error()})
	go c.reconnectLoop()
}

// reconnectLoop retries up to the configured bound with linearly increasing
// delay. Exhausting the bound parks the client in StateFailed until the user
// triggers a manual Reconnect.
func (c *Client) reconnectLoop() {
	c.setState(StateReconnecting)

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		time.Sleep(time.Duration(attempt) * c.opts.ReconnectBase)

		c.mu.Lock()
		if c.explicit {
			c.mu.Unlock()
			c.setState(StateDisconnected)
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.HandshakeTimeout)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.logger.Info("reconnected", map[string]interface{}{"attempt": attempt})
			c.adopt(conn)
			return
		}
		c.logger.Warn("reconnect attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
	}

	c.setState(StateFailed)
}
