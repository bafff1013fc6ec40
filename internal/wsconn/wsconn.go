// Package wsconn provides a reconnecting WebSocket client used for
// venue market-data streams.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// MessageHandler is invoked for every inbound message.
type MessageHandler func(ctx context.Context, msg []byte)

// StateChangeHandler is invoked on every state transition. err is
// non-nil when the transition was caused by a failure.
type StateChangeHandler func(state State, err error)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string // label used in errors
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int           // 0 = infinite
	PingInterval   time.Duration // 0 disables pings
	MaxMessageSize int64         // 0 = library default
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// Client is a reconnecting WebSocket client.
type Client struct {
	config Config

	mu    sync.RWMutex
	state State
	conn  *websocket.Conn

	onMessage     MessageHandler
	onStateChange StateChangeHandler
	handlersMu    sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	readerWG  sync.WaitGroup
}

// New creates a new WebSocket client.
func New(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("wsconn: URL is required")
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 1 * time.Second
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}

	return &Client{
		config: config,
		state:  StateDisconnected,
		done:   make(chan struct{}),
	}, nil
}

// OnMessage registers the inbound message handler. Must be called
// before Connect.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlersMu.Lock()
	c.onMessage = h
	c.handlersMu.Unlock()
}

// OnStateChange registers the state transition handler. Must be called
// before Connect.
func (c *Client) OnStateChange(h StateChangeHandler) {
	c.handlersMu.Lock()
	c.onStateChange = h
	c.handlersMu.Unlock()
}

// Connect establishes the WebSocket connection and starts the reader
// goroutine. On later read failures the client reconnects with
// exponential backoff until Close is called or MaxReconnects is hit.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return fmt.Errorf("wsconn %s: connect: %w", c.config.Name, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected, nil)

	c.readerWG.Add(1)
	go c.readLoop(context.WithoutCancel(ctx))

	if c.config.PingInterval > 0 {
		go c.pingLoop(context.WithoutCancel(ctx))
	}

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}
	return conn, nil
}

// Send sends a raw message through the WebSocket.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if conn == nil || state != StateConnected {
		return fmt.Errorf("wsconn %s: not connected (state %s)", c.config.Name, state)
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wsconn %s: marshal: %w", c.config.Name, err)
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the connection is established.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "client closing")
		}
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.readerWG.Done()

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			if !c.reconnect(ctx, err) {
				return
			}
			continue
		}

		c.handlersMu.RLock()
		handler := c.onMessage
		c.handlersMu.RUnlock()
		if handler != nil {
			handler(ctx, data)
		}
	}
}

// reconnect dials with exponential backoff. Returns false when the
// client is closed or the reconnect budget is exhausted.
func (c *Client) reconnect(ctx context.Context, cause error) bool {
	c.setState(StateReconnecting, cause)

	backoff := c.config.InitialBackoff
	attempts := 0

	for {
		if c.config.MaxReconnects > 0 && attempts >= c.config.MaxReconnects {
			c.setState(StateDisconnected, fmt.Errorf("wsconn %s: reconnect budget exhausted: %w", c.config.Name, cause))
			return false
		}

		select {
		case <-c.done:
			return false
		case <-time.After(backoff):
		}

		conn, err := c.dial(ctx)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			c.setState(StateConnected, nil)
			return true
		}

		attempts++
		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			connected := c.state == StateConnected
			c.mu.RUnlock()

			if conn == nil || !connected {
				continue
			}

			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	// Closed is terminal.
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.handlersMu.RLock()
	handler := c.onStateChange
	c.handlersMu.RUnlock()
	if handler != nil {
		handler(state, err)
	}
}
