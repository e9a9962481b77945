package netclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nightswarm/internal/protocol"
	"nightswarm/internal/telemetry"
)

var (
	// ErrConnectTimeout means no role assignment arrived within the bounded
	// wait.
	ErrConnectTimeout = errors.New("netclient: timed out waiting for role assignment")
	// ErrRosterFull means the relay rejected the connection before role
	// assignment.
	ErrRosterFull = errors.New("netclient: relay roster is full")
	// ErrConnectionClosed means the transport failed before role assignment.
	ErrConnectionClosed = errors.New("netclient: connection closed before role assignment")
)

// Config tunes the connection client.
type Config struct {
	RoleWait  time.Duration
	WriteWait time.Duration
}

// DefaultConfig uses the same write deadline as the relay.
func DefaultConfig() Config {
	return Config{RoleWait: 5 * time.Second, WriteWait: 10 * time.Second}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RoleWait <= 0 {
		c.RoleWait = d.RoleWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	return c
}

// Client wraps one relay connection. Send is fire-and-forget; received
// frames are dispatched to every registered handler in registration order.
// The initial role frame is consumed internally and never dispatched.
type Client struct {
	cfg    Config
	conn   *websocket.Conn
	logger telemetry.Logger

	role string
	slot int

	writeMu sync.Mutex

	handlerMu sync.Mutex
	handlers  []func(protocol.Message)

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to a relay and blocks until the role assignment arrives.
// Fails with ErrConnectTimeout, ErrRosterFull, or ErrConnectionClosed when
// the role never resolves; transport-level dial errors pass through wrapped.
func Dial(ctx context.Context, url string, cfg Config, logger telemetry.Logger) (*Client, error) {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	cfg = cfg.withDefaults()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("netclient: dial %s: %w", url, err)
	}

	conn.SetReadDeadline(time.Now().Add(cfg.RoleWait))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrConnectTimeout
		}
		return nil, ErrConnectionClosed
	}

	msg, err := protocol.Decode(payload)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("netclient: malformed role frame: %w", err)
	}

	var role protocol.RoleMessage
	switch m := msg.(type) {
	case protocol.RoleMessage:
		role = m
	case protocol.ErrorMessage:
		conn.Close()
		if m.Reason == protocol.ErrorRoomFull {
			return nil, ErrRosterFull
		}
		return nil, fmt.Errorf("netclient: relay refused connection: %s", m.Reason)
	default:
		conn.Close()
		return nil, fmt.Errorf("netclient: expected role frame, got %q", msg.WireType())
	}

	conn.SetReadDeadline(time.Time{})
	c := &Client{
		cfg:    cfg,
		conn:   conn,
		logger: logger,
		role:   role.Role,
		slot:   role.PlayerIndex,
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Role reports the role assigned by the relay. Immutable for the connection
// lifetime.
func (c *Client) Role() string {
	return c.role
}

// Slot reports the wire slot index assigned by the relay.
func (c *Client) Slot() int {
	return c.slot
}

// OnMessage registers a handler for every frame after role assignment.
// Handlers run on the read loop goroutine; they must not block.
func (c *Client) OnMessage(handler func(protocol.Message)) {
	if handler == nil {
		return
	}
	c.handlerMu.Lock()
	c.handlers = append(c.handlers, handler)
	c.handlerMu.Unlock()
}

// Send encodes and writes a frame. Fire-and-forget: frames sent after the
// connection died are dropped silently, and a write failure closes the
// connection without surfacing an error.
func (c *Client) Send(msg protocol.Message) {
	select {
	case <-c.closed:
		return
	default:
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		c.logger.Printf("netclient: dropping unencodable %q frame: %v", msg.WireType(), err)
		return
	}

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.Close()
	}
}

// Closed is closed once the connection is terminally gone.
func (c *Client) Closed() <-chan struct{} {
	return c.closed
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(payload)
		if err != nil {
			c.logger.Printf("netclient: discarding malformed frame: %v", err)
			continue
		}
		if _, unknown := msg.(protocol.UnknownMessage); unknown {
			// Forward compatibility: unknown frames are no-ops.
			continue
		}

		c.handlerMu.Lock()
		handlers := append(([]func(protocol.Message))(nil), c.handlers...)
		c.handlerMu.Unlock()
		for _, handler := range handlers {
			handler(msg)
		}
	}
}
