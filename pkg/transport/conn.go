package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-protocol/indigo-go/pkg/wire"
)

// Connection states.
type State int

const (
	// StateDisconnected indicates no connection.
	StateDisconnected State = iota

	// StateConnecting indicates connection in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected
)

// String returns the connection state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Conn errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// Handler handles connection events. All callbacks except OnStateChange
// run on the read loop goroutine, one at a time.
type Handler interface {
	// OnMessage is called for each decoded inbound message.
	OnMessage(msg *wire.Message)

	// OnStateChange is called when the connection state changes.
	OnStateChange(oldState, newState State)

	// OnError is called for recoverable stream anomalies (unknown
	// message tags, malformed bodies). Reading continues.
	OnError(err error)

	// OnClosed is called exactly once when the connection ends.
	// err is nil after a local Close and carries the transport
	// failure otherwise.
	OnClosed(err error)
}

// Config configures a Conn.
type Config struct {
	// DialTimeout bounds the TCP dial (default: 10s).
	DialTimeout time.Duration

	// WriteTimeout bounds each Send (0 = no timeout).
	WriteTimeout time.Duration

	// Dial overrides the dialer, used for testing.
	Dial func(ctx context.Context, address string) (net.Conn, error)
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		DialTimeout: 10 * time.Second,
	}
}

// Conn is one INDIGO transport connection.
type Conn struct {
	config  Config
	handler Handler

	mu      sync.RWMutex
	conn    net.Conn
	encoder *wire.Encoder

	writeMu sync.Mutex

	state      atomic.Int32
	localClose atomic.Bool
	finishOnce sync.Once
}

// NewConn creates a connection (not yet connected).
func NewConn(config Config, handler Handler) *Conn {
	if config.DialTimeout == 0 {
		config.DialTimeout = 10 * time.Second
	}
	c := &Conn{
		config:  config,
		handler: handler,
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// RemoteAddr returns the server address, empty when not connected.
func (c *Conn) RemoteAddr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return ""
	}
	return c.conn.RemoteAddr().String()
}

// Connect dials the server and starts the read loop.
func (c *Conn) Connect(ctx context.Context, address string) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.handler.OnStateChange(StateDisconnected, StateConnecting)

	dial := c.config.Dial
	if dial == nil {
		dialer := &net.Dialer{Timeout: c.config.DialTimeout}
		dial = func(ctx context.Context, address string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", address)
		}
	}

	conn, err := dial(ctx, address)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.handler.OnStateChange(StateConnecting, StateDisconnected)
		return fmt.Errorf("dial failed: %w", err)
	}

	c.attach(conn, StateConnecting)
	return nil
}

// Attach starts the read loop on an existing connection. Used by tests
// and callers that dial themselves.
func (c *Conn) Attach(conn net.Conn) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	c.handler.OnStateChange(StateDisconnected, StateConnecting)
	c.attach(conn, StateConnecting)
	return nil
}

func (c *Conn) attach(conn net.Conn, from State) {
	c.mu.Lock()
	c.conn = conn
	c.encoder = wire.NewEncoder(conn)
	c.mu.Unlock()

	c.state.Store(int32(StateConnected))
	c.handler.OnStateChange(from, StateConnected)

	go c.readLoop(conn)
}

// Send encodes and transmits one message. Safe for concurrent use.
func (c *Conn) Send(msg *wire.Message) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	encoder := c.encoder
	conn := c.conn
	c.mu.RUnlock()

	if encoder == nil {
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}
	return encoder.Encode(msg)
}

// Close tears the connection down. The read loop unblocks and OnClosed
// fires with a nil error. Safe to call more than once.
func (c *Conn) Close() error {
	c.localClose.Store(true)

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn != nil {
		conn.Close()
	}
	return nil
}

// readLoop decodes inbound messages until the stream ends.
func (c *Conn) readLoop(conn net.Conn) {
	dec := wire.NewDecoder(conn)
	for {
		msg, err := dec.Next()
		if err != nil {
			if errors.Is(err, wire.ErrUnknownMessage) || errors.Is(err, wire.ErrMalformed) {
				c.handler.OnError(err)
				continue
			}
			c.finish(err)
			return
		}
		c.handler.OnMessage(msg)
	}
}

// finish runs the single terminal path for the connection.
func (c *Conn) finish(err error) {
	c.finishOnce.Do(func() {
		old := State(c.state.Swap(int32(StateDisconnected)))

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}

		if c.localClose.Load() {
			err = nil
		}

		c.handler.OnStateChange(old, StateDisconnected)
		c.handler.OnClosed(err)
	})
}
