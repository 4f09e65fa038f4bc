package client

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/indigo-protocol/indigo-go/pkg/log"
	"github.com/indigo-protocol/indigo-go/pkg/model"
	"github.com/indigo-protocol/indigo-go/pkg/registry"
	"github.com/indigo-protocol/indigo-go/pkg/subscription"
	"github.com/indigo-protocol/indigo-go/pkg/transport"
	"github.com/indigo-protocol/indigo-go/pkg/wire"
)

// Config configures a Client.
type Config struct {
	// Address is the server endpoint (host:port).
	Address string

	// Name identifies this client in the getProperties handshake.
	Name string

	// BLOBMode, when not BLOBNever, is requested via enableBLOB for
	// each device as it appears in the mirror.
	BLOBMode model.BLOBMode

	// ProtocolLogger receives protocol events. Nil disables capture.
	ProtocolLogger log.Logger

	// Transport tunes the underlying connection.
	Transport transport.Config
}

// Client mirrors one INDIGO server connection.
type Client struct {
	config Config
	logger log.Logger

	registry   *registry.Registry
	dispatcher *subscription.Dispatcher

	mu   sync.Mutex
	conn *transport.Conn

	// connID is read by handler callbacks that may run while mu is
	// held (transport callbacks are synchronous), so it lives outside
	// the mutex.
	connID atomic.Value
}

// New creates a disconnected client.
func New(config Config) *Client {
	logger := config.ProtocolLogger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Client{
		config:     config,
		logger:     logger,
		registry:   registry.New(),
		dispatcher: subscription.NewDispatcher(),
	}
}

// Connect dials the server, sends the getProperties handshake, and
// starts consuming the inbound stream. The previous connection's
// mirror is reset; definitions repopulate it as they arrive.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.State() != transport.StateDisconnected {
		return ErrAlreadyConnected
	}

	connID := uuid.NewString()
	c.connID.Store(connID)
	c.registry.Reset()
	c.registry.SetLogger(c.logger, connID)
	c.dispatcher.SetLogger(c.logger, connID)

	conn := transport.NewConn(c.config.Transport, (*connHandler)(c))
	if err := conn.Connect(ctx, c.config.Address); err != nil {
		return err
	}
	c.conn = conn

	handshake := &wire.Message{GetProperties: &wire.GetProperties{
		Version: wire.ProtocolVersion,
		Client:  c.config.Name,
	}}
	if err := conn.Send(handshake); err != nil {
		conn.Close()
		c.conn = nil
		return fmt.Errorf("handshake: %w", err)
	}
	c.logMessage(log.DirectionOut, handshake)

	return nil
}

// Disconnect tears the connection down. The connection-lost listener
// does not fire; the mirror stays readable as a stale snapshot.
// Safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Connected reports whether the transport is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.State() == transport.StateConnected
}

// ID returns the current connection's UUID, empty before the first
// Connect.
func (c *Client) ID() string {
	if v := c.connID.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// Devices returns the mirrored devices in first-seen order.
func (c *Client) Devices() iter.Seq[*model.Device] {
	return c.registry.Devices()
}

// Device returns the named device or ErrNotFound.
func (c *Client) Device(name string) (*model.Device, error) {
	d, err := c.registry.Device(name)
	if err != nil {
		return nil, fmt.Errorf("%w: device %q", ErrNotFound, name)
	}
	return d, nil
}

// Property resolves a device/property pair or returns ErrNotFound.
func (c *Client) Property(device, property string) (*model.Property, error) {
	d, err := c.Device(device)
	if err != nil {
		return nil, err
	}
	p, err := d.Property(property)
	if err != nil {
		return nil, fmt.Errorf("%w: property %q of device %q", ErrNotFound, property, device)
	}
	return p, nil
}

// LastMessage returns the last connection-scoped broadcast message and
// its timestamp.
func (c *Client) LastMessage() (message, timestamp string) {
	return c.registry.LastMessage()
}

// SubscribeProperty registers a listener for one property's events.
// The property does not need to exist yet.
func (c *Client) SubscribeProperty(device, property string, fn subscription.PropertyListener) *subscription.Handle {
	return c.dispatcher.SubscribeProperty(device, property, fn)
}

// SubscribeAll registers a listener for every registry event.
func (c *Client) SubscribeAll(fn subscription.PropertyListener) *subscription.Handle {
	return c.dispatcher.SubscribeAll(fn)
}

// SubscribeConnectionLost registers a listener fired exactly once if
// the transport fails. It does not fire on Disconnect.
func (c *Client) SubscribeConnectionLost(fn subscription.ServerListener) *subscription.Handle {
	return c.dispatcher.SubscribeConnectionLost(fn)
}

// send transmits one outbound message on the live connection.
func (c *Client) send(msg *wire.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Send(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	c.logMessage(log.DirectionOut, msg)
	return nil
}

// connHandler adapts Client to transport.Handler. Its methods run on
// the read-loop goroutine, serializing registry mutation and dispatch.
type connHandler Client

func (h *connHandler) client() *Client { return (*Client)(h) }

// OnMessage applies one inbound message and dispatches its events
// before the next message is read.
func (h *connHandler) OnMessage(msg *wire.Message) {
	c := h.client()
	c.logMessage(log.DirectionIn, msg)
	for _, event := range c.registry.Apply(msg) {
		c.dispatcher.Dispatch(event)
		if event.Type == registry.DeviceAdded && c.config.BLOBMode != model.BLOBNever {
			c.autoEnableBLOB(event.Device.Name())
		}
	}
}

// autoEnableBLOB requests the configured delivery mode for a device
// that just appeared in the mirror.
func (c *Client) autoEnableBLOB(device string) {
	if err := c.EnableBLOB(device, c.config.BLOBMode); err != nil {
		c.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.ID(),
			Direction:    log.DirectionOut,
			Category:     log.CategoryError,
			Device:       device,
			Error: &log.ErrorEventData{
				Message: err.Error(),
				Context: "enableBLOB",
			},
		})
	}
}

// OnError records a recoverable stream anomaly.
func (h *connHandler) OnError(err error) {
	c := h.client()
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ID(),
		Direction:    log.DirectionIn,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: "read loop",
		},
	})
}

// OnStateChange records transport lifecycle transitions.
func (h *connHandler) OnStateChange(oldState, newState transport.State) {
	c := h.client()
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ID(),
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
		},
	})
}

// OnClosed fires the connection-lost listeners on transport failure.
// err is nil after Disconnect, which stays silent.
func (h *connHandler) OnClosed(err error) {
	if err == nil {
		return
	}
	c := h.client()
	c.dispatcher.DispatchConnectionLost(fmt.Errorf("%w: %v", ErrConnectionLost, err))
}

// logMessage records one protocol message event.
func (c *Client) logMessage(dir log.Direction, msg *wire.Message) {
	tag := wire.Tag(msg)
	if tag == "" {
		return
	}

	ev := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ID(),
		Direction:    dir,
		Category:     log.CategoryMessage,
		Message:      &log.MessageEvent{Tag: tag},
	}
	switch {
	case msg.Def != nil:
		ev.Device = msg.Def.Device
		ev.Message.Property = msg.Def.Name
		ev.Message.State = msg.Def.State
		ev.Message.Items = len(msg.Def.Items)
	case msg.Set != nil:
		ev.Device = msg.Set.Device
		ev.Message.Property = msg.Set.Name
		ev.Message.State = msg.Set.State
		ev.Message.Items = len(msg.Set.Items)
	case msg.Delete != nil:
		ev.Device = msg.Delete.Device
		ev.Message.Property = msg.Delete.Name
	case msg.Broadcast != nil:
		ev.Device = msg.Broadcast.Device
	case msg.New != nil:
		ev.Device = msg.New.Device
		ev.Message.Property = msg.New.Name
		ev.Message.Items = len(msg.New.Items)
	case msg.EnableBLOB != nil:
		ev.Device = msg.EnableBLOB.Device
	}
	c.logger.Log(ev)
}
