package subscription

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/indigo-protocol/indigo-go/pkg/log"
	"github.com/indigo-protocol/indigo-go/pkg/registry"
)

// PropertyListener receives registry events. For a property-scoped
// registration it sees only events for that property; for SubscribeAll
// it sees every event, including device and broadcast events.
type PropertyListener func(event registry.Event)

// ServerListener is notified when the connection is lost. err carries
// the transport failure.
type ServerListener func(err error)

// propKey addresses property-scoped registrations.
type propKey struct {
	device   string
	property string
}

type propEntry struct {
	id uint64
	fn PropertyListener
}

type serverEntry struct {
	id uint64
	fn ServerListener
}

// Dispatcher routes registry events to registered listeners.
// Registration and cancellation are safe from any goroutine; Dispatch
// and DispatchConnectionLost are driven by the connection's read loop.
type Dispatcher struct {
	mu     sync.Mutex
	nextID uint64

	property map[propKey][]propEntry
	global   []propEntry
	server   []serverEntry

	logger log.Logger
	connID string
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		property: make(map[propKey][]propEntry),
		logger:   log.NoopLogger{},
	}
}

// SetLogger attaches the protocol logger used to report listener
// panics. connID tags emitted events.
func (d *Dispatcher) SetLogger(logger log.Logger, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if logger == nil {
		logger = log.NoopLogger{}
	}
	d.logger = logger
	d.connID = connID
}

// SubscribeProperty registers a listener for one property, addressed
// by device and property name. The property does not need to exist
// yet; events start arriving once it does.
func (d *Dispatcher) SubscribeProperty(device, property string, fn PropertyListener) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	key := propKey{device, property}
	d.property[key] = append(d.property[key], propEntry{id: d.nextID, fn: fn})
	return &Handle{d: d, id: d.nextID, kind: handleProperty, key: key}
}

// SubscribeAll registers a listener for every registry event.
func (d *Dispatcher) SubscribeAll(fn PropertyListener) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.global = append(d.global, propEntry{id: d.nextID, fn: fn})
	return &Handle{d: d, id: d.nextID, kind: handleGlobal}
}

// SubscribeConnectionLost registers a server listener.
func (d *Dispatcher) SubscribeConnectionLost(fn ServerListener) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.server = append(d.server, serverEntry{id: d.nextID, fn: fn})
	return &Handle{d: d, id: d.nextID, kind: handleServer}
}

// Dispatch delivers one event to all matching listeners in
// registration order. Called from the read loop after the event's
// registry change is fully applied.
func (d *Dispatcher) Dispatch(event registry.Event) {
	d.mu.Lock()
	entries := make([]propEntry, 0, len(d.global))
	entries = append(entries, d.global...)
	if event.Property != nil && event.Device != nil {
		key := propKey{event.Device.Name(), event.Property.Name()}
		entries = append(entries, d.property[key]...)
	}
	d.mu.Unlock()

	// Registration order across global and property-scoped listeners.
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	for _, e := range entries {
		d.invoke(event, e)
	}
}

// DispatchConnectionLost delivers the terminal failure to server
// listeners in registration order.
func (d *Dispatcher) DispatchConnectionLost(err error) {
	d.mu.Lock()
	entries := make([]serverEntry, len(d.server))
	copy(entries, d.server)
	d.mu.Unlock()

	for _, e := range entries {
		func() {
			defer d.recoverPanic("connection-lost listener")
			e.fn(err)
		}()
	}
}

func (d *Dispatcher) invoke(event registry.Event, e propEntry) {
	defer d.recoverPanic(fmt.Sprintf("%s listener", event.Type))
	e.fn(event)
}

// recoverPanic isolates a panicking listener: the failure is logged
// and remaining listeners still run.
func (d *Dispatcher) recoverPanic(context string) {
	r := recover()
	if r == nil {
		return
	}
	d.mu.Lock()
	logger, connID := d.logger, d.connID
	d.mu.Unlock()

	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Message: fmt.Sprintf("listener panic: %v", r),
			Context: context,
		},
	})
}

func (d *Dispatcher) cancel(h *Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch h.kind {
	case handleProperty:
		d.property[h.key] = removeProp(d.property[h.key], h.id)
		if len(d.property[h.key]) == 0 {
			delete(d.property, h.key)
		}
	case handleGlobal:
		d.global = removeProp(d.global, h.id)
	case handleServer:
		for i, e := range d.server {
			if e.id == h.id {
				d.server = append(d.server[:i], d.server[i+1:]...)
				break
			}
		}
	}
}

func removeProp(entries []propEntry, id uint64) []propEntry {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}
