package registry

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/indigo-protocol/indigo-go/pkg/log"
	"github.com/indigo-protocol/indigo-go/pkg/model"
)

// Registry errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
)

// Registry is the authoritative store of mirrored devices for one
// connection. Reads are safe from any goroutine; mutation happens only
// through Apply, called from the connection's read loop.
type Registry struct {
	mu sync.RWMutex

	devices map[string]*model.Device
	order   []string

	// Last connection-scoped broadcast message.
	message   string
	timestamp string

	logger log.Logger
	connID string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		devices: make(map[string]*model.Device),
		logger:  log.NoopLogger{},
	}
}

// SetLogger attaches the protocol logger used for anomaly reporting.
// connID tags emitted events.
func (r *Registry) SetLogger(logger log.Logger, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if logger == nil {
		logger = log.NoopLogger{}
	}
	r.logger = logger
	r.connID = connID
}

// Device returns the named device or ErrDeviceNotFound.
func (r *Registry) Device(name string) (*model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	return d, nil
}

// Devices returns the devices in first-seen order. The sequence
// iterates over a snapshot taken at call time and may be ranged over
// more than once.
func (r *Registry) Devices() iter.Seq[*model.Device] {
	r.mu.RLock()
	snapshot := make([]*model.Device, 0, len(r.order))
	for _, name := range r.order {
		snapshot = append(snapshot, r.devices[name])
	}
	r.mu.RUnlock()

	return func(yield func(*model.Device) bool) {
		for _, d := range snapshot {
			if !yield(d) {
				return
			}
		}
	}
}

// DeviceCount returns the number of known devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Reset drops all mirrored state. Called when a new connection is
// established; the previous graph stays valid for holders of old
// references as a stale snapshot.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]*model.Device)
	r.order = nil
	r.message = ""
	r.timestamp = ""
}

// LastMessage returns the last connection-scoped broadcast message and
// its timestamp.
func (r *Registry) LastMessage() (message, timestamp string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.message, r.timestamp
}

// getOrCreate returns the named device, creating it and recording a
// DeviceAdded event when unseen.
func (r *Registry) getOrCreate(name string, events *[]Event) *model.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[name]; ok {
		return d
	}
	d := model.NewDevice(name)
	r.devices[name] = d
	r.order = append(r.order, name)
	*events = append(*events, Event{Type: DeviceAdded, Device: d})
	return d
}

func (r *Registry) remove(name string) (*model.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[name]
	if !ok {
		return nil, false
	}
	delete(r.devices, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return d, true
}

// anomaly records a non-fatal protocol violation.
func (r *Registry) anomaly(device, context string, err error) {
	r.mu.RLock()
	logger, connID := r.logger, r.connID
	r.mu.RUnlock()

	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Category:     log.CategoryError,
		Device:       device,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
