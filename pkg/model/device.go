package model

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

// Device errors.
var (
	ErrPropertyNotFound  = errors.New("property not found")
	ErrDuplicateProperty = errors.New("duplicate property name")
)

// Reserved connection-state property and its switch elements. A device
// whose CONNECTION property has CONNECTED set is attached to its
// driver; flipping the switch is a domain signal, not a structural
// change.
const (
	ConnectionProperty  = "CONNECTION"
	ConnectedElement    = "CONNECTED"
	DisconnectedElement = "DISCONNECTED"
)

// Device is a named remote entity exposing Properties. It exclusively
// owns its Properties; insertion order is preserved for stable display.
type Device struct {
	mu sync.RWMutex

	name string

	properties map[string]*Property
	order      []string

	// Last broadcast message addressed to this device.
	message   string
	timestamp string
}

// NewDevice creates an empty device.
func NewDevice(name string) *Device {
	return &Device{
		name:       name,
		properties: make(map[string]*Property),
	}
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// AddProperty appends a property. The name must be unused.
func (d *Device) AddProperty(p *Property) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.properties[p.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProperty, p.Name())
	}
	d.properties[p.Name()] = p
	d.order = append(d.order, p.Name())
	p.attach(d)
	return nil
}

// ReplaceProperty swaps in a redefinition of an existing property,
// keeping its position in the display order. Falls back to append if
// the name is new.
func (d *Device) ReplaceProperty(p *Property) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.properties[p.Name()]; !ok {
		d.order = append(d.order, p.Name())
	}
	d.properties[p.Name()] = p
	p.attach(d)
}

// RemoveProperty detaches and returns the named property, or
// ErrPropertyNotFound.
func (d *Device) RemoveProperty(name string) (*Property, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.properties[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPropertyNotFound, name)
	}
	delete(d.properties, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return p, nil
}

// Property returns the named property or ErrPropertyNotFound.
func (d *Device) Property(name string) (*Property, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.properties[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPropertyNotFound, name)
	}
	return p, nil
}

// Properties returns the properties in definition order. The sequence
// iterates over a snapshot taken at call time and may be ranged over
// more than once.
func (d *Device) Properties() iter.Seq[*Property] {
	d.mu.RLock()
	snapshot := make([]*Property, 0, len(d.order))
	for _, name := range d.order {
		snapshot = append(snapshot, d.properties[name])
	}
	d.mu.RUnlock()

	return func(yield func(*Property) bool) {
		for _, p := range snapshot {
			if !yield(p) {
				return
			}
		}
	}
}

// PropertyCount returns the number of properties.
func (d *Device) PropertyCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.properties)
}

// Connected reports whether the device's CONNECTION property has the
// CONNECTED switch set. Devices without a CONNECTION property report
// false.
func (d *Device) Connected() bool {
	p, err := d.Property(ConnectionProperty)
	if err != nil {
		return false
	}
	e, err := p.Element(ConnectedElement)
	if err != nil {
		return false
	}
	return e.On()
}

// SetMessage records a broadcast message addressed to this device.
// Reserved for the connection's message-application path.
func (d *Device) SetMessage(message, timestamp string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.message = message
	d.timestamp = timestamp
}

// LastMessage returns the last broadcast message and its timestamp.
func (d *Device) LastMessage() (message, timestamp string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.message, d.timestamp
}
