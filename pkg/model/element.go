package model

import (
	"errors"
	"fmt"
	"sync"
)

// Element errors.
var (
	ErrKindMismatch = errors.New("value kind does not match element kind")
)

// Element is a single named value slot within a Property.
// Its name and kind are immutable after creation; the value mutates
// only via the connection's message-application path.
type Element struct {
	mu sync.RWMutex

	// property is a non-owning back-reference, set on AddElement.
	property *Property

	name  string
	label string
	value Value
}

// NewElement creates an element carrying the given value variant.
// An empty label defaults to the name.
func NewElement(name, label string, value Value) *Element {
	if label == "" {
		label = name
	}
	return &Element{
		name:  name,
		label: label,
		value: value,
	}
}

// Name returns the element name.
func (e *Element) Name() string {
	return e.name
}

// Label returns the display label.
func (e *Element) Label() string {
	return e.label
}

// Property returns the owning property, nil if not yet attached.
func (e *Element) Property() *Property {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.property
}

// Kind returns the value kind of the element.
func (e *Element) Kind() Kind {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value.Kind()
}

// Value returns the current value variant. Callers must treat the
// returned value as read-only (BLOB data is shared, not copied).
func (e *Element) Value() Value {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value
}

// SetValue replaces the element value. The new value must carry the
// same kind as the current one. Reserved for the connection's
// message-application path.
func (e *Element) SetValue(v Value) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v.Kind() != e.value.Kind() {
		return fmt.Errorf("%w: have %s, got %s", ErrKindMismatch, e.value.Kind(), v.Kind())
	}
	e.value = v
	return nil
}

// Number returns the Number variant, false if the element is not a number.
func (e *Element) Number() (Number, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.value.(Number)
	return n, ok
}

// Text returns the Text variant, false if the element is not a text.
func (e *Element) Text() (Text, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.value.(Text)
	return t, ok
}

// Switch returns the Switch variant, false if the element is not a switch.
func (e *Element) Switch() (Switch, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.value.(Switch)
	return s, ok
}

// Light returns the Light variant, false if the element is not a light.
func (e *Element) Light() (Light, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.value.(Light)
	return l, ok
}

// BLOB returns the BLOB variant, false if the element is not a BLOB.
func (e *Element) BLOB() (BLOB, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.value.(BLOB)
	return b, ok
}

// On returns true for a switch element that is set. Convenience for
// the common CONNECTION check.
func (e *Element) On() bool {
	s, ok := e.Switch()
	return ok && s.On
}

// String renders the element for display, using the declared number
// format where present.
func (e *Element) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch v := e.value.(type) {
	case Number:
		return fmt.Sprintf("%s=%s", e.name, FormatNumber(v.Format, v.Value))
	case Text:
		return fmt.Sprintf("%s=%q", e.name, v.Value)
	case Switch:
		if v.On {
			return e.name + "=On"
		}
		return e.name + "=Off"
	case Light:
		return fmt.Sprintf("%s=%s", e.name, v.Value)
	case BLOB:
		if v.Data == nil {
			return fmt.Sprintf("%s=<%d bytes, not delivered>", e.name, v.Size)
		}
		return fmt.Sprintf("%s=<%d bytes%s>", e.name, len(v.Data), v.Format)
	}
	return e.name
}

func (e *Element) attach(p *Property) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.property = p
}
