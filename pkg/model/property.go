package model

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
)

// Property errors.
var (
	ErrElementNotFound  = errors.New("element not found")
	ErrDuplicateElement = errors.New("duplicate element name")
)

// Metadata is the shared per-property metadata carried by define and
// set vectors.
type Metadata struct {
	// Label is the display name, defaults to the property name.
	Label string

	// Group is a free-form organizational tag.
	Group string

	// State is the validity/activity indicator.
	State State

	// Perm is the client write capability.
	Perm Perm

	// Rule is the switch-selection discipline, meaningful for Switch
	// properties only.
	Rule Rule

	// Timeout is the worst-case completion time in seconds as
	// declared by the server, 0 if unspecified.
	Timeout float64

	// Timestamp is the server timestamp of the last define/set, verbatim.
	Timestamp string

	// Message is the last per-property status message, if any.
	Message string
}

// Property is an ordered, uniquely-named collection of Elements that
// share kind and metadata. It exclusively owns its Elements.
type Property struct {
	mu sync.RWMutex

	// device is a non-owning back-reference, set on AddProperty.
	device *Device

	name string
	kind Kind
	meta Metadata

	elements map[string]*Element
	order    []string
}

// NewProperty creates an empty property of the given kind.
// Light properties are forced read-only with no timeout, matching
// server behavior.
func NewProperty(name string, kind Kind, meta Metadata) *Property {
	if meta.Label == "" {
		meta.Label = name
	}
	if kind == KindLight {
		meta.Perm = PermReadOnly
		meta.Timeout = 0
	}
	return &Property{
		name:     name,
		kind:     kind,
		meta:     meta,
		elements: make(map[string]*Element),
	}
}

// Name returns the property name.
func (p *Property) Name() string {
	return p.name
}

// Kind returns the element kind the property contains.
func (p *Property) Kind() Kind {
	return p.kind
}

// Device returns the owning device, nil if not yet attached.
func (p *Property) Device() *Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.device
}

// Label returns the display label.
func (p *Property) Label() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Label
}

// Group returns the organizational tag.
func (p *Property) Group() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Group
}

// State returns the current property state.
func (p *Property) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.State
}

// Perm returns the write capability.
func (p *Property) Perm() Perm {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Perm
}

// Rule returns the switch-selection discipline.
func (p *Property) Rule() Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Rule
}

// Timeout returns the declared completion timeout in seconds.
func (p *Property) Timeout() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Timeout
}

// Timestamp returns the server timestamp of the last define/set.
func (p *Property) Timestamp() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Timestamp
}

// Message returns the last per-property status message.
func (p *Property) Message() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta.Message
}

// Meta returns a copy of the current metadata.
func (p *Property) Meta() Metadata {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meta
}

// SetMeta replaces the metadata wholesale. Light constraints are
// re-applied. Reserved for the connection's message-application path.
func (p *Property) SetMeta(meta Metadata) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if meta.Label == "" {
		meta.Label = p.meta.Label
	}
	if p.kind == KindLight {
		meta.Perm = PermReadOnly
		meta.Timeout = 0
	}
	p.meta = meta
}

// Update applies set-vector metadata: state always, timeout/timestamp/
// message when carried. Reserved for the connection's
// message-application path.
func (p *Property) Update(state State, timeout *float64, timestamp, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.meta.State = state
	if timeout != nil && p.kind != KindLight {
		p.meta.Timeout = *timeout
	}
	if timestamp != "" {
		p.meta.Timestamp = timestamp
	}
	if message != "" {
		p.meta.Message = message
	}
}

// AddElement appends an element. The element's value kind must match
// the property kind and the name must be unused.
func (p *Property) AddElement(e *Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.Kind() != p.kind {
		return fmt.Errorf("%w: property is %s, element %q is %s", ErrKindMismatch, p.kind, e.Name(), e.Kind())
	}
	if _, ok := p.elements[e.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateElement, e.Name())
	}
	p.elements[e.Name()] = e
	p.order = append(p.order, e.Name())
	e.attach(p)
	return nil
}

// Element returns the named element or ErrElementNotFound.
func (p *Property) Element(name string) (*Element, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.elements[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, name)
	}
	return e, nil
}

// Elements returns the elements in definition order. The sequence
// iterates over a snapshot taken at call time and may be ranged over
// more than once.
func (p *Property) Elements() iter.Seq[*Element] {
	p.mu.RLock()
	snapshot := make([]*Element, 0, len(p.order))
	for _, name := range p.order {
		snapshot = append(snapshot, p.elements[name])
	}
	p.mu.RUnlock()

	return func(yield func(*Element) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// ElementCount returns the number of elements.
func (p *Property) ElementCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.elements)
}

// String renders the property header and elements for display.
func (p *Property) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s %s %s]", p.name, p.kind, p.meta.State, p.meta.Perm)
	for _, name := range p.order {
		b.WriteString(" ")
		b.WriteString(p.elements[name].String())
	}
	return b.String()
}

func (p *Property) attach(d *Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.device = d
}
