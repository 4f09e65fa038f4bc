package wire

import (
	"github.com/indigo-protocol/indigo-go/pkg/model"
)

// Message is the decoded form of one protocol message. Exactly one
// variant field is non-nil.
type Message struct {
	// Inbound variants.
	Def       *DefVector
	Set       *SetVector
	Delete    *DeleteProperty
	Broadcast *Broadcast

	// Outbound variants.
	GetProperties *GetProperties
	New           *NewVector
	EnableBLOB    *EnableBLOB
}

// Item is one (element, value) entry of a def or set vector. Value is
// a loose JSON scalar whose Go type depends on the vector kind; use
// the typed accessors. The remaining fields are kind-specific
// metadata: Format/Min/Max/Step/Target for numbers, Format/Size/URL
// for BLOBs.
type Item struct {
	Name   string   `json:"name"`
	Label  string   `json:"label,omitempty"`
	Value  any      `json:"value,omitempty"`
	Format string   `json:"format,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Step   *float64 `json:"step,omitempty"`
	Target *float64 `json:"target,omitempty"`
	Size   *int64   `json:"size,omitempty"`
	URL    string   `json:"url,omitempty"`
}

// Float returns the value as a float64, false if it is absent or not
// numeric.
func (it Item) Float() (float64, bool) {
	f, ok := it.Value.(float64)
	return f, ok
}

// Str returns the value as a string, false if it is absent or not a
// string.
func (it Item) Str() (string, bool) {
	s, ok := it.Value.(string)
	return s, ok
}

// Bool returns the value as a bool, false if it is absent or not a
// boolean.
func (it Item) Bool() (bool, bool) {
	b, ok := it.Value.(bool)
	return b, ok
}

// DefVector defines (or redefines) a property with its full element
// set and metadata. Kind comes from the message tag, not the body.
type DefVector struct {
	Kind      model.Kind `json:"-"`
	Device    string     `json:"device"`
	Name      string     `json:"name"`
	Label     string     `json:"label,omitempty"`
	Group     string     `json:"group,omitempty"`
	State     string     `json:"state,omitempty"`
	Perm      string     `json:"perm,omitempty"`
	Rule      string     `json:"rule,omitempty"`
	Timeout   *float64   `json:"timeout,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Message   string     `json:"message,omitempty"`
	Items     []Item     `json:"items"`
}

// SetVector updates element values and state of a defined property.
// Elements not mentioned keep their prior value.
type SetVector struct {
	Kind      model.Kind `json:"-"`
	Device    string     `json:"device"`
	Name      string     `json:"name"`
	State     string     `json:"state,omitempty"`
	Timeout   *float64   `json:"timeout,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Message   string     `json:"message,omitempty"`
	Items     []Item     `json:"items"`
}

// DeleteProperty removes one property, or the whole device when Name
// is empty.
type DeleteProperty struct {
	Device    string `json:"device"`
	Name      string `json:"name,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Broadcast is a free-form status message, device-scoped when Device
// is set and connection-scoped otherwise.
type Broadcast struct {
	Device    string `json:"device,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// GetProperties is the client handshake requesting definitions.
type GetProperties struct {
	Version int    `json:"version"`
	Client  string `json:"client,omitempty"`
	Device  string `json:"device,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ProtocolVersion is the version announced in GetProperties.
const ProtocolVersion = 512

// NewVector requests new element values from the server. Kind selects
// the outbound tag (newNumberVector, newSwitchVector, ...).
type NewVector struct {
	Kind   model.Kind `json:"-"`
	Device string     `json:"device"`
	Name   string     `json:"name"`
	Items  []NewItem  `json:"items"`
}

// NewItem is one requested (element, value) pair. Value must be a
// JSON scalar matching the vector kind.
type NewItem struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// EnableBLOB selects whether the server delivers BLOB payloads for a
// device.
type EnableBLOB struct {
	Device string `json:"device"`
	Value  string `json:"value"`
}
