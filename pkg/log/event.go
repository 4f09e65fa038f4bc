package log

import "time"

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the server address (host:port).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// Device is the device name the event concerns, if any.
	Device string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"7,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"9,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent captures one protocol message.
type MessageEvent struct {
	// Tag is the message tag (defNumberVector, setSwitchVector, ...).
	Tag string `cbor:"1,keyasint"`

	// Property is the property name carried by vector messages.
	Property string `cbor:"2,keyasint,omitempty"`

	// State is the property state carried by def/set vectors.
	State string `cbor:"3,keyasint,omitempty"`

	// Items is the number of (element, value) entries.
	Items int `cbor:"4,keyasint,omitempty"`

	// Size is the encoded message size in bytes, if known.
	Size int `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures connection lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors: protocol violations, transport
// failures, and listener panics.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
