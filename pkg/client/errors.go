package client

import "errors"

// Client errors. Protocol violations are not represented here: they
// are absorbed and logged (see registry.ErrProtocolViolation), never
// returned to callers or listeners.
var (
	// ErrNotFound reports a failed lookup by name.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument reports a rejected write: read-only property,
	// unknown element, out-of-bounds value, or a value of the wrong type.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConnectionLost reports a terminal transport failure. It is
	// also the error delivered to connection-lost listeners.
	ErrConnectionLost = errors.New("connection lost")

	// ErrAlreadyConnected reports a Connect on a live client.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected reports an operation requiring a live connection.
	ErrNotConnected = errors.New("not connected")
)
