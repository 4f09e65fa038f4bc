package model

// Value is the kind-specific payload of an Element. Exactly one of the
// five variants below implements it. Callers switch on the concrete
// type (or use the Element accessors) before touching variant fields.
type Value interface {
	// Kind returns the discriminator for the variant.
	Kind() Kind
}

// Number is a float value slot with bounds and display format.
type Number struct {
	// Value is the current confirmed value.
	Value float64

	// Target is the pending value before server confirmation.
	Target float64

	// Format is an INDI-style printf format, e.g. "%7.2f" or "%10.6m"
	// (sexagesimal). Empty means default rendering.
	Format string

	// Min and Max are the declared bounds. Min == Max means unbounded.
	Min float64
	Max float64

	// Step is the suggested increment, 0 if unconstrained.
	Step float64
}

// Kind returns KindNumber.
func (Number) Kind() Kind { return KindNumber }

// Bounded returns true if the declared bounds constrain the value.
func (n Number) Bounded() bool { return n.Min != n.Max }

// InBounds returns true if v satisfies the declared bounds.
func (n Number) InBounds(v float64) bool {
	if !n.Bounded() {
		return true
	}
	return v >= n.Min && v <= n.Max
}

// Text is a string value slot.
type Text struct {
	// Value is the current text.
	Value string

	// MaxLength is the declared maximum length, 0 if unconstrained.
	MaxLength int
}

// Kind returns KindText.
func (Text) Kind() Kind { return KindText }

// Switch is a boolean on/off value slot.
type Switch struct {
	// On is true when the switch is set.
	On bool
}

// Kind returns KindSwitch.
func (Switch) Kind() Kind { return KindSwitch }

// Light is a read-only indicator value slot.
type Light struct {
	// Value is the indicator state.
	Value State
}

// Kind returns KindLight.
func (Light) Kind() Kind { return KindLight }

// BLOB is a binary payload value slot. It stays metadata-only until
// BLOB delivery is enabled for the owning device and the server sends
// a payload.
type BLOB struct {
	// Data is the inline payload, nil when not delivered.
	Data []byte

	// URL is the server-side download location, if advertised.
	URL string

	// Size is the payload size in bytes as declared by the server.
	Size int64

	// Format is a file extension or MIME hint, e.g. ".fits".
	Format string
}

// Kind returns KindBLOB.
func (BLOB) Kind() Kind { return KindBLOB }
