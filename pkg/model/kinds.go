package model

import "fmt"

// Kind identifies which value variant a Property and its Elements carry.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNumber
	KindText
	KindSwitch
	KindLight
	KindBLOB
)

// kindNames are the wire spellings used in vector tags
// (defNumberVector, setTextVector, newSwitchVector, ...).
var kindNames = map[Kind]string{
	KindNumber: "Number",
	KindText:   "Text",
	KindSwitch: "Switch",
	KindLight:  "Light",
	KindBLOB:   "BLOB",
}

// String returns the wire spelling of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind parses a wire spelling into a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown property kind %q", s)
}

// State is the validity/activity indicator of a Property or Light element.
type State uint8

const (
	StateIdle State = iota
	StateOk
	StateBusy
	StateAlert
)

var stateNames = [...]string{"Idle", "Ok", "Busy", "Alert"}

// String returns the wire spelling of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// ParseState parses a wire spelling into a State.
func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if name == s {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown state %q", s)
}

// Perm is the client write capability of a Property.
type Perm uint8

const (
	PermReadOnly Perm = iota
	PermReadWrite
	PermWriteOnly
)

var permNames = [...]string{"ro", "rw", "wo"}

// String returns the wire spelling of the permission.
func (p Perm) String() string {
	if int(p) < len(permNames) {
		return permNames[p]
	}
	return fmt.Sprintf("Perm(%d)", p)
}

// ParsePerm parses a wire spelling into a Perm.
func ParsePerm(s string) (Perm, error) {
	for i, name := range permNames {
		if name == s {
			return Perm(i), nil
		}
	}
	return PermReadOnly, fmt.Errorf("unknown permission %q", s)
}

// CanWrite returns true if the client may send values for the property.
func (p Perm) CanWrite() bool {
	return p == PermReadWrite || p == PermWriteOnly
}

// Rule is the mutual-exclusion discipline for Switch elements.
type Rule uint8

const (
	RuleOneOfMany Rule = iota
	RuleAtMostOne
	RuleAnyOfMany
)

var ruleNames = [...]string{"OneOfMany", "AtMostOne", "AnyOfMany"}

// String returns the wire spelling of the rule.
func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return fmt.Sprintf("Rule(%d)", r)
}

// ParseRule parses a wire spelling into a Rule.
func ParseRule(s string) (Rule, error) {
	for i, name := range ruleNames {
		if name == s {
			return Rule(i), nil
		}
	}
	return RuleOneOfMany, fmt.Errorf("unknown rule %q", s)
}

// BLOBMode controls whether the server delivers binary payloads for
// BLOB properties of a device.
type BLOBMode uint8

const (
	// BLOBNever suppresses binary payloads (the default).
	BLOBNever BLOBMode = iota

	// BLOBAlso delivers binary payloads alongside regular updates.
	BLOBAlso

	// BLOBOnly delivers binary payloads and nothing else.
	BLOBOnly
)

var blobModeNames = [...]string{"Never", "Also", "Only"}

// String returns the wire spelling of the mode.
func (m BLOBMode) String() string {
	if int(m) < len(blobModeNames) {
		return blobModeNames[m]
	}
	return fmt.Sprintf("BLOBMode(%d)", m)
}

// ParseBLOBMode parses a wire spelling into a BLOBMode.
func ParseBLOBMode(s string) (BLOBMode, error) {
	for i, name := range blobModeNames {
		if name == s {
			return BLOBMode(i), nil
		}
	}
	return BLOBNever, fmt.Errorf("unknown BLOB mode %q", s)
}
