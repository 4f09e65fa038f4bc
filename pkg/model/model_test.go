package model

import (
	"errors"
	"testing"
)

func TestKindParsing(t *testing.T) {
	for _, name := range []string{"Number", "Text", "Switch", "Light", "BLOB"} {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
		if k.String() != name {
			t.Errorf("round trip: got %q, want %q", k.String(), name)
		}
	}

	if _, err := ParseKind("Vector"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestEnumParsing(t *testing.T) {
	t.Run("state", func(t *testing.T) {
		s, err := ParseState("Busy")
		if err != nil || s != StateBusy {
			t.Errorf("ParseState(Busy) = %v, %v", s, err)
		}
		if _, err := ParseState("Broken"); err == nil {
			t.Error("expected error for unknown state")
		}
	})

	t.Run("perm", func(t *testing.T) {
		p, err := ParsePerm("rw")
		if err != nil || p != PermReadWrite {
			t.Errorf("ParsePerm(rw) = %v, %v", p, err)
		}
		if !PermWriteOnly.CanWrite() {
			t.Error("wo must be writable")
		}
		if PermReadOnly.CanWrite() {
			t.Error("ro must not be writable")
		}
	})

	t.Run("rule", func(t *testing.T) {
		r, err := ParseRule("AtMostOne")
		if err != nil || r != RuleAtMostOne {
			t.Errorf("ParseRule(AtMostOne) = %v, %v", r, err)
		}
	})

	t.Run("blob mode", func(t *testing.T) {
		m, err := ParseBLOBMode("Also")
		if err != nil || m != BLOBAlso {
			t.Errorf("ParseBLOBMode(Also) = %v, %v", m, err)
		}
	})
}

func TestElementValue(t *testing.T) {
	e := NewElement("SPEED", "Speed", Number{Value: 10, Min: 0, Max: 100, Step: 1})

	if e.Name() != "SPEED" || e.Label() != "Speed" {
		t.Fatalf("identity: %q %q", e.Name(), e.Label())
	}
	if e.Kind() != KindNumber {
		t.Fatalf("kind: %v", e.Kind())
	}

	n, ok := e.Number()
	if !ok || n.Value != 10 {
		t.Fatalf("Number() = %+v, %v", n, ok)
	}
	if _, ok := e.Text(); ok {
		t.Error("Text() must fail on a number element")
	}

	n.Value = 50
	if err := e.SetValue(n); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got, _ := e.Number(); got.Value != 50 {
		t.Errorf("value after set: %v", got.Value)
	}

	if err := e.SetValue(Text{Value: "nope"}); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("cross-kind set: %v", err)
	}
}

func TestElementDefaultLabel(t *testing.T) {
	e := NewElement("CONNECTED", "", Switch{})
	if e.Label() != "CONNECTED" {
		t.Errorf("label: %q", e.Label())
	}
}

func TestNumberBounds(t *testing.T) {
	n := Number{Min: 0, Max: 100}
	if !n.InBounds(0) || !n.InBounds(100) || n.InBounds(100.5) || n.InBounds(-1) {
		t.Error("bounds check wrong")
	}

	// Min == Max means unbounded.
	free := Number{Min: 0, Max: 0}
	if !free.InBounds(1e9) {
		t.Error("degenerate bounds must not constrain")
	}
}

func TestPropertyElements(t *testing.T) {
	p := NewProperty("TEST_NUMBER", KindNumber, Metadata{State: StateOk, Perm: PermReadWrite})

	if err := p.AddElement(NewElement("SPEED", "", Number{Value: 10})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.AddElement(NewElement("ACCEL", "", Number{Value: 1})); err != nil {
		t.Fatalf("add: %v", err)
	}

	t.Run("lookup", func(t *testing.T) {
		e, err := p.Element("SPEED")
		if err != nil {
			t.Fatalf("Element: %v", err)
		}
		if e.Property() != p {
			t.Error("back-reference not set")
		}
		if _, err := p.Element("WARP"); !errors.Is(err, ErrElementNotFound) {
			t.Errorf("missing element: %v", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		err := p.AddElement(NewElement("SPEED", "", Number{}))
		if !errors.Is(err, ErrDuplicateElement) {
			t.Errorf("duplicate add: %v", err)
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		err := p.AddElement(NewElement("NOTE", "", Text{}))
		if !errors.Is(err, ErrKindMismatch) {
			t.Errorf("cross-kind add: %v", err)
		}
	})

	t.Run("order", func(t *testing.T) {
		var names []string
		for e := range p.Elements() {
			names = append(names, e.Name())
		}
		if len(names) != 2 || names[0] != "SPEED" || names[1] != "ACCEL" {
			t.Errorf("order: %v", names)
		}
	})

	t.Run("restartable", func(t *testing.T) {
		seq := p.Elements()
		first, second := 0, 0
		for range seq {
			first++
		}
		for range seq {
			second++
		}
		if first != 2 || second != 2 {
			t.Errorf("sequence not restartable: %d %d", first, second)
		}
	})
}

func TestLightPropertyForcedReadOnly(t *testing.T) {
	p := NewProperty("STATUS", KindLight, Metadata{Perm: PermReadWrite, Timeout: 30})
	if p.Perm() != PermReadOnly {
		t.Errorf("perm: %v", p.Perm())
	}
	if p.Timeout() != 0 {
		t.Errorf("timeout: %v", p.Timeout())
	}

	p.SetMeta(Metadata{Perm: PermReadWrite, Timeout: 5})
	if p.Perm() != PermReadOnly || p.Timeout() != 0 {
		t.Error("SetMeta must re-apply light constraints")
	}
}

func TestPropertyUpdate(t *testing.T) {
	p := NewProperty("TEST", KindNumber, Metadata{State: StateIdle, Timeout: 10})

	timeout := 60.0
	p.Update(StateBusy, &timeout, "2026-08-26T10:00:00", "slewing")
	if p.State() != StateBusy || p.Timeout() != 60 {
		t.Errorf("update: state=%v timeout=%v", p.State(), p.Timeout())
	}
	if p.Timestamp() != "2026-08-26T10:00:00" || p.Message() != "slewing" {
		t.Errorf("update: ts=%q msg=%q", p.Timestamp(), p.Message())
	}

	// Absent fields keep prior values.
	p.Update(StateOk, nil, "", "")
	if p.State() != StateOk || p.Timeout() != 60 || p.Message() != "slewing" {
		t.Error("absent fields must not reset metadata")
	}
}

func TestDeviceProperties(t *testing.T) {
	d := NewDevice("CCD Imager")

	first := NewProperty("TEST_TEXT", KindText, Metadata{})
	if err := d.AddProperty(first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := d.AddProperty(NewProperty("TEST_NUMBER", KindNumber, Metadata{})); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := d.AddProperty(NewProperty("TEST_TEXT", KindText, Metadata{})); !errors.Is(err, ErrDuplicateProperty) {
		t.Errorf("duplicate add: %v", err)
	}

	t.Run("lookup", func(t *testing.T) {
		p, err := d.Property("TEST_TEXT")
		if err != nil || p != first {
			t.Fatalf("Property: %v, %v", p, err)
		}
		if p.Device() != d {
			t.Error("back-reference not set")
		}
		if _, err := d.Property("NOPE"); !errors.Is(err, ErrPropertyNotFound) {
			t.Errorf("missing property: %v", err)
		}
	})

	t.Run("replace keeps order", func(t *testing.T) {
		d.ReplaceProperty(NewProperty("TEST_TEXT", KindText, Metadata{Label: "redefined"}))
		var names []string
		for p := range d.Properties() {
			names = append(names, p.Name())
		}
		if len(names) != 2 || names[0] != "TEST_TEXT" || names[1] != "TEST_NUMBER" {
			t.Errorf("order after replace: %v", names)
		}
		p, _ := d.Property("TEST_TEXT")
		if p.Label() != "redefined" {
			t.Errorf("label after replace: %q", p.Label())
		}
	})

	t.Run("remove", func(t *testing.T) {
		if _, err := d.RemoveProperty("TEST_NUMBER"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if d.PropertyCount() != 1 {
			t.Errorf("count after remove: %d", d.PropertyCount())
		}
		if _, err := d.RemoveProperty("TEST_NUMBER"); !errors.Is(err, ErrPropertyNotFound) {
			t.Errorf("second remove: %v", err)
		}
	})
}

func TestDeviceConnected(t *testing.T) {
	d := NewDevice("Mount")
	if d.Connected() {
		t.Error("device without CONNECTION property must report false")
	}

	conn := NewProperty(ConnectionProperty, KindSwitch, Metadata{Rule: RuleOneOfMany})
	connected := NewElement(ConnectedElement, "", Switch{On: false})
	if err := conn.AddElement(connected); err != nil {
		t.Fatal(err)
	}
	if err := conn.AddElement(NewElement(DisconnectedElement, "", Switch{On: true})); err != nil {
		t.Fatal(err)
	}
	if err := d.AddProperty(conn); err != nil {
		t.Fatal(err)
	}

	if d.Connected() {
		t.Error("CONNECTED off must report false")
	}
	if err := connected.SetValue(Switch{On: true}); err != nil {
		t.Fatal(err)
	}
	if !d.Connected() {
		t.Error("CONNECTED on must report true")
	}
}

func TestDeviceMessage(t *testing.T) {
	d := NewDevice("Mount")
	d.SetMessage("parked", "2026-08-26T10:00:00")
	msg, ts := d.LastMessage()
	if msg != "parked" || ts != "2026-08-26T10:00:00" {
		t.Errorf("message: %q %q", msg, ts)
	}
}
