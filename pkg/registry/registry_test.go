package registry

import (
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indigo-protocol/indigo-go/pkg/log"
	"github.com/indigo-protocol/indigo-go/pkg/model"
	"github.com/indigo-protocol/indigo-go/pkg/wire"
)

// captureLogger records anomaly events for assertions.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) errorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Category == log.CategoryError {
			n++
		}
	}
	return n
}

func f64(v float64) *float64 { return &v }

func defNumber(device, name string, perm string, items ...wire.Item) *wire.Message {
	return &wire.Message{Def: &wire.DefVector{
		Kind:   model.KindNumber,
		Device: device,
		Name:   name,
		State:  "Ok",
		Perm:   perm,
		Items:  items,
	}}
}

func setNumber(device, name string, items ...wire.Item) *wire.Message {
	return &wire.Message{Set: &wire.SetVector{
		Kind:   model.KindNumber,
		Device: device,
		Name:   name,
		State:  "Ok",
		Items:  items,
	}}
}

func numberValue(t *testing.T, r *Registry, device, property, element string) float64 {
	t.Helper()
	dev, err := r.Device(device)
	require.NoError(t, err)
	prop, err := dev.Property(property)
	require.NoError(t, err)
	el, err := prop.Element(element)
	require.NoError(t, err)
	n, ok := el.Number()
	require.True(t, ok)
	return n.Value
}

func TestApplyDefine(t *testing.T) {
	r := New()

	events := r.Apply(defNumber("Mount", "SLEW_RATE", "rw",
		wire.Item{Name: "RATE", Value: 2.0, Min: f64(1), Max: f64(4), Step: f64(1)},
	))

	require.Len(t, events, 2)
	assert.Equal(t, DeviceAdded, events[0].Type)
	assert.Equal(t, PropertyDefined, events[1].Type)
	assert.Equal(t, "Mount", events[1].Device.Name())
	assert.Equal(t, "SLEW_RATE", events[1].Property.Name())

	assert.Equal(t, 2.0, numberValue(t, r, "Mount", "SLEW_RATE", "RATE"))

	prop, _ := events[1].Device.Property("SLEW_RATE")
	assert.Equal(t, model.PermReadWrite, prop.Perm())
	assert.Equal(t, model.StateOk, prop.State())

	// Second define for the same device adds no DeviceAdded.
	events = r.Apply(defNumber("Mount", "PARK_POSITION", "rw", wire.Item{Name: "HA", Value: 0.0}))
	require.Len(t, events, 1)
	assert.Equal(t, PropertyDefined, events[0].Type)
}

func TestApplyRedefineReplacesShape(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "SLEW_RATE", "rw",
		wire.Item{Name: "RATE", Value: 2.0, Min: f64(1), Max: f64(4)},
	))

	// Server restates the property with new bounds and an extra element.
	events := r.Apply(defNumber("Mount", "SLEW_RATE", "rw",
		wire.Item{Name: "RATE", Value: 3.0, Min: f64(1), Max: f64(8)},
		wire.Item{Name: "GUIDE_RATE", Value: 0.5},
	))

	require.Len(t, events, 1)
	assert.Equal(t, PropertyUpdated, events[0].Type)

	dev, _ := r.Device("Mount")
	prop, err := dev.Property("SLEW_RATE")
	require.NoError(t, err)
	assert.Equal(t, 2, prop.ElementCount())
	el, err := prop.Element("RATE")
	require.NoError(t, err)
	n, _ := el.Number()
	assert.Equal(t, 8.0, n.Max)
}

func TestApplyRedefineIdempotent(t *testing.T) {
	r := New()
	def := func() *wire.Message {
		return defNumber("Mount", "SLEW_RATE", "rw", wire.Item{Name: "RATE", Value: 2.0, Min: f64(1), Max: f64(4)})
	}
	r.Apply(def())
	events := r.Apply(def())

	// Identical redefinition: only an updated notification, same values.
	require.Len(t, events, 1)
	assert.Equal(t, PropertyUpdated, events[0].Type)
	assert.Equal(t, 2.0, numberValue(t, r, "Mount", "SLEW_RATE", "RATE"))
}

func TestApplySetUpdatesMentionedElementsOnly(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "TEST_NUMBER", "rw",
		wire.Item{Name: "SPEED", Value: 10.0, Min: f64(0), Max: f64(100)},
		wire.Item{Name: "ACCEL", Value: 1.0, Min: f64(0), Max: f64(100)},
	))

	events := r.Apply(setNumber("Mount", "TEST_NUMBER", wire.Item{Name: "SPEED", Value: 50.0}))

	require.Len(t, events, 1)
	assert.Equal(t, PropertyUpdated, events[0].Type)
	assert.Equal(t, 50.0, numberValue(t, r, "Mount", "TEST_NUMBER", "SPEED"))
	assert.Equal(t, 1.0, numberValue(t, r, "Mount", "TEST_NUMBER", "ACCEL"))
}

func TestApplyRapidUpdatesBothApplied(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "N", "rw", wire.Item{Name: "V", Value: 0.0}))

	first := r.Apply(setNumber("Mount", "N", wire.Item{Name: "V", Value: 5.0}))
	second := r.Apply(setNumber("Mount", "N", wire.Item{Name: "V", Value: 7.0}))

	// No coalescing: both updates notify, last value wins.
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, 7.0, numberValue(t, r, "Mount", "N", "V"))
}

func TestApplySetCreatesUnknownProperty(t *testing.T) {
	r := New()

	events := r.Apply(setNumber("Focuser", "TEMPERATURE", wire.Item{Name: "AMBIENT", Value: 12.5}))

	require.Len(t, events, 2)
	assert.Equal(t, DeviceAdded, events[0].Type)
	assert.Equal(t, PropertyDefined, events[1].Type)
	assert.Equal(t, 12.5, numberValue(t, r, "Focuser", "TEMPERATURE", "AMBIENT"))

	// A set vector carries no perm, so the created property stays
	// writable until a definition arrives and says otherwise.
	prop, err := events[1].Device.Property("TEMPERATURE")
	require.NoError(t, err)
	assert.Equal(t, model.PermReadWrite, prop.Perm())

	r.Apply(defNumber("Focuser", "TEMPERATURE", "ro", wire.Item{Name: "AMBIENT", Value: 12.5}))
	prop, err = events[1].Device.Property("TEMPERATURE")
	require.NoError(t, err)
	assert.Equal(t, model.PermReadOnly, prop.Perm())
}

func TestApplySetUnknownElementSkipped(t *testing.T) {
	logger := &captureLogger{}
	r := New()
	r.SetLogger(logger, "conn-1")
	r.Apply(defNumber("Mount", "N", "rw", wire.Item{Name: "V", Value: 1.0}))

	events := r.Apply(setNumber("Mount", "N",
		wire.Item{Name: "GHOST", Value: 9.0},
		wire.Item{Name: "V", Value: 2.0},
	))

	// The known element still updates; the unknown one is an anomaly.
	require.Len(t, events, 1)
	assert.Equal(t, 2.0, numberValue(t, r, "Mount", "N", "V"))
	assert.Equal(t, 1, logger.errorCount())
}

func TestApplySetKindMismatchDropped(t *testing.T) {
	logger := &captureLogger{}
	r := New()
	r.SetLogger(logger, "conn-1")
	r.Apply(defNumber("Mount", "N", "rw", wire.Item{Name: "V", Value: 1.0}))

	events := r.Apply(&wire.Message{Set: &wire.SetVector{
		Kind: model.KindText, Device: "Mount", Name: "N",
		Items: []wire.Item{{Name: "V", Value: "oops"}},
	}})

	assert.Empty(t, events)
	assert.Equal(t, 1.0, numberValue(t, r, "Mount", "N", "V"))
	assert.Equal(t, 1, logger.errorCount())
}

func TestApplyMalformedDropped(t *testing.T) {
	logger := &captureLogger{}
	r := New()
	r.SetLogger(logger, "conn-1")

	cases := []*wire.Message{
		{Def: &wire.DefVector{Kind: model.KindNumber, Device: "", Name: "N"}},
		{Def: &wire.DefVector{Kind: model.KindNumber, Device: "D", Name: "N", State: "Exploded"}},
		{Def: &wire.DefVector{Kind: model.KindNumber, Device: "D", Name: "N",
			Items: []wire.Item{{Name: "V", Value: "not a number"}}}},
		{Delete: &wire.DeleteProperty{Device: ""}},
		{New: &wire.NewVector{Kind: model.KindNumber}}, // outbound variant inbound
	}
	for _, msg := range cases {
		assert.Empty(t, r.Apply(msg))
	}
	assert.Equal(t, 0, r.DeviceCount())
	assert.Equal(t, len(cases), logger.errorCount())
}

func TestApplyDeleteProperty(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "A", "rw", wire.Item{Name: "V", Value: 1.0}))
	r.Apply(defNumber("Mount", "B", "rw", wire.Item{Name: "V", Value: 2.0}))

	events := r.Apply(&wire.Message{Delete: &wire.DeleteProperty{Device: "Mount", Name: "A", Message: "driver unloaded"}})

	require.Len(t, events, 1)
	assert.Equal(t, PropertyDeleted, events[0].Type)
	assert.Equal(t, "A", events[0].Property.Name())
	assert.Equal(t, "driver unloaded", events[0].Message)

	dev, _ := r.Device("Mount")
	assert.Equal(t, 1, dev.PropertyCount())

	// The deleted property stays readable as a stale snapshot.
	assert.Equal(t, 1, events[0].Property.ElementCount())
}

func TestApplyDeleteWholeDevice(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "A", "rw", wire.Item{Name: "V", Value: 1.0}))
	r.Apply(defNumber("Mount", "B", "rw", wire.Item{Name: "V", Value: 2.0}))
	r.Apply(defNumber("CCD Imager", "C", "rw", wire.Item{Name: "V", Value: 3.0}))

	events := r.Apply(&wire.Message{Delete: &wire.DeleteProperty{Device: "Mount"}})

	require.Len(t, events, 3)
	assert.Equal(t, PropertyDeleted, events[0].Type)
	assert.Equal(t, PropertyDeleted, events[1].Type)
	assert.Equal(t, DeviceRemoved, events[2].Type)

	_, err := r.Device("Mount")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Equal(t, 1, r.DeviceCount())
}

func TestApplyBroadcast(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "A", "rw", wire.Item{Name: "V", Value: 1.0}))

	t.Run("device scoped", func(t *testing.T) {
		events := r.Apply(&wire.Message{Broadcast: &wire.Broadcast{
			Device: "Mount", Message: "parked", Timestamp: "2026-08-26T10:00:00",
		}})
		require.Len(t, events, 1)
		assert.Equal(t, DeviceMessage, events[0].Type)

		dev, _ := r.Device("Mount")
		msg, ts := dev.LastMessage()
		assert.Equal(t, "parked", msg)
		assert.Equal(t, "2026-08-26T10:00:00", ts)
	})

	t.Run("connection scoped", func(t *testing.T) {
		events := r.Apply(&wire.Message{Broadcast: &wire.Broadcast{Message: "server going down"}})
		require.Len(t, events, 1)
		assert.Equal(t, ClientMessage, events[0].Type)

		msg, _ := r.LastMessage()
		assert.Equal(t, "server going down", msg)
	})
}

func TestApplyBLOBPayload(t *testing.T) {
	r := New()
	r.Apply(&wire.Message{Def: &wire.DefVector{
		Kind: model.KindBLOB, Device: "CCD Imager", Name: "CCD_IMAGE", State: "Ok", Perm: "ro",
		Items: []wire.Item{{Name: "IMAGE", Format: ".fits"}},
	}})

	payload := []byte("SIMPLE  =            T")
	size := int64(len(payload))
	events := r.Apply(&wire.Message{Set: &wire.SetVector{
		Kind: model.KindBLOB, Device: "CCD Imager", Name: "CCD_IMAGE", State: "Ok",
		Items: []wire.Item{{
			Name:   "IMAGE",
			Value:  base64.StdEncoding.EncodeToString(payload),
			Format: ".fits",
			Size:   &size,
			URL:    "/blob/0x1.fits",
		}},
	}})

	require.Len(t, events, 1)
	dev, _ := r.Device("CCD Imager")
	prop, _ := dev.Property("CCD_IMAGE")
	el, _ := prop.Element("IMAGE")
	b, ok := el.BLOB()
	require.True(t, ok)
	assert.Equal(t, payload, b.Data)
	assert.Equal(t, size, b.Size)
	assert.Equal(t, "/blob/0x1.fits", b.URL)
}

func TestApplySwitchAndLightVectors(t *testing.T) {
	r := New()

	r.Apply(&wire.Message{Def: &wire.DefVector{
		Kind: model.KindSwitch, Device: "Mount", Name: model.ConnectionProperty,
		State: "Idle", Perm: "rw", Rule: "OneOfMany",
		Items: []wire.Item{
			{Name: model.ConnectedElement, Value: false},
			{Name: model.DisconnectedElement, Value: true},
		},
	}})

	dev, err := r.Device("Mount")
	require.NoError(t, err)
	assert.False(t, dev.Connected())

	r.Apply(&wire.Message{Set: &wire.SetVector{
		Kind: model.KindSwitch, Device: "Mount", Name: model.ConnectionProperty, State: "Ok",
		Items: []wire.Item{
			{Name: model.ConnectedElement, Value: true},
			{Name: model.DisconnectedElement, Value: false},
		},
	}})
	assert.True(t, dev.Connected())

	r.Apply(&wire.Message{Def: &wire.DefVector{
		Kind: model.KindLight, Device: "Mount", Name: "STATUS", Perm: "rw",
		Items: []wire.Item{{Name: "TRACKING", Value: "Busy"}},
	}})
	prop, err := dev.Property("STATUS")
	require.NoError(t, err)
	assert.Equal(t, model.PermReadOnly, prop.Perm(), "light properties are forced read-only")
	el, _ := prop.Element("TRACKING")
	l, ok := el.Light()
	require.True(t, ok)
	assert.Equal(t, model.StateBusy, l.Value)
}

func TestDevicesSnapshot(t *testing.T) {
	r := New()
	r.Apply(defNumber("B", "P", "rw", wire.Item{Name: "V", Value: 1.0}))
	r.Apply(defNumber("A", "P", "rw", wire.Item{Name: "V", Value: 1.0}))

	seq := r.Devices()

	// Mutations after the snapshot do not affect an existing sequence.
	r.Apply(defNumber("C", "P", "rw", wire.Item{Name: "V", Value: 1.0}))

	var names []string
	for d := range seq {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"B", "A"}, names, "first-seen order, snapshot at call time")

	names = names[:0]
	for d := range r.Devices() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"B", "A", "C"}, names)
}

func TestReset(t *testing.T) {
	r := New()
	r.Apply(defNumber("Mount", "P", "rw", wire.Item{Name: "V", Value: 1.0}))
	dev, _ := r.Device("Mount")

	r.Reset()

	assert.Equal(t, 0, r.DeviceCount())
	// Old references stay usable as stale snapshots.
	assert.Equal(t, 1, dev.PropertyCount())
}
