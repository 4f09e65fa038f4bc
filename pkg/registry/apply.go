package registry

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/indigo-protocol/indigo-go/pkg/model"
	"github.com/indigo-protocol/indigo-go/pkg/wire"
)

// ErrProtocolViolation marks inbound messages (or parts of them) that
// could not be applied. Violations are logged and dropped, never fatal
// to the connection.
var ErrProtocolViolation = errors.New("protocol violation")

// Apply folds one inbound message into the mirror and returns the
// ordered events it produced. A message's effects are atomic: all
// validation happens before the first mutation, so listeners never
// observe a half-applied message. Apply must be called from a single
// goroutine (the connection's read loop).
func (r *Registry) Apply(msg *wire.Message) []Event {
	switch {
	case msg == nil:
		return nil
	case msg.Def != nil:
		return r.applyDef(msg.Def)
	case msg.Set != nil:
		return r.applySet(msg.Set)
	case msg.Delete != nil:
		return r.applyDelete(msg.Delete)
	case msg.Broadcast != nil:
		return r.applyBroadcast(msg.Broadcast)
	}
	r.anomaly("", "apply", fmt.Errorf("%w: unexpected message variant", ErrProtocolViolation))
	return nil
}

// applyDef handles define vectors: first definition, or full
// redefinition of a known property (metadata and element set replaced).
func (r *Registry) applyDef(v *wire.DefVector) []Event {
	context := fmt.Sprintf("define %s.%s", v.Device, v.Name)
	if v.Device == "" || v.Name == "" {
		r.anomaly(v.Device, context, fmt.Errorf("%w: missing device or property name", ErrProtocolViolation))
		return nil
	}

	meta, err := defMeta(v)
	if err != nil {
		r.anomaly(v.Device, context, fmt.Errorf("%w: %v", ErrProtocolViolation, err))
		return nil
	}

	prop := model.NewProperty(v.Name, v.Kind, meta)
	for _, it := range v.Items {
		if it.Name == "" {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item without name", ErrProtocolViolation))
			return nil
		}
		val, err := defValue(v.Kind, it)
		if err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item %q: %v", ErrProtocolViolation, it.Name, err))
			return nil
		}
		if err := prop.AddElement(model.NewElement(it.Name, it.Label, val)); err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item %q: %v", ErrProtocolViolation, it.Name, err))
			return nil
		}
	}

	var events []Event
	dev := r.getOrCreate(v.Device, &events)
	if _, err := dev.Property(v.Name); err == nil {
		dev.ReplaceProperty(prop)
		events = append(events, Event{Type: PropertyUpdated, Device: dev, Property: prop, Message: v.Message, Timestamp: v.Timestamp})
	} else {
		if err := dev.AddProperty(prop); err != nil {
			r.anomaly(v.Device, context, err)
			return events
		}
		events = append(events, Event{Type: PropertyDefined, Device: dev, Property: prop, Message: v.Message, Timestamp: v.Timestamp})
	}
	return events
}

// applySet handles set vectors. Unknown properties are created from
// the update's items (create-on-first-reference); unknown elements
// within a known property are logged and skipped.
func (r *Registry) applySet(v *wire.SetVector) []Event {
	context := fmt.Sprintf("set %s.%s", v.Device, v.Name)
	if v.Device == "" || v.Name == "" {
		r.anomaly(v.Device, context, fmt.Errorf("%w: missing device or property name", ErrProtocolViolation))
		return nil
	}

	var state *model.State
	if v.State != "" {
		s, err := model.ParseState(v.State)
		if err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		state = &s
	}

	if dev, err := r.Device(v.Device); err == nil {
		if prop, err := dev.Property(v.Name); err == nil {
			return r.updateProperty(dev, prop, v, state, context)
		}
	}
	return r.createFromSet(v, state, context)
}

// updateProperty applies a set vector to a known property.
func (r *Registry) updateProperty(dev *model.Device, prop *model.Property, v *wire.SetVector, state *model.State, context string) []Event {
	if v.Kind != prop.Kind() {
		r.anomaly(v.Device, context, fmt.Errorf("%w: property is %s, vector is %s", ErrProtocolViolation, prop.Kind(), v.Kind))
		return nil
	}

	// Resolve and validate every item before mutating anything.
	type change struct {
		el  *model.Element
		val model.Value
	}
	var changes []change
	for _, it := range v.Items {
		el, err := prop.Element(it.Name)
		if err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			continue
		}
		val, err := mergeValue(el.Value(), it)
		if err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item %q: %v", ErrProtocolViolation, it.Name, err))
			continue
		}
		changes = append(changes, change{el, val})
	}

	for _, c := range changes {
		// Kind was checked against the vector above.
		_ = c.el.SetValue(c.val)
	}

	st := prop.State()
	if state != nil {
		st = *state
	}
	prop.Update(st, v.Timeout, v.Timestamp, v.Message)

	return []Event{{Type: PropertyUpdated, Device: dev, Property: prop, Message: v.Message, Timestamp: v.Timestamp}}
}

// createFromSet builds a property from an update that referenced an
// unknown property. Metadata the set vector cannot carry (rule, bounds)
// takes zero values until the server restates the definition. Perm
// defaults to read-write so writes stay possible until a def vector
// states otherwise.
func (r *Registry) createFromSet(v *wire.SetVector, state *model.State, context string) []Event {
	meta := model.Metadata{Timestamp: v.Timestamp, Message: v.Message, Perm: model.PermReadWrite}
	if state != nil {
		meta.State = *state
	}
	if v.Timeout != nil {
		meta.Timeout = *v.Timeout
	}

	prop := model.NewProperty(v.Name, v.Kind, meta)
	for _, it := range v.Items {
		if it.Name == "" {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item without name", ErrProtocolViolation))
			return nil
		}
		val, err := defValue(v.Kind, it)
		if err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item %q: %v", ErrProtocolViolation, it.Name, err))
			return nil
		}
		if b, ok := val.(model.BLOB); ok {
			val, err = blobPayload(b, it)
			if err != nil {
				r.anomaly(v.Device, context, fmt.Errorf("%w: item %q: %v", ErrProtocolViolation, it.Name, err))
				return nil
			}
		}
		if err := prop.AddElement(model.NewElement(it.Name, it.Label, val)); err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: item %q: %v", ErrProtocolViolation, it.Name, err))
			return nil
		}
	}

	var events []Event
	dev := r.getOrCreate(v.Device, &events)
	if err := dev.AddProperty(prop); err != nil {
		r.anomaly(v.Device, context, err)
		return events
	}
	events = append(events, Event{Type: PropertyDefined, Device: dev, Property: prop, Message: v.Message, Timestamp: v.Timestamp})
	return events
}

// applyDelete removes one property, or the whole device when the
// vector carries no property name.
func (r *Registry) applyDelete(v *wire.DeleteProperty) []Event {
	context := fmt.Sprintf("delete %s.%s", v.Device, v.Name)
	if v.Device == "" {
		r.anomaly("", context, fmt.Errorf("%w: missing device name", ErrProtocolViolation))
		return nil
	}
	dev, err := r.Device(v.Device)
	if err != nil {
		r.anomaly(v.Device, context, fmt.Errorf("%w: %v", ErrProtocolViolation, err))
		return nil
	}

	if v.Name != "" {
		prop, err := dev.RemoveProperty(v.Name)
		if err != nil {
			r.anomaly(v.Device, context, fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return nil
		}
		return []Event{{Type: PropertyDeleted, Device: dev, Property: prop, Message: v.Message, Timestamp: v.Timestamp}}
	}

	// Whole-device removal: properties first, then the device itself.
	var events []Event
	for prop := range dev.Properties() {
		if _, err := dev.RemoveProperty(prop.Name()); err == nil {
			events = append(events, Event{Type: PropertyDeleted, Device: dev, Property: prop, Message: v.Message, Timestamp: v.Timestamp})
		}
	}
	if _, ok := r.remove(v.Device); ok {
		events = append(events, Event{Type: DeviceRemoved, Device: dev, Message: v.Message, Timestamp: v.Timestamp})
	}
	return events
}

// applyBroadcast records a free-form status message.
func (r *Registry) applyBroadcast(v *wire.Broadcast) []Event {
	if v.Device == "" {
		r.mu.Lock()
		r.message = v.Message
		r.timestamp = v.Timestamp
		r.mu.Unlock()
		return []Event{{Type: ClientMessage, Message: v.Message, Timestamp: v.Timestamp}}
	}

	dev, err := r.Device(v.Device)
	if err != nil {
		r.anomaly(v.Device, "message", fmt.Errorf("%w: %v", ErrProtocolViolation, err))
		return nil
	}
	dev.SetMessage(v.Message, v.Timestamp)
	return []Event{{Type: DeviceMessage, Device: dev, Message: v.Message, Timestamp: v.Timestamp}}
}

// defMeta converts define-vector metadata, validating enum spellings.
func defMeta(v *wire.DefVector) (model.Metadata, error) {
	meta := model.Metadata{
		Label:     v.Label,
		Group:     v.Group,
		Timestamp: v.Timestamp,
		Message:   v.Message,
	}
	if v.Timeout != nil {
		meta.Timeout = *v.Timeout
	}
	if v.State != "" {
		s, err := model.ParseState(v.State)
		if err != nil {
			return meta, err
		}
		meta.State = s
	}
	if v.Perm != "" {
		p, err := model.ParsePerm(v.Perm)
		if err != nil {
			return meta, err
		}
		meta.Perm = p
	}
	if v.Rule != "" {
		rule, err := model.ParseRule(v.Rule)
		if err != nil {
			return meta, err
		}
		meta.Rule = rule
	}
	return meta, nil
}

// defValue builds the initial value variant for a defined element.
func defValue(kind model.Kind, it wire.Item) (model.Value, error) {
	switch kind {
	case model.KindNumber:
		n := model.Number{Format: it.Format}
		if f, ok := it.Float(); ok {
			n.Value = f
			n.Target = f
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-numeric value %v", it.Value)
		}
		if it.Min != nil {
			n.Min = *it.Min
		}
		if it.Max != nil {
			n.Max = *it.Max
		}
		if it.Step != nil {
			n.Step = *it.Step
		}
		if it.Target != nil {
			n.Target = *it.Target
		}
		return n, nil

	case model.KindText:
		t := model.Text{}
		if s, ok := it.Str(); ok {
			t.Value = s
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-string value %v", it.Value)
		}
		return t, nil

	case model.KindSwitch:
		s := model.Switch{}
		if on, ok := it.Bool(); ok {
			s.On = on
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-boolean value %v", it.Value)
		}
		return s, nil

	case model.KindLight:
		l := model.Light{}
		if s, ok := it.Str(); ok {
			st, err := model.ParseState(s)
			if err != nil {
				return nil, err
			}
			l.Value = st
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-string light value %v", it.Value)
		}
		return l, nil

	case model.KindBLOB:
		b := model.BLOB{Format: it.Format, URL: it.URL}
		if it.Size != nil {
			b.Size = *it.Size
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown kind %v", kind)
}

// mergeValue folds one set-vector item into the element's current
// value. Fields the item does not carry keep their prior values.
func mergeValue(cur model.Value, it wire.Item) (model.Value, error) {
	switch v := cur.(type) {
	case model.Number:
		if f, ok := it.Float(); ok {
			v.Value = f
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-numeric value %v", it.Value)
		}
		if it.Target != nil {
			v.Target = *it.Target
		}
		return v, nil

	case model.Text:
		if s, ok := it.Str(); ok {
			v.Value = s
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-string value %v", it.Value)
		}
		return v, nil

	case model.Switch:
		if on, ok := it.Bool(); ok {
			v.On = on
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-boolean value %v", it.Value)
		}
		return v, nil

	case model.Light:
		if s, ok := it.Str(); ok {
			st, err := model.ParseState(s)
			if err != nil {
				return nil, err
			}
			v.Value = st
		} else if it.Value != nil {
			return nil, fmt.Errorf("non-string light value %v", it.Value)
		}
		return v, nil

	case model.BLOB:
		return blobPayload(v, it)
	}
	return nil, fmt.Errorf("unknown value kind %T", cur)
}

// blobPayload folds BLOB delivery fields (size/format/url and inline
// base64 data) into a BLOB value.
func blobPayload(b model.BLOB, it wire.Item) (model.Value, error) {
	if it.Size != nil {
		b.Size = *it.Size
	}
	if it.Format != "" {
		b.Format = it.Format
	}
	if it.URL != "" {
		b.URL = it.URL
	}
	if s, ok := it.Str(); ok && s != "" {
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("bad base64 payload: %v", err)
		}
		b.Data = data
		if b.Size == 0 {
			b.Size = int64(len(data))
		}
	}
	return b, nil
}
