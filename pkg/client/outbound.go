package client

import (
	"fmt"

	"github.com/indigo-protocol/indigo-go/pkg/model"
	"github.com/indigo-protocol/indigo-go/pkg/wire"
)

// SendValues requests new values for elements of one property. values
// maps element names to their requested values (float64 or int for
// numbers, string for texts, bool for switches). Validation happens
// before any transmission:
//
//   - unknown device or property: ErrNotFound
//   - read-only property, unknown element, wrong value type, or a
//     number outside its declared bounds: ErrInvalidArgument
//
// Local state is not touched. The mirror updates when the server's
// confirming set vector arrives; until then Element values keep their
// prior readings.
func (c *Client) SendValues(device, property string, values map[string]any) error {
	prop, err := c.Property(device, property)
	if err != nil {
		return err
	}
	if !prop.Perm().CanWrite() {
		return fmt.Errorf("%w: property %q of device %q is read-only", ErrInvalidArgument, property, device)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: no values", ErrInvalidArgument)
	}

	// Items go out in element definition order for a stable wire form.
	items := make([]wire.NewItem, 0, len(values))
	for el := range prop.Elements() {
		v, ok := values[el.Name()]
		if !ok {
			continue
		}
		item, err := newItem(el, v)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	if len(items) != len(values) {
		for name := range values {
			if _, err := prop.Element(name); err != nil {
				return fmt.Errorf("%w: unknown element %q on property %q", ErrInvalidArgument, name, property)
			}
		}
	}

	return c.send(&wire.Message{New: &wire.NewVector{
		Kind:   prop.Kind(),
		Device: device,
		Name:   property,
		Items:  items,
	}})
}

// newItem validates one requested value against its element.
func newItem(el *model.Element, v any) (wire.NewItem, error) {
	switch cur := el.Value().(type) {
	case model.Number:
		f, ok := toFloat(v)
		if !ok {
			return wire.NewItem{}, fmt.Errorf("%w: element %q wants a number, got %T", ErrInvalidArgument, el.Name(), v)
		}
		if !cur.InBounds(f) {
			return wire.NewItem{}, fmt.Errorf("%w: element %q value %v outside [%v, %v]",
				ErrInvalidArgument, el.Name(), f, cur.Min, cur.Max)
		}
		return wire.NewItem{Name: el.Name(), Value: f}, nil

	case model.Text:
		s, ok := v.(string)
		if !ok {
			return wire.NewItem{}, fmt.Errorf("%w: element %q wants a string, got %T", ErrInvalidArgument, el.Name(), v)
		}
		if cur.MaxLength > 0 && len(s) > cur.MaxLength {
			return wire.NewItem{}, fmt.Errorf("%w: element %q value exceeds %d characters",
				ErrInvalidArgument, el.Name(), cur.MaxLength)
		}
		return wire.NewItem{Name: el.Name(), Value: s}, nil

	case model.Switch:
		on, ok := v.(bool)
		if !ok {
			return wire.NewItem{}, fmt.Errorf("%w: element %q wants a bool, got %T", ErrInvalidArgument, el.Name(), v)
		}
		return wire.NewItem{Name: el.Name(), Value: on}, nil
	}

	// Lights are read-only by construction; BLOBs are server-delivered.
	return wire.NewItem{}, fmt.Errorf("%w: element %q of kind %s is not writable", ErrInvalidArgument, el.Name(), el.Kind())
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// EnableBLOB selects whether the server delivers BLOB payloads for the
// device. Absent this call BLOB elements stay metadata-only.
func (c *Client) EnableBLOB(device string, mode model.BLOBMode) error {
	if _, err := c.Device(device); err != nil {
		return err
	}
	return c.send(&wire.Message{EnableBLOB: &wire.EnableBLOB{
		Device: device,
		Value:  mode.String(),
	}})
}
