package registry

import "github.com/indigo-protocol/indigo-go/pkg/model"

// EventType classifies a registry change.
type EventType uint8

const (
	// DeviceAdded fires when a device is created on first reference.
	DeviceAdded EventType = iota

	// DeviceRemoved fires when a whole-device delete removes a device.
	DeviceRemoved

	// PropertyDefined fires when a property is first defined.
	PropertyDefined

	// PropertyUpdated fires on value/state updates and redefinitions.
	PropertyUpdated

	// PropertyDeleted fires when a property is removed.
	PropertyDeleted

	// DeviceMessage fires when a broadcast message targets a device.
	DeviceMessage

	// ClientMessage fires when a broadcast message has no device scope.
	ClientMessage
)

var eventTypeNames = [...]string{
	"DeviceAdded", "DeviceRemoved",
	"PropertyDefined", "PropertyUpdated", "PropertyDeleted",
	"DeviceMessage", "ClientMessage",
}

// String returns the event type name.
func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "Unknown"
}

// Event is one observable registry change. Device is set for all types
// except ClientMessage; Property is set for the Property* types only.
// Deleted properties remain readable through the event as stale
// snapshots.
type Event struct {
	Type     EventType
	Device   *model.Device
	Property *model.Property

	// Message and Timestamp carry broadcast/delete annotations.
	Message   string
	Timestamp string
}
