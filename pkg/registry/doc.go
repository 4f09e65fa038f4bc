// Package registry maintains the client-side mirror of server state.
//
// The Registry owns the Device > Property > Element graph for one
// connection. It is populated exclusively by applying decoded protocol
// messages through Apply, which returns the ordered list of Events the
// message produced. The connection's read loop is the single caller of
// Apply; everything else only reads.
//
// # Create on First Reference
//
// A define vector naming an unknown device creates the device first
// (DeviceAdded precedes PropertyDefined in the returned events). An
// update for an unknown property creates it from the update's items.
// An update naming an unknown element inside a known property is a
// protocol anomaly: it is logged and skipped, never fatal.
//
// # Snapshots
//
// Devices() returns a lazy, restartable sequence over an
// insertion-ordered snapshot taken at call time, matching the
// model-level Properties() and Elements() sequences.
package registry
