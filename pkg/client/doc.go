// Package client implements the INDIGO client connection.
//
// A Client connects to one server, mirrors its devices into a
// registry, and exposes three surfaces:
//
//   - Queries: Devices, Device, and the model-level graph under them.
//   - Subscriptions: per-property listeners, catch-all listeners, and
//     the connection-lost listener, all returning cancelable handles.
//   - Outbound operations: SendValues and EnableBLOB.
//
// # Lifecycle
//
// A Client is created disconnected. Connect dials the server, sends
// the getProperties handshake, and starts consuming the inbound
// stream; definitions arrive asynchronously after that. Disconnect
// tears the transport down without firing the connection-lost
// listener - that listener is reserved for transport failure, which
// fires it exactly once. After either ending, the mirrored graph
// remains readable as a stale snapshot until the next Connect resets
// it.
//
// # Writes
//
// SendValues transmits requested values without touching local state;
// the mirror changes only when the server's confirming update arrives.
// BLOB elements stay metadata-only until EnableBLOB turns on payload
// delivery for their device.
package client
