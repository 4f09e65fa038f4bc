// Package subscription implements listener dispatch for registry events.
//
// Two listener classes exist: property listeners, registered against
// one property (or against every property via SubscribeAll), and
// server listeners, fired once when the connection is lost.
//
// # Handles
//
// Every registration returns a Handle. Cancel deregisters the listener
// deterministically and is safe to call more than once, including from
// inside the listener itself. Property deletion does not cancel
// handles; events for a deleted property simply stop arriving.
//
// # Dispatch Contract
//
// Dispatch runs synchronously on the connection's read loop, after the
// registry change is fully applied and before the next message is
// read. Listeners for one event fire in registration order. A panic in
// a listener is recovered and logged; remaining listeners still run.
// Listeners must not mutate the registry.
package subscription
